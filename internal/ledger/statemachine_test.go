package ledger

import (
	"testing"

	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition_AllowedMoves(t *testing.T) {
	assert.True(t, CanTransition(domain.LoanStatusPending, domain.LoanStatusApproved))
	assert.True(t, CanTransition(domain.LoanStatusPending, domain.LoanStatusRejected))
	assert.True(t, CanTransition(domain.LoanStatusApproved, domain.LoanStatusActive))
	assert.True(t, CanTransition(domain.LoanStatusActive, domain.LoanStatusCompleted))
	assert.True(t, CanTransition(domain.LoanStatusActive, domain.LoanStatusDefaulted))
}

func TestCanTransition_ForbiddenMoves(t *testing.T) {
	assert.False(t, CanTransition(domain.LoanStatusPending, domain.LoanStatusActive))
	assert.False(t, CanTransition(domain.LoanStatusPending, domain.LoanStatusCompleted))
	assert.False(t, CanTransition(domain.LoanStatusApproved, domain.LoanStatusRejected))
	assert.False(t, CanTransition(domain.LoanStatusActive, domain.LoanStatusPending))
	assert.False(t, CanTransition(domain.LoanStatusActive, domain.LoanStatusApproved))
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	terminals := []domain.LoanStatus{
		domain.LoanStatusRejected,
		domain.LoanStatusCompleted,
		domain.LoanStatusDefaulted,
	}
	all := []domain.LoanStatus{
		domain.LoanStatusPending,
		domain.LoanStatusApproved,
		domain.LoanStatusRejected,
		domain.LoanStatusActive,
		domain.LoanStatusCompleted,
		domain.LoanStatusDefaulted,
	}
	for _, from := range terminals {
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s should be forbidden", from, to)
		}
	}
}

func TestPayable(t *testing.T) {
	assert.True(t, payable(domain.LoanStatusApproved))
	assert.True(t, payable(domain.LoanStatusActive))
	assert.False(t, payable(domain.LoanStatusPending))
	assert.False(t, payable(domain.LoanStatusRejected))
	assert.False(t, payable(domain.LoanStatusCompleted))
	assert.False(t, payable(domain.LoanStatusDefaulted))
}
