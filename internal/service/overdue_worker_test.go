package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/meridianpay/ledger-backend/internal/ledger"
	"github.com/meridianpay/ledger-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweepLoan(t *testing.T, engine *ledger.Engine, startDate time.Time, status domain.LoanStatus) *domain.Loan {
	t.Helper()
	loan, err := engine.BuildLoan(uuid.New(), decimal.NewFromInt(1200), decimal.Zero, 12,
		domain.CurrencyUSD, startDate, startDate)
	require.NoError(t, err)
	loan.Status = status
	return loan
}

func TestSweepOnce_FlagsPastDueInstallments(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	engine := ledger.NewEngine(ledger.DefaultConfig())
	worker := NewOverdueWorker(loanRepo, engine, zerolog.Nop(), DefaultOverdueWorkerConfig())

	// Started just over two months ago: installments 1 and 2 are past due
	start := time.Now().UTC().AddDate(0, -2, -1)
	loan := newSweepLoan(t, engine, start, domain.LoanStatusActive)
	loanRepo.AddLoan(loan)

	worker.SweepOnce(context.Background())

	stored := loanRepo.Loans[loan.ID]
	assert.Equal(t, domain.InstallmentStatusOverdue, stored.RepaymentSchedule[0].Status)
	assert.Equal(t, domain.InstallmentStatusOverdue, stored.RepaymentSchedule[1].Status)
	assert.Equal(t, domain.InstallmentStatusPending, stored.RepaymentSchedule[2].Status)
	assert.True(t, stored.OverdueAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, int64(2), stored.Version)
}

func TestSweepOnce_IgnoresCurrentLoans(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	engine := ledger.NewEngine(ledger.DefaultConfig())
	worker := NewOverdueWorker(loanRepo, engine, zerolog.Nop(), DefaultOverdueWorkerConfig())

	loan := newSweepLoan(t, engine, time.Now().UTC(), domain.LoanStatusActive)
	loanRepo.AddLoan(loan)

	worker.SweepOnce(context.Background())

	stored := loanRepo.Loans[loan.ID]
	assert.Equal(t, domain.InstallmentStatusPending, stored.RepaymentSchedule[0].Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestSweepOnce_OnlyActiveLoans(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	engine := ledger.NewEngine(ledger.DefaultConfig())
	worker := NewOverdueWorker(loanRepo, engine, zerolog.Nop(), DefaultOverdueWorkerConfig())

	start := time.Now().UTC().AddDate(-1, 0, 0)
	pending := newSweepLoan(t, engine, start, domain.LoanStatusPending)
	loanRepo.AddLoan(pending)

	worker.SweepOnce(context.Background())

	stored := loanRepo.Loans[pending.ID]
	assert.Equal(t, domain.InstallmentStatusPending, stored.RepaymentSchedule[0].Status)
}

func TestSweepOnce_SkipsVersionConflicts(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	engine := ledger.NewEngine(ledger.DefaultConfig())
	worker := NewOverdueWorker(loanRepo, engine, zerolog.Nop(), DefaultOverdueWorkerConfig())

	start := time.Now().UTC().AddDate(0, -2, 0)
	loan := newSweepLoan(t, engine, start, domain.LoanStatusActive)
	loanRepo.AddLoan(loan)
	loanRepo.ConflictsLeft = 1

	worker.SweepOnce(context.Background())

	// The conflicted loan is left alone until the next tick
	stored := loanRepo.Loans[loan.ID]
	assert.Equal(t, domain.InstallmentStatusPending, stored.RepaymentSchedule[0].Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestOverdueWorker_StartStop(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	engine := ledger.NewEngine(ledger.DefaultConfig())
	worker := NewOverdueWorker(loanRepo, engine, zerolog.Nop(), OverdueWorkerConfig{Interval: time.Hour})

	worker.Start(context.Background())
	// Give the immediate sweep a moment to run
	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	assert.GreaterOrEqual(t, loanRepo.UpdateCalls, 0)
}
