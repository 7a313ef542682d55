package ledger

import (
	"github.com/meridianpay/ledger-backend/internal/domain"
)

// transitions is the closed set of permitted status moves. Anything not
// listed is rejected; terminal states have no outgoing edges.
var transitions = map[domain.LoanStatus][]domain.LoanStatus{
	domain.LoanStatusPending:  {domain.LoanStatusApproved, domain.LoanStatusRejected},
	domain.LoanStatusApproved: {domain.LoanStatusActive},
	domain.LoanStatusActive:   {domain.LoanStatusCompleted, domain.LoanStatusDefaulted},
}

// CanTransition reports whether a loan may move from one status to
// another.
func CanTransition(from, to domain.LoanStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the loan to the target status or returns an
// InvalidLoanStateError naming the attempted action.
func transition(loan *domain.Loan, to domain.LoanStatus, action string) error {
	if !CanTransition(loan.Status, to) {
		return &domain.InvalidLoanStateError{
			LoanID: loan.ID,
			Status: loan.Status,
			Action: action,
		}
	}
	loan.Status = to
	return nil
}

// payable reports whether the loan can accept a repayment at all.
// Payments are valid against Approved (implicitly activating the loan)
// and Active loans only.
func payable(status domain.LoanStatus) bool {
	return status == domain.LoanStatusApproved || status == domain.LoanStatusActive
}

// rateChangeable reports whether the interest rate may still be edited:
// only before disbursement and before any money has moved.
func rateChangeable(loan *domain.Loan) bool {
	if loan.Status != domain.LoanStatusPending && loan.Status != domain.LoanStatusApproved {
		return false
	}
	return !loan.HasPayments()
}
