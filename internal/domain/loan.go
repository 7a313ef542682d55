package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound             = errors.New("loan not found")
	ErrLoanPrincipalInvalid     = errors.New("loan principal must be positive")
	ErrLoanRateInvalid          = errors.New("interest rate must not be negative")
	ErrLoanTenureInvalid        = errors.New("tenure must be at least 1 month")
	ErrLoanCurrencyInvalid      = errors.New("unsupported currency")
	ErrVersionConflict          = errors.New("loan was modified concurrently")
	ErrLoanScheduleEmpty        = errors.New("loan has no repayment schedule")
	ErrTargetInstallmentInvalid = errors.New("target installment does not exist or is already paid")
)

// LoanStatus is the lifecycle state of a loan. Transitions are
// monotonic: Rejected, Completed and Defaulted are terminal.
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s LoanStatus) IsTerminal() bool {
	switch s {
	case LoanStatusRejected, LoanStatusCompleted, LoanStatusDefaulted:
		return true
	}
	return false
}

// Valid reports whether s is a known loan status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected,
		LoanStatusActive, LoanStatusCompleted, LoanStatusDefaulted:
		return true
	}
	return false
}

// Loan is the aggregate root of the repayment ledger. The schedule is
// ordered by installment number, which is also chronological due-date
// order. Version guards concurrent writers: every persisted update must
// compare-and-swap on it.
type Loan struct {
	ID                  uuid.UUID       `json:"id"`
	BorrowerID          uuid.UUID       `json:"borrowerId"`
	Principal           decimal.Decimal `json:"principal"`
	InterestRatePercent decimal.Decimal `json:"interestRatePercent"`
	TenureMonths        int             `json:"tenureMonths"`
	Currency            Currency        `json:"currency"`
	StartDate           time.Time       `json:"startDate"`
	Status              LoanStatus      `json:"status"`
	RepaymentSchedule   []Installment   `json:"repaymentSchedule"`
	TotalPaid           decimal.Decimal `json:"totalPaid"`
	RemainingAmount     decimal.Decimal `json:"remainingAmount"`
	OverdueAmount       decimal.Decimal `json:"overdueAmount"`
	LastPaymentDate     *time.Time      `json:"lastPaymentDate,omitempty"`
	DisbursedAt         *time.Time      `json:"disbursedAt,omitempty"`
	CompletedAt         *time.Time      `json:"completedAt,omitempty"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func (l *Loan) Validate() error {
	if l.Principal.LessThanOrEqual(decimal.Zero) {
		return ErrLoanPrincipalInvalid
	}
	if l.InterestRatePercent.IsNegative() {
		return ErrLoanRateInvalid
	}
	if l.TenureMonths < 1 {
		return ErrLoanTenureInvalid
	}
	if !l.Currency.Valid() {
		return ErrLoanCurrencyInvalid
	}
	return nil
}

// TotalInterest sums the interest portion across the full schedule.
func (l *Loan) TotalInterest() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.RepaymentSchedule {
		total = total.Add(inst.InterestPortion)
	}
	return total
}

// ScheduleTotal sums the gross amount across the full schedule.
func (l *Loan) ScheduleTotal() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.RepaymentSchedule {
		total = total.Add(inst.Amount)
	}
	return total
}

// HasPayments reports whether any installment has received funds.
func (l *Loan) HasPayments() bool {
	if l.TotalPaid.GreaterThan(decimal.Zero) {
		return true
	}
	for _, inst := range l.RepaymentSchedule {
		if inst.Status == InstallmentStatusPaid || inst.Status == InstallmentStatusPartial {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. The engine mutates only clones so a failed
// operation leaves the caller's aggregate untouched.
func (l *Loan) Clone() *Loan {
	out := *l
	out.RepaymentSchedule = make([]Installment, len(l.RepaymentSchedule))
	copy(out.RepaymentSchedule, l.RepaymentSchedule)
	for i := range out.RepaymentSchedule {
		if p := out.RepaymentSchedule[i].PaidAt; p != nil {
			t := *p
			out.RepaymentSchedule[i].PaidAt = &t
		}
	}
	if l.LastPaymentDate != nil {
		t := *l.LastPaymentDate
		out.LastPaymentDate = &t
	}
	if l.DisbursedAt != nil {
		t := *l.DisbursedAt
		out.DisbursedAt = &t
	}
	if l.CompletedAt != nil {
		t := *l.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
