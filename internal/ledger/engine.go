package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Engine is the pure core of the repayment ledger. Every operation
// reads a loan aggregate, computes a complete LedgerUpdateResult or a
// typed error, and never half-applies anything: the input loan is
// cloned before mutation. The engine performs no I/O and holds no
// state besides its config, so it is safe to share across goroutines;
// serializing writes to the same loan is the caller's job.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given policy config.
func NewEngine(cfg Config) *Engine {
	if !cfg.DueDateMode.Valid() {
		cfg.DueDateMode = DueDateCalendarMonth
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine's policy config.
func (e *Engine) Config() Config {
	return e.cfg
}

// BuildLoan assembles a new Pending loan with a freshly computed
// repayment schedule. RemainingAmount starts at principal plus total
// interest, so the reconciliation invariant holds from the first moment.
func (e *Engine) BuildLoan(borrowerID uuid.UUID, principal, ratePercent decimal.Decimal, tenureMonths int, currency domain.Currency, startDate, now time.Time) (*domain.Loan, error) {
	schedule, err := ComputeSchedule(principal, ratePercent, tenureMonths, currency, startDate, e.cfg.DueDateMode)
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		ID:                  uuid.New(),
		BorrowerID:          borrowerID,
		Principal:           principal,
		InterestRatePercent: ratePercent,
		TenureMonths:        tenureMonths,
		Currency:            currency,
		StartDate:           startDate,
		Status:              domain.LoanStatusPending,
		RepaymentSchedule:   schedule,
		TotalPaid:           decimal.Zero,
		OverdueAmount:       decimal.Zero,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	loan.RemainingAmount = loan.ScheduleTotal()
	return loan, nil
}

// ApplyPayment validates the loan state, allocates the payment across
// the schedule and projects the resulting ledger update. A payment
// against an Approved loan implicitly activates it. When the remaining
// balance reaches zero the loan completes in the same call.
func (e *Engine) ApplyPayment(loan *domain.Loan, cmd domain.PaymentCommand, now time.Time) (*domain.LedgerUpdateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if !payable(loan.Status) {
		return nil, &domain.InvalidLoanStateError{
			LoanID: loan.ID,
			Status: loan.Status,
			Action: "apply payment",
		}
	}
	if len(loan.RepaymentSchedule) == 0 {
		return nil, domain.ErrLoanScheduleEmpty
	}
	if cmd.Total().GreaterThan(loan.RemainingAmount) {
		return nil, &domain.InsufficientPaymentError{
			LoanID:    loan.ID,
			Attempted: cmd.Total(),
			Remaining: loan.RemainingAmount,
		}
	}

	updated := loan.Clone()
	if updated.Status == domain.LoanStatusApproved {
		updated.Status = domain.LoanStatusActive
	}

	alloc, err := Allocate(updated.RepaymentSchedule, cmd, e.cfg, now)
	if err != nil {
		return nil, err
	}
	if alloc.Unallocated.GreaterThan(decimal.Zero) && !e.cfg.CarryUnallocatedForward {
		return nil, &domain.UnallocatedRemainderError{
			LoanID:      loan.ID,
			Unallocated: alloc.Unallocated,
		}
	}

	result := project(loan, updated, alloc, cmd, e.cfg, now)
	return &result, nil
}

// Approve moves a Pending loan to Approved.
func (e *Engine) Approve(loan *domain.Loan, now time.Time) (*domain.LedgerUpdateResult, error) {
	return e.adminTransition(loan, domain.LoanStatusApproved, domain.AuditActionApprove, domain.NotificationLoanApproved, now)
}

// Reject moves a Pending loan to Rejected. Rejected is terminal.
func (e *Engine) Reject(loan *domain.Loan, now time.Time) (*domain.LedgerUpdateResult, error) {
	return e.adminTransition(loan, domain.LoanStatusRejected, domain.AuditActionReject, domain.NotificationLoanRejected, now)
}

// Disburse moves an Approved loan to Active and stamps DisbursedAt.
func (e *Engine) Disburse(loan *domain.Loan, now time.Time) (*domain.LedgerUpdateResult, error) {
	result, err := e.adminTransition(loan, domain.LoanStatusActive, domain.AuditActionDisburse, domain.NotificationLoanDisbursed, now)
	if err != nil {
		return nil, err
	}
	result.Loan.DisbursedAt = &now
	return result, nil
}

// MarkDefaulted moves an Active loan to Defaulted. The overdue-days
// policy that decides when to default lives with the operator, not here.
func (e *Engine) MarkDefaulted(loan *domain.Loan, now time.Time) (*domain.LedgerUpdateResult, error) {
	return e.adminTransition(loan, domain.LoanStatusDefaulted, domain.AuditActionDefault, domain.NotificationLoanDefaulted, now)
}

func (e *Engine) adminTransition(loan *domain.Loan, to domain.LoanStatus, action string, kind domain.NotificationKind, now time.Time) (*domain.LedgerUpdateResult, error) {
	updated := loan.Clone()
	if err := transition(updated, to, action); err != nil {
		return nil, err
	}
	updated.UpdatedAt = now

	entry := newAuditEntry(loan, updated, action, now)
	return &domain.LedgerUpdateResult{
		Loan:       updated,
		AuditEntry: entry,
		Notifications: []domain.NotificationRequest{
			{
				Kind:       kind,
				LoanID:     updated.ID,
				BorrowerID: updated.BorrowerID,
				Amount:     updated.Principal,
				Remaining:  updated.RemainingAmount,
			},
		},
	}, nil
}

// ChangeRate regenerates the repayment schedule at a new interest rate.
// It is destructive: paid history and accumulators reset, so it is only
// permitted before disbursement and before any payment, and the caller
// must pass confirmed=true after surfacing the consequences.
func (e *Engine) ChangeRate(loan *domain.Loan, newRate decimal.Decimal, confirmed bool, now time.Time) (*domain.LedgerUpdateResult, error) {
	if newRate.IsNegative() {
		return nil, domain.ErrLoanRateInvalid
	}
	if !rateChangeable(loan) {
		return nil, &domain.InvalidLoanStateError{
			LoanID: loan.ID,
			Status: loan.Status,
			Action: "change interest rate",
		}
	}
	if !confirmed {
		return nil, &domain.ScheduleRegenerationRequiredError{
			LoanID:      loan.ID,
			CurrentRate: loan.InterestRatePercent,
			NewRate:     newRate,
		}
	}

	schedule, err := ComputeSchedule(loan.Principal, newRate, loan.TenureMonths, loan.Currency, loan.StartDate, e.cfg.DueDateMode)
	if err != nil {
		return nil, err
	}

	updated := loan.Clone()
	oldRate := updated.InterestRatePercent
	updated.InterestRatePercent = newRate
	updated.RepaymentSchedule = schedule
	updated.TotalPaid = decimal.Zero
	updated.OverdueAmount = decimal.Zero
	updated.RemainingAmount = updated.ScheduleTotal()
	updated.LastPaymentDate = nil
	updated.UpdatedAt = now

	entry := newAuditEntry(loan, updated, domain.AuditActionRateChange, now)
	return &domain.LedgerUpdateResult{
		Loan:       updated,
		AuditEntry: entry,
		Notifications: []domain.NotificationRequest{
			{
				Kind:       domain.NotificationRateChanged,
				LoanID:     updated.ID,
				BorrowerID: updated.BorrowerID,
				Amount:     updated.RemainingAmount,
				Remaining:  updated.RemainingAmount,
				Payload: map[string]interface{}{
					"oldRate": oldRate.String(),
					"newRate": newRate.String(),
				},
			},
		},
	}, nil
}

// MarkOverdue flags Pending installments whose due date has passed and
// recomputes the overdue accumulator from the flagged installments.
// It returns the updated clone and whether anything changed. Overdue
// flagging is bookkeeping, not a ledger operation: no audit entry or
// notification is produced here.
func (e *Engine) MarkOverdue(loan *domain.Loan, asOf time.Time) (*domain.Loan, bool) {
	if loan.Status != domain.LoanStatusActive {
		return loan.Clone(), false
	}

	updated := loan.Clone()
	changed := false
	overdue := decimal.Zero
	for i := range updated.RepaymentSchedule {
		inst := &updated.RepaymentSchedule[i]
		if inst.Status == domain.InstallmentStatusPending && inst.DueDate.Before(asOf) {
			inst.Status = domain.InstallmentStatusOverdue
			changed = true
		}
		if inst.Status == domain.InstallmentStatusOverdue {
			overdue = overdue.Add(inst.Outstanding())
		}
	}
	if !overdue.Equal(updated.OverdueAmount) {
		updated.OverdueAmount = overdue
		changed = true
	}
	if changed {
		updated.UpdatedAt = asOf
	}
	return updated, changed
}
