package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentAmountInvalid      = errors.New("payment amount must be positive")
	ErrPaymentPenaltyInvalid     = errors.New("penalty amount must not be negative")
	ErrPaymentReferenceRequired  = errors.New("payment reference is required")
	ErrDuplicatePaymentReference = errors.New("payment reference already used")
)

// PaymentCommand is the transient input for a repayment. It is never
// persisted directly; the reference token is the caller's idempotency
// handle and ends up on the paid installments and the audit entry.
type PaymentCommand struct {
	Amount             decimal.Decimal `json:"amount"`
	PenaltyAmount      decimal.Decimal `json:"penaltyAmount"`
	TargetInstallments []int           `json:"targetInstallments,omitempty"`
	PaymentReference   string          `json:"paymentReference"`
}

func (c *PaymentCommand) Validate() error {
	if c.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentAmountInvalid
	}
	if c.PenaltyAmount.IsNegative() {
		return ErrPaymentPenaltyInvalid
	}
	if c.PaymentReference == "" {
		return ErrPaymentReferenceRequired
	}
	return nil
}

// Total is the gross amount the borrower hands over: schedule funds
// plus penalty settlement.
func (c *PaymentCommand) Total() decimal.Decimal {
	return c.Amount.Add(c.PenaltyAmount)
}

// AuditEntry is an immutable record of one logical ledger operation.
// Exactly one entry is written per operation, never one per installment.
type AuditEntry struct {
	ID                 uuid.UUID       `json:"id"`
	LoanID             uuid.UUID       `json:"loanId"`
	Action             string          `json:"action"`
	TotalPaidBefore    decimal.Decimal `json:"totalPaidBefore"`
	TotalPaidAfter     decimal.Decimal `json:"totalPaidAfter"`
	RemainingBefore    decimal.Decimal `json:"remainingBefore"`
	RemainingAfter     decimal.Decimal `json:"remainingAfter"`
	OverdueBefore      decimal.Decimal `json:"overdueBefore"`
	OverdueAfter       decimal.Decimal `json:"overdueAfter"`
	InstallmentsPaid   []int           `json:"installmentsPaid,omitempty"`
	StatusBefore       LoanStatus      `json:"statusBefore"`
	StatusAfter        LoanStatus      `json:"statusAfter"`
	PaymentReference   string          `json:"paymentReference,omitempty"`
	RecordedAt         time.Time       `json:"recordedAt"`
}

// Audit actions.
const (
	AuditActionPayment      = "payment"
	AuditActionApprove      = "approve"
	AuditActionReject       = "reject"
	AuditActionDisburse     = "disburse"
	AuditActionDefault      = "default"
	AuditActionRateChange   = "rate_change"
	AuditActionOverdueSweep = "overdue_sweep"
)

// LedgerUpdateResult is the complete instruction set an operation
// produces. The caller persists Loan and AuditEntry atomically, then
// hands Notifications to the dispatcher; nothing here depends on
// whether dispatch eventually succeeds.
type LedgerUpdateResult struct {
	Loan          *Loan
	AuditEntry    AuditEntry
	Notifications []NotificationRequest
}

// LoanRepository is the persistence collaborator for loan aggregates.
type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	GetByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*Loan, error)
	ListByStatus(ctx context.Context, status LoanStatus) ([]*Loan, error)
	// UpdateLedger persists the loan, its schedule and the audit entry in
	// one transaction, compare-and-swapping on loan.Version. Returns
	// ErrVersionConflict when another writer got there first.
	UpdateLedger(ctx context.Context, loan *Loan, entry *AuditEntry) error
}

// AuditRepository reads the append-only audit log. Entries are written
// by LoanRepository.UpdateLedger inside the loan's transaction, never
// on their own.
type AuditRepository interface {
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*AuditEntry, error)
}

// PaymentReferenceStore deduplicates payment references. Claim returns
// false when the reference was already claimed; Release undoes a claim
// after a failed ledger write so the caller can retry with the same
// reference.
type PaymentReferenceStore interface {
	Claim(ctx context.Context, loanID uuid.UUID, reference string) (bool, error)
	Release(ctx context.Context, loanID uuid.UUID, reference string) error
}
