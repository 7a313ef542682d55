package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvalidLoanStateError is returned when an operation is attempted
// against a loan whose status does not permit it.
type InvalidLoanStateError struct {
	LoanID uuid.UUID
	Status LoanStatus
	Action string
}

func (e *InvalidLoanStateError) Error() string {
	return fmt.Sprintf("loan %s: cannot %s while %s", e.LoanID, e.Action, e.Status)
}

// InsufficientPaymentError is returned when a payment exceeds what the
// loan still owes. The guard runs before allocation: no mutation occurs.
type InsufficientPaymentError struct {
	LoanID    uuid.UUID
	Attempted decimal.Decimal
	Remaining decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("loan %s: payment %s exceeds remaining balance %s",
		e.LoanID, e.Attempted.String(), e.Remaining.String())
}

// UnallocatedRemainderError is returned when funds are left over after
// the allocator walked the schedule and the ledger is configured to
// reject rather than carry credit forward.
type UnallocatedRemainderError struct {
	LoanID      uuid.UUID
	Unallocated decimal.Decimal
}

func (e *UnallocatedRemainderError) Error() string {
	return fmt.Sprintf("loan %s: %s could not be allocated to any installment",
		e.LoanID, e.Unallocated.String())
}

// ScheduleRegenerationRequiredError is returned when a rate change would
// discard the existing schedule and the caller has not confirmed it.
type ScheduleRegenerationRequiredError struct {
	LoanID      uuid.UUID
	CurrentRate decimal.Decimal
	NewRate     decimal.Decimal
}

func (e *ScheduleRegenerationRequiredError) Error() string {
	return fmt.Sprintf("loan %s: changing rate %s%% -> %s%% regenerates the schedule and resets paid history; confirmation required",
		e.LoanID, e.CurrentRate.String(), e.NewRate.String())
}
