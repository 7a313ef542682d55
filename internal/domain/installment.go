package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInstallmentNumberInvalid = errors.New("installment number must be at least 1")
	ErrInstallmentAmountInvalid = errors.New("installment amount must be positive")
	ErrInstallmentSplitInvalid  = errors.New("installment amount must equal principal plus interest portions")
)

// InstallmentStatus is the payment state of a single installment.
// Paid is final: no operation moves an installment back out of it.
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
	InstallmentStatusPartial InstallmentStatus = "partial"
)

// Payable reports whether the installment can still receive funds.
func (s InstallmentStatus) Payable() bool {
	return s == InstallmentStatusPending || s == InstallmentStatusOverdue || s == InstallmentStatusPartial
}

// Installment is one entry of a loan's repayment schedule. It has no
// lifecycle of its own: it is created, updated and deleted with its loan.
type Installment struct {
	Number           int               `json:"number"`
	DueDate          time.Time         `json:"dueDate"`
	Amount           decimal.Decimal   `json:"amount"`
	PrincipalPortion decimal.Decimal   `json:"principalPortion"`
	InterestPortion  decimal.Decimal   `json:"interestPortion"`
	Status           InstallmentStatus `json:"status"`
	PaidAmount       decimal.Decimal   `json:"paidAmount"`
	PaidAt           *time.Time        `json:"paidAt,omitempty"`
	PaymentReference string            `json:"paymentReference,omitempty"`
}

func (i *Installment) Validate() error {
	if i.Number < 1 {
		return ErrInstallmentNumberInvalid
	}
	if i.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInstallmentAmountInvalid
	}
	if !i.PrincipalPortion.Add(i.InterestPortion).Equal(i.Amount) {
		return ErrInstallmentSplitInvalid
	}
	return nil
}

// Outstanding returns the amount still owed on this installment.
func (i *Installment) Outstanding() decimal.Decimal {
	if i.Status == InstallmentStatusPaid {
		return decimal.Zero
	}
	return i.Amount.Sub(i.PaidAmount)
}
