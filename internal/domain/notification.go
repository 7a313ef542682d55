package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationKind identifies the borrower-facing message a ledger
// operation asks the dispatcher to deliver.
type NotificationKind string

const (
	NotificationPaymentConfirmed  NotificationKind = "payment_confirmed"
	NotificationLoanCompleted     NotificationKind = "loan_completed"
	NotificationLargePaymentAlert NotificationKind = "large_payment_alert"
	NotificationLoanApproved      NotificationKind = "loan_approved"
	NotificationLoanRejected      NotificationKind = "loan_rejected"
	NotificationLoanDisbursed     NotificationKind = "loan_disbursed"
	NotificationLoanDefaulted     NotificationKind = "loan_defaulted"
	NotificationRateChanged       NotificationKind = "rate_changed"
)

// NotificationRequest asks a delivery collaborator (email, push,
// websocket) to notify the borrower. Delivery and retry policy belong
// to that collaborator; a failed dispatch never touches the ledger.
type NotificationRequest struct {
	Kind       NotificationKind       `json:"kind"`
	LoanID     uuid.UUID              `json:"loanId"`
	BorrowerID uuid.UUID              `json:"borrowerId"`
	Amount     decimal.Decimal        `json:"amount"`
	Remaining  decimal.Decimal        `json:"remaining"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
