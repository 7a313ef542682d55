package ledger

import "github.com/shopspring/decimal"

// DueDateMode controls how installment due dates advance.
type DueDateMode string

const (
	// DueDateCalendarMonth advances due dates by true calendar months.
	DueDateCalendarMonth DueDateMode = "calendar_month"
	// DueDateFixedThirtyDays advances due dates by fixed 30-day steps.
	DueDateFixedThirtyDays DueDateMode = "fixed_30_days"
)

func (m DueDateMode) Valid() bool {
	return m == DueDateCalendarMonth || m == DueDateFixedThirtyDays
}

// Config carries the policy knobs the engine would otherwise have to
// hardcode. The caller sources it once (from its own configuration) and
// passes it at engine construction.
type Config struct {
	// LargePaymentThreshold triggers a LargePaymentAlert notification for
	// payments strictly above it. Zero disables the alert.
	LargePaymentThreshold decimal.Decimal

	// AllowPartialTargeted permits a payment to partially fill an
	// explicitly targeted installment instead of rejecting it.
	AllowPartialTargeted bool

	// CarryUnallocatedForward absorbs leftover funds into RemainingAmount
	// instead of failing the operation with UnallocatedRemainderError.
	CarryUnallocatedForward bool

	// DueDateMode selects the due-date arithmetic for generated schedules.
	DueDateMode DueDateMode
}

// DefaultConfig is the strict policy set: no partial targeted payments,
// unallocated remainders rejected, calendar-month due dates.
func DefaultConfig() Config {
	return Config{
		LargePaymentThreshold:   decimal.Zero,
		AllowPartialTargeted:    false,
		CarryUnallocatedForward: false,
		DueDateMode:             DueDateCalendarMonth,
	}
}
