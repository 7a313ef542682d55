package ledger

import (
	"time"

	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	one            = decimal.NewFromInt(1)
	monthsDivisor  = decimal.NewFromInt(12)
	percentDivisor = decimal.NewFromInt(100)
)

// ComputeSchedule generates a reducing-balance EMI schedule. It is pure
// and deterministic: identical inputs yield identical schedules, so it
// is safe to call repeatedly, e.g. on an interest-rate change.
//
// EMI = P * r * (1+r)^n / ((1+r)^n - 1) with r the monthly rate.
// A zero rate divides the principal evenly instead. All amounts are
// rounded to the currency's minor unit. Every installment amount equals
// the EMI, the final one included: the accumulated rounding drift is
// absorbed into the final installment's principal/interest split, so
// principal portions sum to the principal exactly and paying the EMI
// each month in order clears the loan.
func ComputeSchedule(principal, ratePercent decimal.Decimal, tenureMonths int, currency domain.Currency, startDate time.Time, mode DueDateMode) ([]domain.Installment, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrLoanPrincipalInvalid
	}
	if ratePercent.IsNegative() {
		return nil, domain.ErrLoanRateInvalid
	}
	if tenureMonths < 1 {
		return nil, domain.ErrLoanTenureInvalid
	}
	if !currency.Valid() {
		return nil, domain.ErrLoanCurrencyInvalid
	}

	if ratePercent.IsZero() {
		return zeroRateSchedule(principal, tenureMonths, currency, startDate, mode), nil
	}

	monthlyRate := ratePercent.Div(percentDivisor).Div(monthsDivisor)
	compound := one.Add(monthlyRate).Pow(decimal.NewFromInt(int64(tenureMonths)))
	emi := currency.RoundAmount(principal.Mul(monthlyRate).Mul(compound).Div(compound.Sub(one)))

	schedule := make([]domain.Installment, 0, tenureMonths)
	remaining := principal
	for k := 1; k <= tenureMonths; k++ {
		interest := currency.RoundAmount(remaining.Mul(monthlyRate))

		principalPortion := emi.Sub(interest)
		amount := emi
		if k == tenureMonths {
			// Final installment clears the exact remaining principal;
			// rounding drift lands in its interest portion so the
			// amount still equals the EMI.
			principalPortion = remaining
			interest = emi.Sub(remaining)
		}
		remaining = remaining.Sub(principalPortion)

		schedule = append(schedule, domain.Installment{
			Number:           k,
			DueDate:          dueDate(startDate, k, mode),
			Amount:           amount,
			PrincipalPortion: principalPortion,
			InterestPortion:  interest,
			Status:           domain.InstallmentStatusPending,
			PaidAmount:       decimal.Zero,
		})
	}
	return schedule, nil
}

func zeroRateSchedule(principal decimal.Decimal, tenureMonths int, currency domain.Currency, startDate time.Time, mode DueDateMode) []domain.Installment {
	months := decimal.NewFromInt(int64(tenureMonths))
	even := currency.RoundAmount(principal.Div(months))

	schedule := make([]domain.Installment, 0, tenureMonths)
	allocated := decimal.Zero
	for k := 1; k <= tenureMonths; k++ {
		portion := even
		if k == tenureMonths {
			portion = principal.Sub(allocated)
		}
		allocated = allocated.Add(portion)

		schedule = append(schedule, domain.Installment{
			Number:           k,
			DueDate:          dueDate(startDate, k, mode),
			Amount:           portion,
			PrincipalPortion: portion,
			InterestPortion:  decimal.Zero,
			Status:           domain.InstallmentStatusPending,
			PaidAmount:       decimal.Zero,
		})
	}
	return schedule
}

func dueDate(startDate time.Time, k int, mode DueDateMode) time.Time {
	if mode == DueDateFixedThirtyDays {
		return startDate.AddDate(0, 0, 30*k)
	}
	return startDate.AddDate(0, k, 0)
}
