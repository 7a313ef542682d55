package domain

import "github.com/shopspring/decimal"

// Currency identifies the monetary unit of a loan. All amounts on a
// loan share one currency; mixing currencies is a caller error.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyBDT Currency = "BDT"
	CurrencyINR Currency = "INR"
	CurrencyJPY Currency = "JPY"
)

// minorUnits maps a currency to its number of decimal places.
var minorUnits = map[Currency]int32{
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencyGBP: 2,
	CurrencyBDT: 2,
	CurrencyINR: 2,
	CurrencyJPY: 0,
}

func (c Currency) Valid() bool {
	_, ok := minorUnits[c]
	return ok
}

// MinorUnits returns the number of decimal places amounts in this
// currency are rounded to.
func (c Currency) MinorUnits() int32 {
	if exp, ok := minorUnits[c]; ok {
		return exp
	}
	return 2
}

// RoundAmount rounds d to the currency's minor unit.
func (c Currency) RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.MinorUnits())
}
