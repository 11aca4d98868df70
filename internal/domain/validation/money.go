package validation

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits stored for every amount.
const MoneyScale = 2

// Money records the usual problems with an amount: negative, or finer than
// a cent.
func (e *Error) Money(d decimal.Decimal, field string) {
	e.Check(!d.IsNegative(), field, "must not be negative")
	e.Check(d.Equal(d.Round(MoneyScale)), field, "must have at most 2 decimal places")
}
