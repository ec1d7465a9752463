// README: Common money value object used across modules.
package types

import "github.com/shopspring/decimal"

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Whole rounds half away from zero to an integral currency unit.
func (m Money) Whole() int64 {
	return m.Amount.Round(0).IntPart()
}
