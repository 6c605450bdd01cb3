package pipeline

import "github.com/shopspring/decimal"

const notionalScale = 2

// Notional is quantity * price * fxRate rounded half away from zero to cents.
// Validated quantities are positive, so this is round-half-up.
func Notional(quantity, price, fxRate decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price).Mul(fxRate).Round(notionalScale)
}
