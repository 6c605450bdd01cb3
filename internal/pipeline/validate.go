package pipeline

import (
	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/pkg/exception"
)

// Validate checks quantity and side and rewrites the side in canonical form.
func Validate(t *model.Trade) error {
	if !t.Quantity.Valid || t.Quantity.Decimal.Sign() <= 0 {
		return exception.Classify(exception.ErrValidation, exception.ErrInvalidQuantity)
	}
	side, ok := enum.ParseSide(t.Side)
	if !ok {
		return exception.Classify(exception.ErrValidation, exception.ErrInvalidSide)
	}
	t.Side = side.String()
	return nil
}
