package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tradeflow/internal/model"
	"tradeflow/pkg/exception"
)

func TestValidate(t *testing.T) {
	qty := func(v int64) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	}

	testCases := []struct {
		desc     string
		trade    model.Trade
		expected error
		side     string
	}{
		{"zero quantity", model.Trade{Quantity: qty(0), Side: "BUY"}, exception.ErrInvalidQuantity, ""},
		{"negative quantity", model.Trade{Quantity: qty(-5), Side: "BUY"}, exception.ErrInvalidQuantity, ""},
		{"missing quantity", model.Trade{Side: "BUY"}, exception.ErrInvalidQuantity, ""},
		{"lower case buy", model.Trade{Quantity: qty(1), Side: "buy"}, nil, "BUY"},
		{"mixed case sell", model.Trade{Quantity: qty(3), Side: "Sell"}, nil, "SELL"},
		{"unknown side", model.Trade{Quantity: qty(1), Side: "HOLD"}, exception.ErrInvalidSide, ""},
		{"empty side", model.Trade{Quantity: qty(1)}, exception.ErrInvalidSide, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			tr := tc.trade
			err := Validate(&tr)
			if tc.expected == nil {
				assert.NoError(t, err)
				assert.Equal(t, tc.side, tr.Side)
				return
			}
			assert.ErrorIs(t, err, tc.expected)
			assert.ErrorIs(t, err, exception.ErrValidation)
		})
	}
}
