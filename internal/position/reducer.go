package position

import (
	"github.com/shopspring/decimal"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
)

// Net is the running net exposure of one instrument.
type Net struct {
	Quantity    decimal.Decimal
	NotionalUSD decimal.Decimal
	Trades      int
}

// Reducer folds trades into net quantities per instrument.
// BUY adds, SELL subtracts; trades with any other side are ignored.
type Reducer struct {
	positions map[string]Net
}

func NewReducer() *Reducer {
	return &Reducer{positions: make(map[string]Net)}
}

// Apply merges one trade and returns the instrument's new net.
func (r *Reducer) Apply(t model.Trade) Net {
	current := r.positions[t.Instrument]
	side, ok := enum.ParseSide(t.Side)
	if !ok || !t.Quantity.Valid {
		return current
	}
	sign := decimal.NewFromInt(side.Sign())

	current.Quantity = current.Quantity.Add(t.Quantity.Decimal.Mul(sign))
	if t.NotionalUSD.Valid {
		current.NotionalUSD = current.NotionalUSD.Add(t.NotionalUSD.Decimal.Mul(sign))
	}
	current.Trades++
	r.positions[t.Instrument] = current
	return current
}

// Position returns the current net for an instrument.
func (r *Reducer) Position(instrument string) Net {
	return r.positions[instrument]
}

// Count returns the number of tracked instruments.
func (r *Reducer) Count() int {
	return len(r.positions)
}
