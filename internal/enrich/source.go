package enrich

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultPair is the currency pair looked up for every trade.
const DefaultPair = "EUR/USD"

// RateSource returns an FX rate for a currency pair.
type RateSource interface {
	Rate(ctx context.Context, pair string) (decimal.Decimal, error)
}

// StaticSource always returns the same rate.
type StaticSource struct {
	mu   sync.RWMutex
	rate decimal.Decimal
	err  error
}

func NewStaticSource(rate decimal.Decimal) *StaticSource {
	return &StaticSource{rate: rate}
}

func (s *StaticSource) Rate(ctx context.Context, _ string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

// SetError makes every following lookup fail with err until it is reset with nil.
func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
