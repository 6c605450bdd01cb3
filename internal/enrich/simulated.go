package enrich

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"tradeflow/pkg/exception"
)

// SimulatedConfig controls the simulated FX source.
type SimulatedConfig struct {
	Seed int64
	// Rates are drawn uniformly from [Min, Max] and rounded to Scale places.
	Min   float64
	Max   float64
	Scale int32
	// FailureRate is the probability of a lookup failing.
	FailureRate float64
	// MaxDelay is the upper bound of the random latency added to each lookup.
	MaxDelay time.Duration
}

func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Min:   1.05,
		Max:   1.15,
		Scale: 4,
	}
}

// Validate ensures the config is within supported ranges.
func (c SimulatedConfig) Validate() error {
	if c.Min <= 0 || c.Max < c.Min {
		return fmt.Errorf("rate range must satisfy 0 < min <= max")
	}
	if c.Scale < 0 {
		return fmt.Errorf("scale must be >= 0")
	}
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("failureRate must be between 0 and 1")
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("maxDelay must be >= 0")
	}
	return nil
}

// SimulatedSource stands in for a real market-data feed.
type SimulatedSource struct {
	cfg SimulatedConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedSource(cfg SimulatedConfig) (*SimulatedSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(exception.ErrInvalidConfig, err.Error())
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &SimulatedSource{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (s *SimulatedSource) Rate(ctx context.Context, pair string) (decimal.Decimal, error) {
	fail, delay, raw := s.draw()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return decimal.Zero, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if fail {
		return decimal.Zero, errors.Wrapf(exception.ErrSourceUnavailable, "pair: %s", pair)
	}
	return decimal.NewFromFloat(raw).Round(s.cfg.Scale), nil
}

func (s *SimulatedSource) draw() (fail bool, delay time.Duration, raw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.FailureRate > 0 {
		fail = s.rng.Float64() < s.cfg.FailureRate
	}
	if s.cfg.MaxDelay > 0 {
		delay = time.Duration(s.rng.Int63n(int64(s.cfg.MaxDelay) + 1))
	}
	raw = s.cfg.Min + s.rng.Float64()*(s.cfg.Max-s.cfg.Min)
	return fail, delay, raw
}
