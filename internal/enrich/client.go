package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/internal/faulttolerance"
	"tradeflow/pkg/exception"
)

const defaultTimeout = 2 * time.Second

type ClientConfig struct {
	Pair    string
	Timeout time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration
}

// Client performs asynchronous rate lookups against a RateSource.
type Client struct {
	source  RateSource
	breaker *faulttolerance.CircuitBreaker
	pair    string
	timeout time.Duration
}

func NewClient(source RateSource, cfg ClientConfig) *Client {
	if cfg.Pair == "" {
		cfg.Pair = DefaultPair
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		source: source,
		breaker: faulttolerance.NewCircuitBreaker(faulttolerance.BreakerConfig{
			Name:        "enrich",
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
			Ignore: func(err error) bool {
				return errors.Is(err, context.Canceled)
			},
		}),
		pair:    cfg.Pair,
		timeout: cfg.Timeout,
	}
}

// Pair returns the configured currency pair.
func (c *Client) Pair() string {
	return c.pair
}

// Future is the pending result of a rate lookup.
type Future struct {
	done chan struct{}
	rate decimal.Decimal
	err  error
}

// Await blocks the calling goroutine until the lookup finishes or ctx is done.
func (f *Future) Await(ctx context.Context) (decimal.Decimal, error) {
	select {
	case <-f.done:
		return f.rate, f.err
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
}

// FetchRate starts a lookup for pair and returns immediately.
func (c *Client) FetchRate(ctx context.Context, pair string) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.err = c.breaker.Execute(ctx, func(ctx context.Context) error {
			rate, err := c.source.Rate(ctx, pair)
			if err != nil {
				return err
			}
			f.rate = rate
			return nil
		})
	}()
	return f
}

// Rate looks up the configured pair and waits at most the configured timeout.
// Every failure matches exception.ErrEnrichment.
func (c *Client) Rate(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rate, err := c.FetchRate(ctx, c.pair).Await(ctx)
	switch {
	case err == nil:
		return rate, nil
	case errors.Is(err, context.DeadlineExceeded):
		return decimal.Zero, exception.Classify(exception.ErrEnrichment, exception.ErrEnrichmentTimeout)
	default:
		return decimal.Zero, exception.Classify(exception.ErrEnrichment, err)
	}
}
