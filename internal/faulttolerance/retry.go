package faulttolerance

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// RetryConfig controls bounded exponential backoff.
type RetryConfig struct {
	Name        string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	JitterRange float64

	// Retryable decides whether err deserves another attempt. Nil retries everything.
	Retryable func(err error) bool
}

// Retryer runs an operation until it succeeds or the attempts run out.
type Retryer struct {
	cfg RetryConfig
}

func NewRetryer(cfg RetryConfig) *Retryer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 50 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2
	}
	if cfg.JitterRange < 0 || cfg.JitterRange > 1 {
		cfg.JitterRange = 0.1
	}
	if cfg.Name == "" {
		cfg.Name = "retry"
	}
	return &Retryer{cfg: cfg}
}

// Execute calls fn up to MaxAttempts times. The last error is returned wrapped
// when every attempt fails; a non-retryable error is returned as is.
func (r *Retryer) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logs.Infof("[%s] succeeded on attempt %d", r.cfg.Name, attempt)
			}
			return nil
		}
		lastErr = err

		if r.cfg.Retryable != nil && !r.cfg.Retryable(err) {
			return err
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		logs.Warnf("[%s] attempt %d failed, retry in %s, err: %+v", r.cfg.Name, attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return errors.Wrapf(lastErr, "[%s] %d attempts exhausted", r.cfg.Name, r.cfg.MaxAttempts)
}

func (r *Retryer) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Multiplier, float64(attempt-1))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.JitterRange > 0 {
		jitter := rand.Float64() * r.cfg.JitterRange * d
		if rand.IntN(2) == 0 {
			d -= jitter
		} else {
			d += jitter
		}
	}
	if d < float64(r.cfg.BaseDelay) {
		d = float64(r.cfg.BaseDelay)
	}
	return time.Duration(d)
}
