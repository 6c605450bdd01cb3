package faulttolerance

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"tradeflow/pkg/exception"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// Cooldown is how long the breaker stays open before letting a probe through.
	Cooldown time.Duration
	// SuccessThreshold consecutive probe successes close it again.
	SuccessThreshold int
	// Ignore marks errors that must not count as failures, e.g. caller cancellation.
	Ignore func(err error) bool
	Now    func() time.Time
}

// CircuitBreaker fails fast with exception.ErrCircuitOpen while a dependency keeps failing.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	// probing is set while the single half-open trial call is in flight.
	probing bool
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Second
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Name == "" {
		cfg.Name = "breaker"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute runs fn unless the breaker is open. While half open only one call
// at a time is let through; the rest fail fast as if the breaker were open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	allowed, probe := cb.allow()
	if !allowed {
		return exception.ErrCircuitOpen
	}
	err := fn(ctx)
	cb.record(err, probe)
	return err
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() (allowed, probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if cb.cfg.Now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return false, false
		}
		cb.state = BreakerHalfOpen
		cb.successes = 0
		cb.probing = true
		logs.Infof("[%s] circuit breaker half open", cb.cfg.Name)
		return true, true
	case BreakerHalfOpen:
		if cb.probing {
			return false, false
		}
		cb.probing = true
		return true, true
	default:
		return true, false
	}
}

func (cb *CircuitBreaker) record(err error, probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probing = false
	}
	if err != nil && cb.cfg.Ignore != nil && cb.cfg.Ignore(err) {
		return
	}

	if err != nil {
		cb.failures++
		cb.successes = 0
		switch cb.state {
		case BreakerClosed:
			if cb.failures >= cb.cfg.MaxFailures {
				cb.open()
				logs.Warnf("[%s] circuit breaker opened after %d failures, err: %+v", cb.cfg.Name, cb.failures, err)
			}
		case BreakerHalfOpen:
			cb.open()
			logs.Warnf("[%s] circuit breaker reopened, err: %+v", cb.cfg.Name, err)
		}
		return
	}

	cb.failures = 0
	if cb.state == BreakerHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = BreakerClosed
			logs.Infof("[%s] circuit breaker closed", cb.cfg.Name)
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = BreakerOpen
	cb.openedAt = cb.cfg.Now()
}
