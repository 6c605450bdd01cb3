package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"tradeflow/internal/clock"
	"tradeflow/internal/events"
	"tradeflow/internal/faulttolerance"
	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/obs"
	"tradeflow/internal/store"
	"tradeflow/pkg/exception"
)

// RateProvider supplies the FX rate used to price a trade.
type RateProvider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// Outcome describes how processing of a single trade ended.
type Outcome struct {
	Status  enum.Status
	Reason  obs.FailureReason
	Err     error
	Latency time.Duration
}

type ProcessorConfig struct {
	Store   store.TradeStore
	Rates   RateProvider
	Clock   clock.Clock
	Metrics *obs.Metrics
	Events  events.Publisher
	Retry   faulttolerance.RetryConfig
}

// Processor runs one trade through validate, enrich, price and persist.
type Processor struct {
	store   store.TradeStore
	rates   RateProvider
	clock   clock.Clock
	metrics *obs.Metrics
	events  events.Publisher
	retry   *faulttolerance.Retryer
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Events == nil {
		cfg.Events = events.LogPublisher{}
	}
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = "persist"
	}
	cfg.Retry.Retryable = func(err error) bool {
		return errors.Is(err, exception.ErrPersistence)
	}
	return &Processor{
		store:   cfg.Store,
		rates:   cfg.Rates,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
		events:  cfg.Events,
		retry:   faulttolerance.NewRetryer(cfg.Retry),
	}
}

// Process drives t to a terminal status. The caller must own t exclusively.
func (p *Processor) Process(ctx context.Context, t *model.Trade) Outcome {
	began := time.Now()

	if err := Advance(t, enum.StatusProcessing, p.clock.Now()); err != nil {
		logs.Warnf("pipeline: skip trade=%s, err: %+v", t.ID, err)
		return Outcome{Status: t.Status, Err: err, Latency: time.Since(began)}
	}
	if err := p.persist(ctx, t); err != nil {
		return p.abandon(t, err, began)
	}

	if err := Validate(t); err != nil {
		return p.fail(ctx, t, obs.FailureValidation, err, began)
	}

	enrichStart := time.Now()
	rate, err := p.rates.Rate(ctx)
	p.metrics.ObserveEnrichment(time.Since(enrichStart))
	if err != nil {
		return p.fail(ctx, t, obs.FailureEnrichment, err, began)
	}

	t.FxRate = decimal.NewNullDecimal(rate)
	t.NotionalUSD = decimal.NewNullDecimal(Notional(t.Quantity.Decimal, t.Price, rate))
	if err := Advance(t, enum.StatusDone, p.clock.Now()); err != nil {
		return p.abandon(t, err, began)
	}
	if err := p.persist(ctx, t); err != nil {
		return p.abandon(t, err, began)
	}

	p.publish(ctx, t)
	return Outcome{Status: enum.StatusDone, Latency: time.Since(began)}
}

// Abort marks t FAILED after an unexpected error such as a worker panic.
func (p *Processor) Abort(ctx context.Context, t *model.Trade, cause error) Outcome {
	began := time.Now()
	if t.Status == enum.StatusQueued {
		_ = Advance(t, enum.StatusProcessing, p.clock.Now())
	}
	if t.Status.IsTerminal() {
		return Outcome{Status: t.Status, Reason: obs.FailurePanic, Err: cause}
	}
	return p.fail(ctx, t, obs.FailurePanic, cause, began)
}

func (p *Processor) fail(ctx context.Context, t *model.Trade, reason obs.FailureReason, cause error, began time.Time) Outcome {
	t.FailureReason = cause.Error()
	t.NotionalUSD = decimal.NullDecimal{}
	if err := Advance(t, enum.StatusFailed, p.clock.Now()); err != nil {
		return p.abandon(t, err, began)
	}
	if err := p.persist(ctx, t); err != nil {
		return p.abandon(t, err, began)
	}

	logs.Warnf("pipeline: trade=%s failed, reason=%s, err: %+v", t.ID, reason, cause)
	p.publish(ctx, t)
	return Outcome{Status: enum.StatusFailed, Reason: reason, Err: cause, Latency: time.Since(began)}
}

// abandon gives up on a trade whose state could not be persisted. The stored
// row keeps its last durable status.
func (p *Processor) abandon(t *model.Trade, err error, began time.Time) Outcome {
	logs.Errorf("pipeline: trade=%s left in last durable state, err: %+v", t.ID, err)
	return Outcome{Status: enum.StatusFailed, Reason: obs.FailurePersistence, Err: err, Latency: time.Since(began)}
}

func (p *Processor) persist(ctx context.Context, t *model.Trade) error {
	return p.retry.Execute(ctx, func(ctx context.Context) error {
		saved, err := p.store.Save(ctx, t)
		if err != nil {
			return err
		}
		t.ID = saved.ID
		t.UpdatedAt = saved.UpdatedAt
		return nil
	})
}

func (p *Processor) publish(ctx context.Context, t *model.Trade) {
	typ, ok := enum.EventTypeFor(t.Status)
	if !ok {
		return
	}
	if err := p.events.Publish(ctx, events.New(typ, t, p.clock.Now())); err != nil {
		logs.Warnf("pipeline: publish event=%s trade=%s, err: %+v", typ, t.ID, err)
	}
}
