package generator

import (
	"context"
	"errors"
	"time"

	"github.com/yanun0323/logs"
	"golang.org/x/time/rate"

	"tradeflow/internal/clock"
	"tradeflow/internal/model"
	"tradeflow/pkg/exception"
)

const (
	defaultInterval     = 5 * time.Second
	defaultInitialDelay = 100 * time.Millisecond
)

// Submitter accepts trades into the pipeline.
type Submitter interface {
	Submit(ctx context.Context, t *model.Trade) (*model.Trade, error)
}

type ProducerConfig struct {
	Interval     time.Duration
	InitialDelay time.Duration
	// Limit stops the producer after this many trades. Zero means unlimited.
	Limit int
	Clock clock.Clock
}

// Producer feeds generated trades to a Submitter at a fixed pace. A full
// channel blocks Submit, which stalls the producer.
type Producer struct {
	gen    *Generator
	target Submitter
	cfg    ProducerConfig
}

func NewProducer(gen *Generator, target Submitter, cfg ProducerConfig) *Producer {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	return &Producer{gen: gen, target: target, cfg: cfg}
}

// Run submits trades until ctx is done, the limit is reached or the
// pipeline closes. It returns the number of trades submitted.
func (p *Producer) Run(ctx context.Context) (int, error) {
	if p.cfg.InitialDelay > 0 {
		timer := time.NewTimer(p.cfg.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, nil
		case <-timer.C:
		}
	}

	limiter := rate.NewLimiter(rate.Every(p.cfg.Interval), 1)
	sent := 0
	for p.cfg.Limit == 0 || sent < p.cfg.Limit {
		if err := limiter.Wait(ctx); err != nil {
			return sent, nil
		}

		t := p.gen.Next(p.cfg.Clock.Now())
		saved, err := p.target.Submit(ctx, t)
		switch {
		case err == nil:
			sent++
			logs.Debugf("producer: submitted trade=%s instrument=%s side=%s", saved.ID, saved.Instrument, saved.Side)
		case ctx.Err() != nil, errors.Is(err, exception.ErrQueueClosed):
			return sent, nil
		default:
			logs.Errorf("producer: submit, err: %+v", err)
		}
	}
	logs.Infof("producer: limit reached, sent=%d", sent)
	return sent, nil
}
