package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"tradeflow/internal/bus"
	"tradeflow/internal/model"
	"tradeflow/internal/obs"
	"tradeflow/pkg/exception"
)

const (
	DefaultWorkers    = 5
	DefaultMaxWorkers = 10
)

var ErrPoolRunning = errors.New("pipeline: pool already running")

type PoolConfig struct {
	Workers    int
	MaxWorkers int
}

// Pool is a fixed set of long-lived workers draining a TradeChannel.
type Pool struct {
	workers   int
	channel   *bus.TradeChannel
	processor *Processor
	metrics   *obs.Metrics

	running atomic.Bool
	active  atomic.Int32
}

func NewPool(cfg PoolConfig, channel *bus.TradeChannel, processor *Processor, metrics *obs.Metrics) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Workers > cfg.MaxWorkers {
		logs.Warnf("pipeline: workers=%d exceeds max=%d, capped", cfg.Workers, cfg.MaxWorkers)
		cfg.Workers = cfg.MaxWorkers
	}
	return &Pool{
		workers:   cfg.Workers,
		channel:   channel,
		processor: processor,
		metrics:   metrics,
	}
}

// Workers returns the number of workers Run starts.
func (p *Pool) Workers() int {
	return p.workers
}

// Active returns the number of workers currently looping.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Run blocks until every worker has exited. Workers stop when the channel is
// closed or ctx is cancelled; neither is reported as an error.
func (p *Pool) Run(ctx context.Context) error {
	if p.running.Swap(true) {
		return ErrPoolRunning
	}
	defer p.running.Store(false)

	eg, ctx := errgroup.WithContext(ctx)
	for id := range p.workers {
		eg.Go(func() error {
			return p.work(ctx, id)
		})
	}
	logs.Infof("pipeline: %d workers started", p.workers)
	err := eg.Wait()
	logs.Infof("pipeline: workers stopped")
	return err
}

func (p *Pool) work(ctx context.Context, id int) error {
	p.active.Add(1)
	defer p.active.Add(-1)

	for {
		t, err := p.channel.Consume(ctx)
		if err != nil {
			if errors.Is(err, exception.ErrQueueClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		// The trade in hand is finished even when shutdown starts meanwhile.
		p.handle(context.WithoutCancel(ctx), id, t)
	}
}

func (p *Pool) handle(ctx context.Context, id int, t *model.Trade) {
	var out Outcome
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("%w: %v", exception.ErrWorkerPanic, r)
			logs.Errorf("pipeline: worker=%d recovered trade=%s, err: %+v", id, t.ID, cause)
			out = p.safeAbort(ctx, t, cause)
		}
		p.metrics.ObserveTrade(out.Status, out.Reason, out.Latency)
	}()

	out = p.processor.Process(ctx, t)
}

func (p *Pool) safeAbort(ctx context.Context, t *model.Trade, cause error) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("pipeline: abort trade=%s panicked, err: %v", t.ID, r)
			out = Outcome{Status: t.Status, Reason: obs.FailurePanic, Err: cause}
		}
	}()
	return p.processor.Abort(ctx, t, cause)
}
