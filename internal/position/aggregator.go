package position

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yanun0323/logs"

	"tradeflow/internal/clock"
	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/store"
	"tradeflow/pkg/exception"
)

const defaultInterval = 30 * time.Second

// Scope selects which trades count toward positions.
type Scope string

const (
	// ScopeDone counts DONE trades only.
	ScopeDone Scope = "done"
	// ScopeAll counts every stored trade regardless of status.
	ScopeAll Scope = "all"
)

func ParseScope(s string) (Scope, bool) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeDone, "":
		return ScopeDone, true
	case ScopeAll:
		return ScopeAll, true
	default:
		return "", false
	}
}

func (s Scope) includes(t model.Trade) bool {
	if s == ScopeAll {
		return true
	}
	return t.Status == enum.StatusDone
}

type Config struct {
	Interval time.Duration
	Scope    Scope
	Clock    clock.Clock
}

// Aggregator rebuilds net positions from the trade store on a fixed period.
// It reads whatever is committed at scan time; a trade finishing mid-scan is
// picked up by the next cycle.
type Aggregator struct {
	trades    store.TradeStore
	positions store.PositionStore
	cfg       Config
}

func NewAggregator(trades store.TradeStore, positions store.PositionStore, cfg Config) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeDone
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	return &Aggregator{trades: trades, positions: positions, cfg: cfg}
}

// Aggregate performs one full cycle and returns what it wrote.
func (a *Aggregator) Aggregate(ctx context.Context) (Snapshot, error) {
	trades, err := a.trades.FindAll(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	reducer := NewReducer()
	for _, t := range trades {
		if a.cfg.Scope.includes(t) {
			reducer.Apply(t)
		}
	}

	now := a.cfg.Clock.Now()
	snap := reducer.Snapshot(now)
	for _, e := range snap.Positions {
		if err := a.upsert(ctx, e, now); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

func (a *Aggregator) upsert(ctx context.Context, e Entry, now time.Time) error {
	p, err := a.positions.FindByID(ctx, e.Instrument)
	switch {
	case errors.Is(err, exception.ErrPositionNotFound):
		p = &model.Position{Instrument: e.Instrument}
	case err != nil:
		return err
	}
	p.NetQuantity = e.Quantity
	p.NetNotionalUSD = e.NotionalUSD
	p.TradeCount = e.Trades
	p.LastUpdated = now
	_, err = a.positions.Save(ctx, p)
	return err
}

// Run aggregates every interval until ctx is done. A failed cycle is logged
// and retried on the next tick.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := a.Aggregate(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logs.Errorf("position: aggregate, err: %+v", err)
				continue
			}
			logs.Infof("position: aggregated %d instruments, scope=%s", len(snap.Positions), a.cfg.Scope)
		}
	}
}
