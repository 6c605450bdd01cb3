package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/clock"
	"tradeflow/internal/events"
	"tradeflow/internal/faulttolerance"
	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/obs"
	"tradeflow/internal/store"
	"tradeflow/internal/store/memory"
	"tradeflow/pkg/exception"
)

var testNow = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

type fixedRate struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRate) Rate(context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

// panicOnce panics on its first lookup and returns rate afterwards.
type panicOnce struct {
	rate  decimal.Decimal
	calls atomic.Int32
}

func (p *panicOnce) Rate(context.Context) (decimal.Decimal, error) {
	if p.calls.Add(1) == 1 {
		panic("rate feed exploded")
	}
	return p.rate, nil
}

// flakyStore fails the first n saves with a persistence error.
type flakyStore struct {
	store.TradeStore

	mu    sync.Mutex
	fails int
	calls int
}

func (s *flakyStore) Save(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	s.mu.Lock()
	s.calls++
	fail := s.fails > 0
	if fail {
		s.fails--
	}
	s.mu.Unlock()
	if fail {
		return nil, exception.Classify(exception.ErrPersistence, errors.New("connection reset"))
	}
	return s.TradeStore.Save(ctx, t)
}

type harness struct {
	store     store.TradeStore
	events    *events.MemoryPublisher
	metrics   *obs.Metrics
	processor *Processor
}

func newHarness(t *testing.T, ts store.TradeStore, rates RateProvider) *harness {
	t.Helper()
	if ts == nil {
		ts = memory.NewTradeStore(clock.NewManual(testNow))
	}
	h := &harness{
		store:   ts,
		events:  &events.MemoryPublisher{},
		metrics: obs.NewMetrics(testNow),
	}
	h.processor = NewProcessor(ProcessorConfig{
		Store:   ts,
		Rates:   rates,
		Clock:   clock.NewManual(testNow),
		Metrics: h.metrics,
		Events:  h.events,
		Retry: faulttolerance.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
		},
	})
	return h
}

// queued stores a new QUEUED trade the way submission does.
func (h *harness) queued(t *testing.T, instrument, side string, qty, price string) *model.Trade {
	t.Helper()
	tr := &model.Trade{
		TradeDate:  testNow,
		Instrument: instrument,
		Side:       side,
		Price:      decimal.RequireFromString(price),
		Currency:   "USD",
		Status:     enum.StatusQueued,
		CreatedAt:  testNow,
	}
	if qty != "" {
		tr.Quantity = decimal.NewNullDecimal(decimal.RequireFromString(qty))
	}
	saved, err := h.store.Save(t.Context(), tr)
	require.NoError(t, err)
	return saved
}

func statuses(history []model.StatusChange) []enum.Status {
	out := make([]enum.Status, 0, len(history))
	for _, h := range history {
		out = append(out, h.Status)
	}
	return out
}
