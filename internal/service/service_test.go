package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/bus"
	"tradeflow/internal/clock"
	"tradeflow/internal/enrich"
	"tradeflow/internal/events"
	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/obs"
	"tradeflow/internal/pipeline"
	"tradeflow/internal/position"
	"tradeflow/internal/store/memory"
	"tradeflow/pkg/exception"
)

var testNow = time.Date(2024, 6, 3, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	channel   *bus.TradeChannel
	trades    *memory.TradeStore
	positions *memory.PositionStore
	events    *events.MemoryPublisher
}

func newFixture(capacity int) *fixture {
	clk := clock.NewManual(testNow)
	f := &fixture{
		channel:   bus.NewTradeChannel(capacity),
		trades:    memory.NewTradeStore(clk),
		positions: memory.NewPositionStore(),
		events:    &events.MemoryPublisher{},
	}
	f.svc = New(Config{
		Trades:    f.trades,
		Positions: f.positions,
		Channel:   f.channel,
		Events:    f.events,
		Clock:     clk,
	})
	return f
}

func TestSubmitQueuesTrade(t *testing.T) {
	f := newFixture(4)

	saved, err := f.svc.Submit(t.Context(), &model.Trade{
		Instrument: " AAPL ",
		Side:       "buy",
		Quantity:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Price:      decimal.NewFromInt(100),
		Status:     enum.StatusDone,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, enum.StatusQueued, saved.Status)
	assert.Equal(t, "AAPL", saved.Instrument)
	assert.Equal(t, testNow, saved.CreatedAt)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), saved.TradeDate)

	depth, capacity := f.svc.QueueDepth()
	assert.Equal(t, 1, depth)
	assert.Equal(t, 4, capacity)

	queued, err := f.channel.Consume(t.Context())
	require.NoError(t, err)
	assert.Equal(t, saved.ID, queued.ID)
	assert.NotSame(t, saved, queued)

	history, err := f.svc.TradeHistory(t.Context(), saved.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enum.StatusQueued, history[0].Status)
	assert.Equal(t, 1, f.events.Count(enum.EventTradeReceived))
}

func TestSubmitBlocksWhenFull(t *testing.T) {
	f := newFixture(1)
	tr := &model.Trade{Instrument: "MSFT", Side: "BUY"}

	_, err := f.svc.Submit(t.Context(), tr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
	defer cancel()
	_, err = f.svc.Submit(ctx, tr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitRejectsDuplicateID(t *testing.T) {
	f := newFixture(4)
	tr := &model.Trade{ID: "T-1", Instrument: "AAPL", Side: "BUY"}

	_, err := f.svc.Submit(t.Context(), tr)
	require.NoError(t, err)

	_, err = f.svc.Submit(t.Context(), tr)
	require.ErrorIs(t, err, exception.ErrTradeExists)
	assert.Equal(t, 1, f.channel.Len())
	assert.Equal(t, 1, f.events.Count(enum.EventTradeReceived))
}

// Resubmitting a finished trade's ID must not reset it to QUEUED.
func TestResubmitDoneTradeKeepsState(t *testing.T) {
	f := newFixture(16)
	metrics := obs.NewMetrics(testNow)
	rates := enrich.NewClient(enrich.NewStaticSource(decimal.RequireFromString("1.1000")), enrich.ClientConfig{})
	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Store:   f.trades,
		Rates:   rates,
		Metrics: metrics,
		Events:  f.events,
	})
	pool := pipeline.NewPool(pipeline.PoolConfig{Workers: 2}, f.channel, processor, metrics)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	tr := &model.Trade{
		ID:         "T-1",
		Instrument: "AAPL",
		Side:       "BUY",
		Quantity:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Price:      decimal.NewFromInt(100),
	}
	_, err := f.svc.Submit(ctx, tr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return metrics.Processed() == 1
	}, 5*time.Second, 5*time.Millisecond)

	_, err = f.svc.Submit(ctx, tr)
	require.ErrorIs(t, err, exception.ErrTradeExists)

	got, err := f.svc.GetTrade(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, enum.StatusDone, got.Status)
	assert.Equal(t, "1100.00", got.NotionalUSD.Decimal.StringFixed(2))

	history, err := f.svc.TradeHistory(ctx, "T-1")
	require.NoError(t, err)
	statuses := make([]enum.Status, 0, len(history))
	for _, h := range history {
		statuses = append(statuses, h.Status)
	}
	assert.Equal(t, []enum.Status{enum.StatusQueued, enum.StatusProcessing, enum.StatusDone}, statuses)

	f.channel.Close()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), metrics.Processed())
}

// A single BUY goes through the whole pipeline and shows up in positions.
func TestEndToEnd(t *testing.T) {
	f := newFixture(16)
	metrics := obs.NewMetrics(testNow)
	rates := enrich.NewClient(enrich.NewStaticSource(decimal.RequireFromString("1.1000")), enrich.ClientConfig{})
	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Store:   f.trades,
		Rates:   rates,
		Metrics: metrics,
		Events:  f.events,
	})
	pool := pipeline.NewPool(pipeline.PoolConfig{Workers: 3}, f.channel, processor, metrics)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	saved, err := f.svc.Submit(ctx, &model.Trade{
		Instrument: "AAPL",
		Side:       "BUY",
		Quantity:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Price:      decimal.NewFromInt(100),
		Currency:   "USD",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := f.svc.GetTrade(ctx, saved.ID)
		return err == nil && got.Status == enum.StatusDone
	}, 5*time.Second, 5*time.Millisecond)

	got, err := f.svc.GetTrade(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "1100.00", got.NotionalUSD.Decimal.StringFixed(2))

	agg := position.NewAggregator(f.trades, f.positions, position.Config{})
	_, err = agg.Aggregate(ctx)
	require.NoError(t, err)

	positions, err := f.svc.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Instrument)
	assert.True(t, positions[0].NetQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, positions[0].NetNotionalUSD.Equal(decimal.NewFromInt(1100)))

	all, err := f.svc.ListTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	f.channel.Close()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), metrics.Processed())
}
