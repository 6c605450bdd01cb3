package pipeline

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/model/enum"
	"tradeflow/internal/obs"
	"tradeflow/internal/store/memory"
	"tradeflow/pkg/exception"
)

func TestProcessorDone(t *testing.T) {
	h := newHarness(t, nil, fixedRate{rate: decimal.RequireFromString("1.1000")})
	tr := h.queued(t, "AAPL", "buy", "10", "100")

	out := h.processor.Process(t.Context(), tr)
	require.NoError(t, out.Err)
	assert.Equal(t, enum.StatusDone, out.Status)

	got, err := h.store.FindByID(t.Context(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.StatusDone, got.Status)
	assert.Equal(t, "BUY", got.Side)
	assert.Equal(t, "1100.00", got.NotionalUSD.Decimal.StringFixed(2))
	assert.True(t, got.FxRate.Decimal.Equal(decimal.RequireFromString("1.1")))
	require.NotNil(t, got.ProcessedAt)
	assert.Empty(t, got.FailureReason)

	history, err := h.store.History(t.Context(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, []enum.Status{enum.StatusQueued, enum.StatusProcessing, enum.StatusDone}, statuses(history))
	assert.Equal(t, 1, h.events.Count(enum.EventTradeDone))
}

func TestProcessorValidationFailure(t *testing.T) {
	h := newHarness(t, nil, fixedRate{rate: decimal.NewFromInt(1)})
	tr := h.queued(t, "MSFT", "BUY", "0", "10")

	out := h.processor.Process(t.Context(), tr)
	assert.Equal(t, enum.StatusFailed, out.Status)
	assert.Equal(t, obs.FailureValidation, out.Reason)
	assert.ErrorIs(t, out.Err, exception.ErrInvalidQuantity)

	got, err := h.store.FindByID(t.Context(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.StatusFailed, got.Status)
	assert.False(t, got.NotionalUSD.Valid)
	assert.NotEmpty(t, got.FailureReason)
	require.NotNil(t, got.ProcessedAt)

	history, err := h.store.History(t.Context(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, []enum.Status{enum.StatusQueued, enum.StatusProcessing, enum.StatusFailed}, statuses(history))
	assert.Equal(t, got.FailureReason, history[2].Reason)
	assert.Equal(t, 1, h.events.Count(enum.EventTradeFailed))
}

func TestProcessorEnrichmentFailure(t *testing.T) {
	boom := exception.Classify(exception.ErrEnrichment, errors.New("feed down"))
	h := newHarness(t, nil, fixedRate{err: boom})
	tr := h.queued(t, "TSLA", "SELL", "5", "200")

	out := h.processor.Process(t.Context(), tr)
	assert.Equal(t, enum.StatusFailed, out.Status)
	assert.Equal(t, obs.FailureEnrichment, out.Reason)
	assert.ErrorIs(t, out.Err, exception.ErrEnrichment)

	got, err := h.store.FindByID(t.Context(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.StatusFailed, got.Status)
	assert.Equal(t, "feed down", got.FailureReason)
	assert.False(t, got.NotionalUSD.Valid)
}

func TestProcessorRetriesPersistence(t *testing.T) {
	flaky := &flakyStore{TradeStore: memory.NewTradeStore(nil)}
	h := newHarness(t, flaky, fixedRate{rate: decimal.NewFromInt(1)})
	tr := h.queued(t, "NVDA", "BUY", "2", "3")

	flaky.mu.Lock()
	flaky.fails = 2
	flaky.mu.Unlock()

	out := h.processor.Process(t.Context(), tr)
	require.NoError(t, out.Err)
	assert.Equal(t, enum.StatusDone, out.Status)

	got, err := h.store.FindByID(t.Context(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.StatusDone, got.Status)
}

func TestProcessorPersistenceExhausted(t *testing.T) {
	flaky := &flakyStore{TradeStore: memory.NewTradeStore(nil)}
	h := newHarness(t, flaky, fixedRate{rate: decimal.NewFromInt(1)})
	tr := h.queued(t, "INTC", "BUY", "2", "3")

	flaky.mu.Lock()
	flaky.fails = 100
	flaky.mu.Unlock()

	out := h.processor.Process(t.Context(), tr)
	assert.Equal(t, obs.FailurePersistence, out.Reason)
	assert.ErrorIs(t, out.Err, exception.ErrPersistence)

	got, err := h.store.FindByID(t.Context(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.StatusQueued, got.Status)
}

func TestProcessorSkipsNonQueued(t *testing.T) {
	h := newHarness(t, nil, fixedRate{rate: decimal.NewFromInt(1)})
	tr := h.queued(t, "AAPL", "BUY", "1", "1")
	tr.Status = enum.StatusDone

	out := h.processor.Process(t.Context(), tr)
	assert.ErrorIs(t, out.Err, exception.ErrInvalidTransition)
	assert.Equal(t, enum.StatusDone, out.Status)
}
