// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/store"
	"tradeflow/pkg/exception"
)

// RunTradeStore exercises a TradeStore produced by newStore.
func RunTradeStore(t *testing.T, newStore func(t *testing.T) store.TradeStore) {
	t.Run("assigns id and records history", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

		saved, err := s.Save(ctx, &model.Trade{
			TradeDate:  created,
			Instrument: "AAPL",
			Side:       "BUY",
			Quantity:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
			Price:      decimal.NewFromInt(100),
			Currency:   "USD",
			Status:     enum.StatusQueued,
			CreatedAt:  created,
		})
		require.NoError(t, err)
		require.NotEmpty(t, saved.ID)

		saved.Status = enum.StatusProcessing
		_, err = s.Save(ctx, saved)
		require.NoError(t, err)

		// Same status again must not add a history row.
		_, err = s.Save(ctx, saved)
		require.NoError(t, err)

		saved.Status = enum.StatusDone
		saved.NotionalUSD = decimal.NewNullDecimal(decimal.RequireFromString("1100.00"))
		_, err = s.Save(ctx, saved)
		require.NoError(t, err)

		got, err := s.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.StatusDone, got.Status)
		assert.True(t, got.NotionalUSD.Decimal.Equal(decimal.RequireFromString("1100")))
		assert.True(t, got.Quantity.Decimal.Equal(decimal.NewFromInt(10)))

		history, err := s.History(ctx, saved.ID)
		require.NoError(t, err)
		statuses := make([]enum.Status, 0, len(history))
		for _, h := range history {
			statuses = append(statuses, h.Status)
		}
		assert.Equal(t, []enum.Status{enum.StatusQueued, enum.StatusProcessing, enum.StatusDone}, statuses)
	})

	t.Run("keeps caller assigned id", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		saved, err := s.Save(ctx, &model.Trade{ID: "caller-1", Instrument: "MSFT", Status: enum.StatusQueued, CreatedAt: time.Now().UTC()})
		require.NoError(t, err)
		assert.Equal(t, "caller-1", saved.ID)

		all, err := s.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "caller-1", all[0].ID)
	})

	t.Run("create rejects taken id", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		created, err := s.Create(ctx, &model.Trade{ID: "T-1", Instrument: "AAPL", Status: enum.StatusQueued})
		require.NoError(t, err)
		assert.Equal(t, "T-1", created.ID)

		created.Status = enum.StatusProcessing
		_, err = s.Save(ctx, created)
		require.NoError(t, err)
		created.Status = enum.StatusDone
		created.NotionalUSD = decimal.NewNullDecimal(decimal.RequireFromString("1100.00"))
		_, err = s.Save(ctx, created)
		require.NoError(t, err)

		_, err = s.Create(ctx, &model.Trade{ID: "T-1", Instrument: "MSFT", Status: enum.StatusQueued})
		require.ErrorIs(t, err, exception.ErrTradeExists)

		got, err := s.FindByID(ctx, "T-1")
		require.NoError(t, err)
		assert.Equal(t, enum.StatusDone, got.Status)
		assert.Equal(t, "AAPL", got.Instrument)
		assert.True(t, got.NotionalUSD.Valid)

		history, err := s.History(ctx, "T-1")
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, enum.StatusDone, history[2].Status)

		fresh, err := s.Create(ctx, &model.Trade{Instrument: "MSFT", Status: enum.StatusQueued})
		require.NoError(t, err)
		assert.NotEmpty(t, fresh.ID)
	})

	t.Run("missing trade", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindByID(t.Context(), "nope")
		assert.ErrorIs(t, err, exception.ErrTradeNotFound)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		in := &model.Trade{Instrument: "TSLA", Status: enum.StatusQueued, CreatedAt: time.Now().UTC()}
		saved, err := s.Save(ctx, in)
		require.NoError(t, err)

		saved.Instrument = "MUTATED"
		got, err := s.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "TSLA", got.Instrument)
	})
}

// RunPositionStore exercises a PositionStore produced by newStore.
func RunPositionStore(t *testing.T, newStore func(t *testing.T) store.PositionStore) {
	t.Run("upsert by instrument", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

		_, err := s.FindByID(ctx, "AAPL")
		assert.ErrorIs(t, err, exception.ErrPositionNotFound)

		_, err = s.Save(ctx, &model.Position{Instrument: "AAPL", NetQuantity: decimal.NewFromInt(10), LastUpdated: at})
		require.NoError(t, err)
		_, err = s.Save(ctx, &model.Position{Instrument: "AAPL", NetQuantity: decimal.NewFromInt(70), TradeCount: 2, LastUpdated: at})
		require.NoError(t, err)
		_, err = s.Save(ctx, &model.Position{Instrument: "MSFT", NetQuantity: decimal.NewFromInt(-5), LastUpdated: at})
		require.NoError(t, err)

		got, err := s.FindByID(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, got.NetQuantity.Equal(decimal.NewFromInt(70)))
		assert.Equal(t, 2, got.TradeCount)

		all, err := s.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "AAPL", all[0].Instrument)
		assert.Equal(t, "MSFT", all[1].Instrument)
	})
}
