package memory

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/store"
	"tradeflow/internal/store/storetest"
)

func TestTradeStore(t *testing.T) {
	storetest.RunTradeStore(t, func(*testing.T) store.TradeStore {
		return NewTradeStore(nil)
	})
}

func TestPositionStore(t *testing.T) {
	storetest.RunPositionStore(t, func(*testing.T) store.PositionStore {
		return NewPositionStore()
	})
}

func TestTradeStoreConcurrentSaves(t *testing.T) {
	s := NewTradeStore(nil)
	ctx := t.Context()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, err := s.Save(ctx, &model.Trade{
					Instrument: "AAPL",
					Quantity:   decimal.NewNullDecimal(decimal.NewFromInt(1)),
					Status:     enum.StatusQueued,
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 800)
}
