package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tradeflow/internal/clock"
	"tradeflow/internal/model"
	"tradeflow/pkg/exception"
)

// TradeStore keeps trades in process memory. Values are copied on the way in
// and out so callers never share a *model.Trade with the store.
type TradeStore struct {
	clock clock.Clock

	mu      sync.RWMutex
	trades  map[string]*model.Trade
	order   []string
	history map[string][]model.StatusChange
}

func NewTradeStore(clk clock.Clock) *TradeStore {
	if clk == nil {
		clk = clock.System()
	}
	return &TradeStore{
		clock:   clk,
		trades:  make(map[string]*model.Trade),
		history: make(map[string][]model.StatusChange),
	}
}

func (s *TradeStore) Create(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	return s.write(ctx, t, true)
}

func (s *TradeStore) Save(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	return s.write(ctx, t, false)
}

func (s *TradeStore) write(ctx context.Context, t *model.Trade, createOnly bool) (*model.Trade, error) {
	if t == nil {
		return nil, exception.ErrNilInstance
	}
	if err := ctx.Err(); err != nil {
		return nil, exception.Classify(exception.ErrPersistence, err)
	}

	c := t.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.clock.Now()
	c.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.trades[c.ID]
	if exists && createOnly {
		return nil, exception.ErrTradeExists
	}
	if !exists {
		s.order = append(s.order, c.ID)
	}
	if !exists || prev.Status != c.Status {
		s.history[c.ID] = append(s.history[c.ID], model.StatusChange{
			TradeID: c.ID,
			Status:  c.Status,
			Reason:  c.FailureReason,
			At:      now,
		})
	}
	s.trades[c.ID] = c
	return c.Clone(), nil
}

func (s *TradeStore) FindByID(_ context.Context, id string) (*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, exception.ErrTradeNotFound
	}
	return t.Clone(), nil
}

// FindAll returns every trade in insertion order.
func (s *TradeStore) FindAll(_ context.Context) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Trade, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.trades[id].Clone())
	}
	return out, nil
}

func (s *TradeStore) History(_ context.Context, id string) ([]model.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.trades[id]; !ok {
		return nil, exception.ErrTradeNotFound
	}
	h := s.history[id]
	out := make([]model.StatusChange, len(h))
	copy(out, h)
	return out, nil
}
