package memory

import (
	"context"
	"sort"
	"sync"

	"tradeflow/internal/model"
	"tradeflow/pkg/exception"
)

// PositionStore keeps positions in process memory.
type PositionStore struct {
	mu        sync.RWMutex
	positions map[string]model.Position
}

func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[string]model.Position)}
}

func (s *PositionStore) Save(ctx context.Context, p *model.Position) (*model.Position, error) {
	if p == nil {
		return nil, exception.ErrNilInstance
	}
	if err := ctx.Err(); err != nil {
		return nil, exception.Classify(exception.ErrPersistence, err)
	}

	s.mu.Lock()
	s.positions[p.Instrument] = *p
	s.mu.Unlock()

	c := *p
	return &c, nil
}

func (s *PositionStore) FindByID(_ context.Context, instrument string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[instrument]
	if !ok {
		return nil, exception.ErrPositionNotFound
	}
	return &p, nil
}

// FindAll returns positions sorted by instrument.
func (s *PositionStore) FindAll(_ context.Context) ([]model.Position, error) {
	s.mu.RLock()
	out := make([]model.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Instrument < out[j].Instrument
	})
	return out, nil
}
