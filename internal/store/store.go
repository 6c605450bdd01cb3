package store

import (
	"context"

	"tradeflow/internal/model"
)

// TradeStore persists trades and their status history.
//
// Create inserts a new trade and fails with exception.ErrTradeExists when the
// ID is already taken. Save creates or updates by ID. Both replace an empty ID
// with a generated opaque one, and every write that changes the status
// appends a history row.
type TradeStore interface {
	Create(ctx context.Context, t *model.Trade) (*model.Trade, error)
	Save(ctx context.Context, t *model.Trade) (*model.Trade, error)
	FindByID(ctx context.Context, id string) (*model.Trade, error)
	FindAll(ctx context.Context) ([]model.Trade, error)
	History(ctx context.Context, id string) ([]model.StatusChange, error)
}

// PositionStore persists net positions keyed by instrument.
type PositionStore interface {
	Save(ctx context.Context, p *model.Position) (*model.Position, error)
	FindByID(ctx context.Context, instrument string) (*model.Position, error)
	FindAll(ctx context.Context) ([]model.Position, error)
}
