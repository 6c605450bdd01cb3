package service

import (
	"context"
	"strings"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tradeflow/internal/bus"
	"tradeflow/internal/clock"
	"tradeflow/internal/events"
	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/store"
	"tradeflow/pkg/exception"
)

// Service is the entry point for submitting and querying trades.
type Service struct {
	trades    store.TradeStore
	positions store.PositionStore
	channel   *bus.TradeChannel
	events    events.Publisher
	clock     clock.Clock
}

type Config struct {
	Trades    store.TradeStore
	Positions store.PositionStore
	Channel   *bus.TradeChannel
	Events    events.Publisher
	Clock     clock.Clock
}

func New(cfg Config) *Service {
	if cfg.Events == nil {
		cfg.Events = events.LogPublisher{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	return &Service{
		trades:    cfg.Trades,
		positions: cfg.Positions,
		channel:   cfg.Channel,
		events:    cfg.Events,
		clock:     cfg.Clock,
	}
}

// Submit stores t as a new QUEUED trade and hands it to the workers. It blocks
// while the channel is full. The returned trade carries the assigned ID; an ID
// that is already stored is rejected with exception.ErrTradeExists.
func (s *Service) Submit(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	if t == nil {
		return nil, exception.ErrNilInstance
	}

	in := t.Clone()
	now := s.clock.Now()
	in.Status = enum.StatusQueued
	in.FailureReason = ""
	in.ProcessedAt = nil
	in.FxRate.Valid = false
	in.NotionalUSD.Valid = false
	in.Instrument = strings.TrimSpace(in.Instrument)
	in.CreatedAt = now
	if in.TradeDate.IsZero() {
		in.TradeDate = now.Truncate(24 * time.Hour)
	}

	saved, err := s.trades.Create(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "create queued trade")
	}

	if err := s.events.Publish(ctx, events.New(enum.EventTradeReceived, saved, now)); err != nil {
		logs.Warnf("service: publish received event, trade=%s, err: %+v", saved.ID, err)
	}

	if err := s.channel.Publish(ctx, saved.Clone()); err != nil {
		return saved, errors.Wrap(err, "enqueue trade")
	}
	return saved, nil
}

func (s *Service) GetTrade(ctx context.Context, id string) (*model.Trade, error) {
	return s.trades.FindByID(ctx, id)
}

func (s *Service) ListTrades(ctx context.Context) ([]model.Trade, error) {
	return s.trades.FindAll(ctx)
}

func (s *Service) TradeHistory(ctx context.Context, id string) ([]model.StatusChange, error) {
	return s.trades.History(ctx, id)
}

func (s *Service) ListPositions(ctx context.Context) ([]model.Position, error) {
	return s.positions.FindAll(ctx)
}

// QueueDepth reports the hand-off channel's current depth and capacity.
func (s *Service) QueueDepth() (depth, capacity int) {
	return s.channel.Len(), s.channel.Cap()
}
