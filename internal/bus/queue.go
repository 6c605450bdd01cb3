package bus

import (
	"context"
	"sync"

	"tradeflow/internal/model"
	"tradeflow/pkg/exception"
)

// TradeChannel is a bounded, blocking FIFO hand-off between producers and workers.
//
// Publish blocks while the channel is full and Consume blocks while it is empty.
// Close releases every blocked caller with exception.ErrQueueClosed.
type TradeChannel struct {
	ch        chan *model.Trade
	done      chan struct{}
	closeOnce sync.Once
}

// NewTradeChannel allocates a channel with the given capacity.
func NewTradeChannel(capacity int) *TradeChannel {
	if capacity <= 0 {
		capacity = 1
	}
	return &TradeChannel{
		ch:   make(chan *model.Trade, capacity),
		done: make(chan struct{}),
	}
}

// Publish enqueues a trade, waiting for a free slot.
func (q *TradeChannel) Publish(ctx context.Context, t *model.Trade) error {
	if t == nil {
		return exception.ErrQueueNilItem
	}
	select {
	case <-q.done:
		return exception.ErrQueueClosed
	default:
	}
	select {
	case q.ch <- t:
		return nil
	case <-q.done:
		return exception.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume removes and returns the oldest trade, waiting until one exists.
func (q *TradeChannel) Consume(ctx context.Context) (*model.Trade, error) {
	select {
	case <-q.done:
		return nil, exception.ErrQueueClosed
	default:
	}
	select {
	case t := <-q.ch:
		return t, nil
	case <-q.done:
		return nil, exception.ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the channel. Items still buffered are abandoned.
func (q *TradeChannel) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Closed reports whether Close has been called.
func (q *TradeChannel) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Len returns the current depth.
func (q *TradeChannel) Len() int {
	return len(q.ch)
}

// Cap returns the configured capacity.
func (q *TradeChannel) Cap() int {
	return cap(q.ch)
}
