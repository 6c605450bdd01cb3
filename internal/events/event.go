package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
)

// Event announces a trade lifecycle step.
type Event struct {
	Type  enum.EventType `json:"type"`
	At    time.Time      `json:"at"`
	Trade model.Trade    `json:"trade"`
}

func New(typ enum.EventType, t *model.Trade, at time.Time) Event {
	return Event{Type: typ, At: at, Trade: *t.Clone()}
}

// Encode returns the wire form of the event.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher fans trade events out. A failed publish never fails the trade.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// LogPublisher writes events to the log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	logs.Debugf("event: type=%s trade=%s status=%s instrument=%s", e.Type, e.Trade.ID, e.Trade.Status, e.Trade.Instrument)
	return nil
}

func (LogPublisher) Close() {}

// MemoryPublisher keeps every event it receives.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *MemoryPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *MemoryPublisher) Close() {}

// Events returns a copy of the received events.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Count returns the number of received events of type typ.
func (p *MemoryPublisher) Count(typ enum.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
