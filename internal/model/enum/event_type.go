package enum

type EventType string

const (
	EventTradeReceived EventType = "trade.received"
	EventTradeDone     EventType = "trade.done"
	EventTradeFailed   EventType = "trade.failed"
)

// EventTypeFor maps a terminal status to its lifecycle event.
func EventTypeFor(s Status) (EventType, bool) {
	switch s {
	case StatusDone:
		return EventTradeDone, true
	case StatusFailed:
		return EventTradeFailed, true
	case StatusQueued:
		return EventTradeReceived, true
	default:
		return "", false
	}
}
