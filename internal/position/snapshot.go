package position

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/internal/model"
)

// Snapshot captures net positions at a point in time.
type Snapshot struct {
	At        time.Time `json:"at"`
	Positions []Entry   `json:"positions"`
}

// Entry is a single instrument position.
type Entry struct {
	Instrument  string          `json:"instrument"`
	Quantity    decimal.Decimal `json:"quantity"`
	NotionalUSD decimal.Decimal `json:"notionalUsd"`
	Trades      int             `json:"trades"`
}

// Snapshot builds a snapshot sorted by instrument.
func (r *Reducer) Snapshot(at time.Time) Snapshot {
	entries := make([]Entry, 0, len(r.positions))
	for instrument, net := range r.positions {
		entries = append(entries, Entry{
			Instrument:  instrument,
			Quantity:    net.Quantity,
			NotionalUSD: net.NotionalUSD,
			Trades:      net.Trades,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Instrument < entries[j].Instrument
	})
	return Snapshot{At: at, Positions: entries}
}

// SnapshotOf builds a snapshot from stored positions.
func SnapshotOf(at time.Time, positions []model.Position) Snapshot {
	entries := make([]Entry, 0, len(positions))
	for _, p := range positions {
		entries = append(entries, Entry{
			Instrument:  p.Instrument,
			Quantity:    p.NetQuantity,
			NotionalUSD: p.NetNotionalUSD,
			Trades:      p.TradeCount,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Instrument < entries[j].Instrument
	})
	return Snapshot{At: at, Positions: entries}
}

// Compare checks that two snapshots hold the same values, ignoring timestamps.
func Compare(expected, actual Snapshot) error {
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	want := make(map[string]Entry, len(expected.Positions))
	for _, e := range expected.Positions {
		want[e.Instrument] = e
	}
	for _, e := range actual.Positions {
		w, ok := want[e.Instrument]
		if !ok {
			return fmt.Errorf("snapshot missing instrument: %s", e.Instrument)
		}
		if !w.Quantity.Equal(e.Quantity) {
			return fmt.Errorf("snapshot qty mismatch: instrument=%s expected=%s actual=%s", e.Instrument, w.Quantity, e.Quantity)
		}
		if !w.NotionalUSD.Equal(e.NotionalUSD) {
			return fmt.Errorf("snapshot notional mismatch: instrument=%s expected=%s actual=%s", e.Instrument, w.NotionalUSD, e.NotionalUSD)
		}
	}
	return nil
}
