package events

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/pkg/exception"
)

func TestJournalPublisherRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := NewJournalPublisher(JournalConfig{Dir: dir})
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := &model.Trade{ID: "t-1", Instrument: "AAPL", Side: "BUY", Status: enum.StatusQueued}
	require.NoError(t, p.Publish(t.Context(), New(enum.EventTradeReceived, tr, at)))
	tr.Status = enum.StatusDone
	require.NoError(t, p.Publish(t.Context(), New(enum.EventTradeDone, tr, at.Add(time.Second))))
	p.Close()
	require.NoError(t, p.Err())

	got, err := ReadJournal(dir, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, enum.EventTradeReceived, got[0].Type)
	assert.Equal(t, enum.StatusQueued, got[0].Trade.Status)
	assert.Equal(t, enum.EventTradeDone, got[1].Type)
	assert.Equal(t, "t-1", got[1].Trade.ID)
	assert.True(t, at.Add(time.Second).Equal(got[1].At))
}

func TestJournalPublisherRotatesSegments(t *testing.T) {
	dir := t.TempDir()
	p, err := NewJournalPublisher(JournalConfig{Dir: dir, FilePrefix: "rot", SegmentMaxBytes: 1})
	require.NoError(t, err)

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		require.NoError(t, p.Publish(t.Context(), New(enum.EventTradeDone, &model.Trade{ID: id}, time.Now())))
	}
	p.Close()

	segments, err := filepath.Glob(filepath.Join(dir, "rot-*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, segments, len(ids))

	got, err := ReadJournal(dir, "rot")
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, got[i].Trade.ID)
	}
}

func TestJournalPublisherClosed(t *testing.T) {
	p, err := NewJournalPublisher(JournalConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	p.Close()
	p.Close()

	err = p.Publish(t.Context(), New(enum.EventTradeDone, &model.Trade{ID: "t-1"}, time.Now()))
	assert.ErrorIs(t, err, exception.ErrJournalClosed)
}

func TestJournalConfigValidate(t *testing.T) {
	_, err := NewJournalPublisher(JournalConfig{})
	assert.ErrorIs(t, err, exception.ErrInvalidConfig)

	_, err = NewJournalPublisher(JournalConfig{Dir: t.TempDir(), FlushInterval: -time.Second})
	assert.ErrorIs(t, err, exception.ErrInvalidConfig)
}

func TestReadJournalEmptyDir(t *testing.T) {
	got, err := ReadJournal(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadJournalSkipsLongerPrefix(t *testing.T) {
	dir := t.TempDir()
	live, err := NewJournalPublisher(JournalConfig{Dir: dir})
	require.NoError(t, err)
	archive, err := NewJournalPublisher(JournalConfig{Dir: dir, FilePrefix: "events-archive"})
	require.NoError(t, err)

	require.NoError(t, live.Publish(t.Context(), New(enum.EventTradeDone, &model.Trade{ID: "live"}, time.Now())))
	require.NoError(t, archive.Publish(t.Context(), New(enum.EventTradeDone, &model.Trade{ID: "old-1"}, time.Now())))
	require.NoError(t, archive.Publish(t.Context(), New(enum.EventTradeDone, &model.Trade{ID: "old-2"}, time.Now())))
	live.Close()
	archive.Close()

	got, err := ReadJournal(dir, "events")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].Trade.ID)

	got, err = ReadJournal(dir, "events-archive")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
