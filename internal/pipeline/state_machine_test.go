package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/pkg/exception"
)

func TestAdvanceForwardOnly(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tr := &model.Trade{ID: "t", Status: enum.StatusQueued}
	require.NoError(t, Advance(tr, enum.StatusProcessing, now))
	assert.Nil(t, tr.ProcessedAt)
	require.NoError(t, Advance(tr, enum.StatusDone, now))
	require.NotNil(t, tr.ProcessedAt)
	assert.Equal(t, now, *tr.ProcessedAt)

	testCases := []struct {
		desc string
		from enum.Status
		to   enum.Status
	}{
		{"skip processing", enum.StatusQueued, enum.StatusDone},
		{"back to queued", enum.StatusProcessing, enum.StatusQueued},
		{"done to failed", enum.StatusDone, enum.StatusFailed},
		{"failed to done", enum.StatusFailed, enum.StatusDone},
		{"done to processing", enum.StatusDone, enum.StatusProcessing},
		{"self loop", enum.StatusProcessing, enum.StatusProcessing},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			tr := &model.Trade{ID: "t", Status: tc.from}
			err := Advance(tr, tc.to, now)
			assert.ErrorIs(t, err, exception.ErrInvalidTransition)
			assert.Equal(t, tc.from, tr.Status)
		})
	}
}
