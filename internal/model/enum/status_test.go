package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	all := []Status{StatusQueued, StatusProcessing, StatusDone, StatusFailed}
	allowed := map[[2]Status]bool{
		{StatusQueued, StatusProcessing}: true,
		{StatusProcessing, StatusDone}:   true,
		{StatusProcessing, StatusFailed}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			assert.Equalf(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusDone.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, Status("UNKNOWN").IsAvailable())
}

func TestParseSide(t *testing.T) {
	testCases := []struct {
		desc  string
		input string
		want  Side
		ok    bool
	}{
		{"upper buy", "BUY", SideBuy, true},
		{"lower buy", "buy", SideBuy, true},
		{"mixed sell", "SeLl", SideSell, true},
		{"padded", "  sell ", SideSell, true},
		{"empty", "", "", false},
		{"garbage", "HOLD", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, ok := ParseSide(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	assert.Equal(t, int64(1), SideBuy.Sign())
	assert.Equal(t, int64(-1), SideSell.Sign())
}
