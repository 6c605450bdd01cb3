package enrich

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/pkg/exception"
)

func TestSimulatedSourceRange(t *testing.T) {
	cfg := DefaultSimulatedConfig()
	cfg.Seed = 42
	src, err := NewSimulatedSource(cfg)
	require.NoError(t, err)

	lo := decimal.RequireFromString("1.05")
	hi := decimal.RequireFromString("1.15")
	for range 1000 {
		rate, err := src.Rate(t.Context(), DefaultPair)
		require.NoError(t, err)
		assert.True(t, rate.GreaterThanOrEqual(lo), rate.String())
		assert.True(t, rate.LessThanOrEqual(hi), rate.String())
		assert.LessOrEqual(t, -rate.Exponent(), int32(4))
	}
}

func TestSimulatedSourceFailures(t *testing.T) {
	cfg := DefaultSimulatedConfig()
	cfg.Seed = 7
	cfg.FailureRate = 1
	src, err := NewSimulatedSource(cfg)
	require.NoError(t, err)

	_, err = src.Rate(t.Context(), DefaultPair)
	assert.ErrorIs(t, err, exception.ErrSourceUnavailable)
}

func TestSimulatedConfigValidate(t *testing.T) {
	testCases := []struct {
		desc   string
		mutate func(*SimulatedConfig)
	}{
		{"inverted range", func(c *SimulatedConfig) { c.Min, c.Max = 2, 1 }},
		{"zero min", func(c *SimulatedConfig) { c.Min = 0 }},
		{"failure rate", func(c *SimulatedConfig) { c.FailureRate = 1.5 }},
		{"negative delay", func(c *SimulatedConfig) { c.MaxDelay = -time.Second }},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := DefaultSimulatedConfig()
			tc.mutate(&cfg)
			_, err := NewSimulatedSource(cfg)
			assert.ErrorIs(t, err, exception.ErrInvalidConfig)
		})
	}
}
