package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/pkg/types"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestExchangePreset_ResolvesBuiltinNames(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)

	assert.Equal(t, "realistic", l.ExchangePreset("realistic").Name)
	assert.Equal(t, "high_fee", l.ExchangePreset("high_fee").Name)
	assert.Equal(t, "low_latency", l.ExchangePreset("low_latency").Name)
}

func TestExchangePreset_CustomFromFile(t *testing.T) {
	path := writeConfig(t, "exchanges:\n  myexchange:\n    symbols: [BTCUSDT, ETHUSDT]\n    simulate_failures: true\n    failure_rate: 0.2\n")
	l, err := New(path)
	require.NoError(t, err)

	cfg := l.ExchangePreset("myexchange")
	assert.True(t, cfg.SupportedSymbols["BTCUSDT"])
	assert.True(t, cfg.SimulateFailures)
	assert.Equal(t, 0.2, cfg.FailureRate)
}

func TestPortfolioConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, "portfolios:\n  p1:\n    initial_cash: \"50000\"\n    max_open_positions: 3\n")
	l, err := New(path)
	require.NoError(t, err)

	cfg := l.PortfolioConfig("p1", types.PortfolioConfig{InitialCash: decimal.NewFromInt(10000), MaxOpenPositions: 10})
	assert.True(t, cfg.InitialCash.Equal(decimal.RequireFromString("50000")))
	assert.Equal(t, 3, cfg.MaxOpenPositions)
}
