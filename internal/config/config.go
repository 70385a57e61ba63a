// Package config loads exchange presets and portfolio limits from a
// config file or environment variables via viper.
//
// Grounded on the teacher's internal/exchange/factory.go LoadConfig,
// adapted from a per-exchange-type key layout (exchanges.<name>.*) to
// this engine's exchange-preset and portfolio-limit sections.
package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/coretrade/engine/internal/simexchange"
	"github.com/coretrade/engine/pkg/types"
)

// Loader reads engine configuration from a file plus environment
// variable overrides (prefix COZYTRADE_).
type Loader struct {
	v *viper.Viper
}

// New returns a Loader that will read configPath if non-empty, falling
// back to defaults and environment variables otherwise.
func New(configPath string) (*Loader, error) {
	v := viper.New()
	v.SetEnvPrefix("COZYTRADE")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}
	return &Loader{v: v}, nil
}

// ExchangePreset resolves a named preset: "default", "realistic",
// "high_fee", "low_latency", or a custom name defined under
// exchanges.<name> in the config file.
func (l *Loader) ExchangePreset(name string) simexchange.Config {
	switch name {
	case "realistic":
		return simexchange.RealisticPreset()
	case "high_fee":
		return simexchange.HighFeePreset()
	case "low_latency":
		return simexchange.LowLatencyPreset()
	case "default", "":
		return simexchange.DefaultPreset()
	default:
		return l.customExchangePreset(name)
	}
}

func (l *Loader) customExchangePreset(name string) simexchange.Config {
	key := fmt.Sprintf("exchanges.%s", name)
	cfg := simexchange.DefaultPreset()
	cfg.Name = name
	if symbols := l.v.GetStringSlice(key + ".symbols"); len(symbols) > 0 {
		supported := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			supported[s] = true
		}
		cfg.SupportedSymbols = supported
	}
	cfg.SimulateFailures = l.v.GetBool(key + ".simulate_failures")
	cfg.FailureRate = l.v.GetFloat64(key + ".failure_rate")
	return cfg
}

// PortfolioConfig loads one portfolio's limits from portfolios.<id> in
// the config file, falling back to the given defaults for any unset key.
func (l *Loader) PortfolioConfig(portfolioID string, defaults types.PortfolioConfig) types.PortfolioConfig {
	key := fmt.Sprintf("portfolios.%s", portfolioID)
	cfg := defaults
	cfg.PortfolioID = portfolioID

	if v := l.v.GetString(key + ".initial_cash"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.InitialCash = d
		}
	}
	if v := l.v.GetString(key + ".exchange"); v != "" {
		cfg.Exchange = v
	}
	if v := l.v.GetString(key + ".max_position_value"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.MaxPositionValue = d
		}
	}
	if n := l.v.GetInt(key + ".max_open_positions"); n > 0 {
		cfg.MaxOpenPositions = n
	}
	if v := l.v.GetString(key + ".max_concentration_pct"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.MaxConcentrationPct = d
		}
	}
	if v := l.v.GetString(key + ".daily_loss_limit_pct"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.DailyLossLimitPct = d
		}
	}
	if v := l.v.GetString(key + ".drawdown_limit_pct"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.DrawdownLimitPct = d
		}
	}
	if n := l.v.GetInt(key + ".max_transaction_count"); n > 0 {
		cfg.MaxTransactionCount = n
	}
	return cfg
}
