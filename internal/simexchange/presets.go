package simexchange

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/internal/feemodel"
	"github.com/coretrade/engine/internal/slippage"
)

// DefaultPreset charges zero fees and applies zero slippage, with no
// injected failures — the baseline for deterministic scenario tests.
func DefaultPreset() Config {
	return Config{
		Name:          "default",
		FeeModel:      feemodel.Zero{},
		SlippageModel: slippage.Zero{},
	}
}

// RealisticPreset models a liquid retail venue: 0.1% flat fee, linear
// slippage (1% base noise, 1e-5 size factor, 10% cap), 1% random
// exchange-side failure rate.
func RealisticPreset() Config {
	return Config{
		Name:             "realistic",
		FeeModel:         feemodel.NewPercent(decimal.NewFromFloat(0.001)),
		SlippageModel:    slippage.Linear{BasePct: 1, SizeFactor: 1e-5, MaxPct: 10},
		SimulateFailures: true,
		FailureRate:      0.01,
	}
}

// HighFeePreset models an expensive venue: maker/taker fees of
// 0.8%/1.0% and a fixed 2% slippage band with random direction.
func HighFeePreset() Config {
	return Config{
		Name: "high_fee",
		FeeModel: feemodel.MakerTaker{
			MakerRate: decimal.NewFromFloat(0.008),
			TakerRate: decimal.NewFromFloat(0.01),
		},
		SlippageModel: slippage.Fixed{Pct: 2, RandomVariation: true},
	}
}

// LowLatencyPreset models a fast, cheap venue: 0.05% flat fee, no
// slippage, and a short reconnect delay.
func LowLatencyPreset() Config {
	return Config{
		Name:           "low_latency",
		FeeModel:       feemodel.NewPercent(decimal.NewFromFloat(0.0005)),
		SlippageModel:  slippage.Zero{},
		ReconnectDelay: 50 * time.Millisecond,
	}
}
