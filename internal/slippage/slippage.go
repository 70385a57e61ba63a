// Package slippage implements the engine's execution-price drift
// models. Each variant is a concrete type satisfying SlippageModel — a
// capability interface, not a class hierarchy.
package slippage

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// SlippageModel computes the multiplier applied to a requested price to
// derive the executed price: executedPrice = price * factor.
type SlippageModel interface {
	CalculateSlippageFactor(qty, price decimal.Decimal, side, orderType string) float64
}

func clamp(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

// Zero never moves the price.
type Zero struct{}

func (Zero) CalculateSlippageFactor(qty, price decimal.Decimal, side, orderType string) float64 {
	return 1.0
}

// Linear derives slippage from random market noise plus an order-size
// impact term, both capped at MaxPct.
type Linear struct {
	BasePct    float64 // +/- uniform noise range, in percent
	SizeFactor float64 // percent impact per (qty*price) unit
	MaxPct     float64 // clamp bound, in percent
	Rand       *rand.Rand
}

func (l Linear) CalculateSlippageFactor(qty, price decimal.Decimal, side, orderType string) float64 {
	r := l.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	baseNoise := (r.Float64()*2 - 1) * l.BasePct / 100.0
	notional, _ := qty.Mul(price).Float64()
	sizeImpact := notional * l.SizeFactor / 100.0
	if sizeImpact > l.MaxPct/100.0 {
		sizeImpact = l.MaxPct / 100.0
	}

	var total float64
	if side == "BUY" {
		total = clamp(baseNoise+sizeImpact, l.MaxPct/100.0)
		return 1 + total
	}
	total = clamp(baseNoise-sizeImpact, l.MaxPct/100.0)
	return 1 + total
}

// Fixed applies a constant percentage move, optionally randomized in
// direction and magnitude.
type Fixed struct {
	Pct             float64
	RandomVariation bool
	Rand            *rand.Rand
}

func (f Fixed) CalculateSlippageFactor(qty, price decimal.Decimal, side, orderType string) float64 {
	if f.RandomVariation {
		r := f.Rand
		if r == nil {
			r = rand.New(rand.NewSource(1))
		}
		delta := (r.Float64()*2 - 1) * f.Pct / 100.0
		return 1 + delta
	}
	if side == "BUY" {
		return 1 + f.Pct/100.0
	}
	return 1 - f.Pct/100.0
}
