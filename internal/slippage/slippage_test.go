package slippage

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestZero_NoSlippage(t *testing.T) {
	assert.Equal(t, 1.0, Zero{}.CalculateSlippageFactor(dec("10"), dec("100"), "BUY", "MARKET"))
}

func TestFixed_DeterministicBuySell(t *testing.T) {
	f := Fixed{Pct: 1.0}
	assert.InDelta(t, 1.01, f.CalculateSlippageFactor(dec("10"), dec("100"), "BUY", "MARKET"), 1e-9)
	assert.InDelta(t, 0.99, f.CalculateSlippageFactor(dec("10"), dec("100"), "SELL", "MARKET"), 1e-9)
}

func TestFixed_RandomVariationBounded(t *testing.T) {
	f := Fixed{Pct: 2.0, RandomVariation: true, Rand: rand.New(rand.NewSource(42))}
	for i := 0; i < 50; i++ {
		factor := f.CalculateSlippageFactor(dec("10"), dec("100"), "BUY", "MARKET")
		assert.GreaterOrEqual(t, factor, 0.98)
		assert.LessOrEqual(t, factor, 1.02)
	}
}

func TestLinear_BoundedByMaxPct(t *testing.T) {
	l := Linear{BasePct: 1, SizeFactor: 1e-5, MaxPct: 10, Rand: rand.New(rand.NewSource(7))}
	for i := 0; i < 50; i++ {
		factor := l.CalculateSlippageFactor(dec("100"), dec("150"), "BUY", "MARKET")
		assert.GreaterOrEqual(t, factor, 0.90)
		assert.LessOrEqual(t, factor, 1.10)
	}
}

func TestLinear_LargeOrderCapsSizeImpact(t *testing.T) {
	l := Linear{BasePct: 0, SizeFactor: 1, MaxPct: 10, Rand: rand.New(rand.NewSource(1))}
	factor := l.CalculateSlippageFactor(dec("100000"), dec("100000"), "BUY", "MARKET")
	assert.InDelta(t, 1.10, factor, 1e-9)
}
