package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newTestPortfolio(t *testing.T) *Portfolio {
	t.Helper()
	cfg := types.PortfolioConfig{
		PortfolioID:         "p1",
		InitialCash:         dec("10000"),
		Exchange:            "sim",
		MaxOpenPositions:    5,
		MaxPositionValue:    dec("5000"),
		MaxConcentrationPct: dec("0.5"),
	}
	return New(cfg, idgen.New())
}

func TestProcessFill_BuyThenSellClosesPosition(t *testing.T) {
	p := newTestPortfolio(t)
	now := time.Now()

	_, closed, err := p.ProcessFill(types.Fill{
		Ticker: "BTCUSDT", Action: types.ActionBuy, Price: dec("100"), Quantity: dec("2"), Commission: dec("1"), Time: now,
	})
	require.NoError(t, err)
	assert.False(t, closed)
	assert.True(t, p.Cash.Balance().LessThan(dec("10000")))

	pos, ok := p.Positions.Open("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, "LONG", pos.Side)

	_, closed, err = p.ProcessFill(types.Fill{
		Ticker: "BTCUSDT", Action: types.ActionSell, Price: dec("110"), Quantity: dec("2"), Commission: dec("1"), Time: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, closed)

	_, stillOpen := p.Positions.Open("BTCUSDT")
	assert.False(t, stillOpen)
}

func TestProcessFill_RejectsWhenNotActive(t *testing.T) {
	p := newTestPortfolio(t)
	require.NoError(t, p.TransitionState(types.PortfolioStateInactive, time.Now(), "maintenance"))

	_, _, err := p.ProcessFill(types.Fill{Ticker: "BTCUSDT", Action: types.ActionBuy, Price: dec("100"), Quantity: dec("1"), Time: time.Now()})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestTransitionState_RejectsInvalidTransition(t *testing.T) {
	p := newTestPortfolio(t)
	require.NoError(t, p.TransitionState(types.PortfolioStateArchived, time.Now(), "done"))

	err := p.TransitionState(types.PortfolioStateActive, time.Now(), "reopen")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Len(t, p.StateHistory(), 1)
}

func TestCheckTradeLimits_RejectsOverMaxPositionValue(t *testing.T) {
	p := newTestPortfolio(t)
	err := p.CheckTradeLimits("BTCUSDT", dec("6000"))
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCheckTradeLimits_RejectsWhenPositionCountAtLimit(t *testing.T) {
	p := newTestPortfolio(t)
	p.config.MaxOpenPositions = 1
	now := time.Now()
	_, _, err := p.ProcessFill(types.Fill{Ticker: "AAA", Action: types.ActionBuy, Price: dec("10"), Quantity: dec("1"), Time: now})
	require.NoError(t, err)

	err = p.CheckTradeLimits("BBB", dec("10"))
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestSnapshot_ReflectsCashAndMarketValue(t *testing.T) {
	p := newTestPortfolio(t)
	now := time.Now()
	_, _, err := p.ProcessFill(types.Fill{Ticker: "BTCUSDT", Action: types.ActionBuy, Price: dec("100"), Quantity: dec("2"), Commission: dec("1"), Time: now})
	require.NoError(t, err)

	p.UpdateMarketValues(types.BarSet{Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("120"), Time: now}}}, now)

	snap := p.Snapshot(now)
	assert.Equal(t, 1, snap.OpenPositions)
	assert.True(t, snap.TotalUnrealisedPnL.GreaterThan(decimal.Zero))
}

func TestHealth_TracksDrawdown(t *testing.T) {
	p := newTestPortfolio(t)
	p.config.DrawdownLimitPct = dec("0.05")
	now := time.Now()
	_, _, err := p.ProcessFill(types.Fill{Ticker: "BTCUSDT", Action: types.ActionBuy, Price: dec("100"), Quantity: dec("10"), Time: now})
	require.NoError(t, err)

	p.UpdateMarketValues(types.BarSet{Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("80"), Time: now}}}, now)

	health := p.Health()
	assert.True(t, health.CurrentDrawdownPct.GreaterThan(decimal.Zero))
	assert.True(t, health.DrawdownBreached)
}
