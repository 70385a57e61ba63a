package portfoliohandler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/internal/portfolio"
	"github.com/coretrade/engine/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestHandleFill_UpdatesPortfolioAndEmitsUpdateEvent(t *testing.T) {
	h := New()
	p := portfolio.New(types.PortfolioConfig{PortfolioID: "p1", InitialCash: dec("10000")}, idgen.New())
	h.Register(p, "p1")

	now := time.Now()
	evt, err := h.HandleFill(types.Fill{PortfolioID: "p1", Ticker: "BTCUSDT", Action: types.ActionBuy, Price: dec("100"), Quantity: dec("1"), Time: now})
	require.NoError(t, err)
	assert.Equal(t, types.EventPortfolioUpdate, evt.Kind)
	assert.Equal(t, "p1", evt.PortfolioUpdate.PortfolioID)
}

func TestHandleFill_UnknownPortfolioErrors(t *testing.T) {
	h := New()
	_, err := h.HandleFill(types.Fill{PortfolioID: "missing", Time: time.Now()})
	assert.Error(t, err)
}

func TestMarkToMarket_UpdatesAllPortfolios(t *testing.T) {
	h := New()
	p := portfolio.New(types.PortfolioConfig{PortfolioID: "p1", InitialCash: dec("10000")}, idgen.New())
	h.Register(p, "p1")
	now := time.Now()
	_, err := h.HandleFill(types.Fill{PortfolioID: "p1", Ticker: "BTCUSDT", Action: types.ActionBuy, Price: dec("100"), Quantity: dec("1"), Time: now})
	require.NoError(t, err)

	h.MarkToMarket(types.BarSet{Time: now, Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("150"), Time: now}}})

	snaps := h.Snapshots(now)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].TotalUnrealisedPnL.GreaterThan(decimal.Zero))
}
