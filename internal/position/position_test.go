package position

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

func txn(ticker, action string, qty, price, commission string) types.Transaction {
	return types.Transaction{
		Ticker:     ticker,
		Action:     action,
		Quantity:   dec(qty),
		Price:      dec(price),
		Commission: dec(commission),
		Time:       time.Now(),
	}
}

func TestProcessPositionUpdate_OpensLong(t *testing.T) {
	m := New(idgen.New())
	pos, closed := m.ProcessPositionUpdate(txn("BTC", types.ActionBuy, "10", "100", "1"))
	assert.False(t, closed)
	assert.Equal(t, types.PositionSideLong, pos.Side)
	assert.True(t, pos.BuyQuantity.Equal(dec("10")))
	assert.True(t, pos.NetQuantity().Equal(dec("10")))
}

func TestProcessPositionUpdate_AveragesIn(t *testing.T) {
	m := New(idgen.New())
	m.ProcessPositionUpdate(txn("BTC", types.ActionBuy, "10", "100", "1"))
	pos, _ := m.ProcessPositionUpdate(txn("BTC", types.ActionBuy, "10", "200", "1"))
	assert.True(t, pos.AvgBought.Equal(dec("150")))
	assert.True(t, pos.BuyQuantity.Equal(dec("20")))
}

func TestProcessPositionUpdate_ClosesOnZeroNet(t *testing.T) {
	m := New(idgen.New())
	m.ProcessPositionUpdate(txn("BTC", types.ActionBuy, "10", "100", "1"))
	pos, closed := m.ProcessPositionUpdate(txn("BTC", types.ActionSell, "10", "110", "1"))
	require.True(t, closed)
	assert.NotNil(t, pos.ExitDate)
	assert.Empty(t, m.OpenPositions())
	assert.Len(t, m.ClosedPositions(), 1)
}

func TestProcessPositionUpdate_ShortOpensAndCovers(t *testing.T) {
	m := New(idgen.New())
	pos, _ := m.ProcessPositionUpdate(txn("ETH", types.ActionSell, "5", "200", "0.5"))
	assert.Equal(t, types.PositionSideShort, pos.Side)
	assert.True(t, pos.NetQuantity().Equal(dec("-5")))

	pos, closed := m.ProcessPositionUpdate(txn("ETH", types.ActionBuy, "5", "180", "0.5"))
	assert.True(t, closed)
	assert.True(t, pos.RealisedPnL().GreaterThan(decimal.Zero))
}

func TestUpdateMarketValues_OnlyAffectsOpenPositions(t *testing.T) {
	m := New(idgen.New())
	m.ProcessPositionUpdate(txn("BTC", types.ActionBuy, "10", "100", "1"))
	m.ProcessPositionUpdate(txn("ETH", types.ActionBuy, "1", "200", "0"))
	m.ProcessPositionUpdate(txn("ETH", types.ActionSell, "1", "210", "0"))

	bars := types.BarSet{
		Time: time.Now(),
		Bars: map[string]types.Bar{
			"BTC": {Ticker: "BTC", Close: dec("150")},
			"ETH": {Ticker: "ETH", Close: dec("999")},
		},
	}
	m.UpdateMarketValues(bars, time.Now())

	btc, _ := m.Open("BTC")
	assert.True(t, btc.CurrentPrice.Equal(dec("150")))
	assert.True(t, m.ClosedPositions()[0].CurrentPrice.IsZero())
}
