package transaction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/internal/cash"
	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestProcess_BuyDebitsCash(t *testing.T) {
	ids := idgen.New()
	cashMgr := cash.New(ids, dec("10000"), decimal.Zero)
	mgr := New(ids, cashMgr, 0)

	fill := types.Fill{Ticker: "BTC", Action: types.ActionBuy, Quantity: dec("10"), Price: dec("100"), Commission: dec("1"), Time: time.Now(), PortfolioID: "p1"}
	txn, err := mgr.Process(types.PortfolioStateActive, fill, 1, HeldBefore{})
	require.NoError(t, err)
	assert.True(t, txn.Quantity.Equal(dec("10")))
	assert.True(t, cashMgr.Balance().Equal(dec("8999")))
}

func TestProcess_RejectsWhenPortfolioNotActive(t *testing.T) {
	ids := idgen.New()
	cashMgr := cash.New(ids, dec("10000"), decimal.Zero)
	mgr := New(ids, cashMgr, 0)

	_, err := mgr.Process(types.PortfolioStateInactive, types.Fill{Action: types.ActionBuy, Quantity: dec("1"), Price: dec("1")}, 1, HeldBefore{})
	assert.ErrorIs(t, err, ErrPortfolioNotActive)
}

func TestProcess_SellCreditsCashAndChecksHoldings(t *testing.T) {
	ids := idgen.New()
	cashMgr := cash.New(ids, dec("1000"), decimal.Zero)
	mgr := New(ids, cashMgr, 0)
	held := HeldBefore{Quantity: dec("10"), WasLong: true}

	fill := types.Fill{Ticker: "BTC", Action: types.ActionSell, Quantity: dec("5"), Price: dec("100"), Commission: dec("1"), Time: time.Now()}
	_, err := mgr.Process(types.PortfolioStateActive, fill, 1, held)
	require.NoError(t, err)
	assert.True(t, cashMgr.Balance().Equal(dec("1499")))

	fillTooBig := types.Fill{Ticker: "BTC", Action: types.ActionSell, Quantity: dec("999"), Price: dec("100"), Time: time.Now()}
	_, err = mgr.Process(types.PortfolioStateActive, fillTooBig, 1, held)
	assert.Error(t, err)
}

func TestProcess_SellIgnoresHoldingsCheckWhenNotLong(t *testing.T) {
	ids := idgen.New()
	cashMgr := cash.New(ids, dec("1000"), decimal.Zero)
	mgr := New(ids, cashMgr, 0)

	fill := types.Fill{Ticker: "BTC", Action: types.ActionSell, Quantity: dec("5"), Price: dec("100"), Time: time.Now()}
	_, err := mgr.Process(types.PortfolioStateActive, fill, 1, HeldBefore{})
	require.NoError(t, err, "a SELL opening or adding to a short has nothing to check against")
}

func TestProcess_RejectsAtTransactionLimit(t *testing.T) {
	ids := idgen.New()
	cashMgr := cash.New(ids, dec("10000"), decimal.Zero)
	mgr := New(ids, cashMgr, 1)

	fill := types.Fill{Ticker: "BTC", Action: types.ActionBuy, Quantity: dec("1"), Price: dec("1"), Time: time.Now()}
	_, err := mgr.Process(types.PortfolioStateActive, fill, 1, HeldBefore{})
	require.NoError(t, err)

	_, err = mgr.Process(types.PortfolioStateActive, fill, 1, HeldBefore{})
	assert.ErrorIs(t, err, ErrTransactionLimitReached)
}
