package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/coretrade/engine/pkg/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snap(portfolioID string, at time.Time, equity string) types.PortfolioSnapshot {
	return types.PortfolioSnapshot{PortfolioID: portfolioID, Time: at, TotalEquity: d(equity)}
}

func txn(ticker, action, price string, at time.Time) types.Transaction {
	return types.Transaction{Ticker: ticker, Action: action, Price: d(price), Quantity: d("1"), Time: at}
}

func TestNewReport_ComputesReturnAndDrawdown(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	snapshots := []types.PortfolioSnapshot{
		snap("p1", day1, "10000"),
		snap("p1", day2, "9000"),
		snap("p1", day3, "11000"),
	}

	r := NewReport(snapshots, nil)

	assert.True(t, r.InitialEquity.Equal(d("10000")))
	assert.True(t, r.FinalEquity.Equal(d("11000")))
	assert.True(t, r.TotalReturn.Equal(d("1000")))
	assert.True(t, r.MaxDrawdown.Equal(d("1000")))
	assert.Len(t, r.DailyReturns, 2)
}

func TestNewReport_AggregatesAcrossPortfolios(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	snapshots := []types.PortfolioSnapshot{
		snap("p1", day1, "5000"),
		snap("p2", day1, "5000"),
		snap("p1", day2, "6000"),
		snap("p2", day2, "6000"),
	}

	r := NewReport(snapshots, nil)
	assert.True(t, r.InitialEquity.Equal(d("10000")))
	assert.True(t, r.FinalEquity.Equal(d("12000")))
}

func TestNewReport_TracksWinningAndLosingTrades(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	trades := []types.Transaction{
		txn("BTCUSDT", "BUY", "100", t1),
		txn("BTCUSDT", "SELL", "110", t2),
	}

	r := NewReport(nil, trades)
	assert.Equal(t, 2, r.TotalTrades)
	assert.Equal(t, 1, r.WinningTrades)
	assert.True(t, r.BestTrade.Equal(d("10")))
}

func TestCalculateSharpeRatio_FlatReturnsIsZero(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01, 0.01}
	assert.Equal(t, 0.0, CalculateSharpeRatio(returns, 0))
}

func TestCalculateSharpeRatio_EmptyReturnsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, CalculateSharpeRatio(nil, 0))
}
