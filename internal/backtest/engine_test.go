package backtest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/internal/backtest"
	"github.com/coretrade/engine/internal/events"
	"github.com/coretrade/engine/internal/feed"
	"github.com/coretrade/engine/internal/feemodel"
	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/internal/ordermanager"
	"github.com/coretrade/engine/internal/orderhandler"
	"github.com/coretrade/engine/internal/orderstore"
	"github.com/coretrade/engine/internal/ordervalidate"
	"github.com/coretrade/engine/internal/portfolio"
	"github.com/coretrade/engine/internal/portfoliohandler"
	"github.com/coretrade/engine/internal/simexchange"
	"github.com/coretrade/engine/internal/strategy"
	"github.com/coretrade/engine/internal/strategyhost"
	"github.com/coretrade/engine/pkg/types"
)

func writeBarCSV(t *testing.T, closes []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	content := "time,ticker,open,high,low,close,volume\n"
	for i, c := range closes {
		ts := "2024-01-0" + string(rune('1'+i)) + "T00:00:00Z"
		content += ts + ",BTCUSDT," + c + "," + c + "," + c + "," + c + ",1000\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// buildPortfolio wires one portfolio's full accounting+order stack the
// way cmd/backtest will: Portfolio facade, OrderManager over a
// simulated exchange, and an OrderHandler in front of the validator.
func buildPortfolio(t *testing.T, portfolioID string, dispatcher *events.Dispatcher, handler *portfoliohandler.Handler) {
	t.Helper()
	ids := idgen.New()

	cfg := types.PortfolioConfig{
		PortfolioID:         portfolioID,
		InitialCash:         dec("10000"),
		Exchange:            "default",
		MaxPositionValue:    dec("5000"),
		MaxPortfolioValue:   dec("20000"),
		MaxOpenPositions:    10,
		MaxConcentrationPct: dec("100"),
		MaxTransactionCount: 1000,
	}
	p := portfolio.New(cfg, ids)
	handler.Register(p, portfolioID)

	exchange := simexchange.New(simexchange.DefaultPreset())
	storage := orderstore.New()
	fees := feemodel.NewPercent(dec("0.001"))
	mgr := ordermanager.New(portfolioID, ordermanager.NextBar, storage, exchange, fees)

	validator := ordervalidate.New(ordervalidate.RiskLimits{
		MinOrderValue:      dec("0"),
		MaxOrderValue:      dec("100000"),
		MinQuantity:        dec("0"),
		MaxQuantity:        dec("1000"),
		MinPrice:           dec("0"),
		MaxPrice:           dec("1000000"),
		SupportedExchanges: map[string]bool{"default": true},
	})
	oh := orderhandler.New(portfolioID, ids, validator, mgr, storage)

	dispatcher.RegisterPortfolio(portfolioID, oh, mgr, func() ordervalidate.PortfolioState {
		return ordervalidate.PortfolioState{
			Exchange: p.Exchange(),
			Cash:     p.Cash.Available(),
			HeldQuantity: func(ticker string) decimal.Decimal {
				pos, ok := p.Positions.Open(ticker)
				if !ok {
					return decimal.Zero
				}
				return pos.NetQuantity()
			},
		}
	})
}

func TestEngine_RunsFileFeedThroughFullPipeline(t *testing.T) {
	path := writeBarCSV(t, []string{"100", "105", "110", "95", "90"})
	f, err := feed.NewFileFeed(path)
	require.NoError(t, err)

	queue := events.NewQueue()
	universe := events.NewUniverse()
	handler := portfoliohandler.New()
	dispatcher := events.NewDispatcher(queue, universe, handler)

	buildPortfolio(t, "p1", dispatcher, handler)

	host := strategyhost.New("p1")
	require.NoError(t, host.Register(strategy.NewSMACrossover("sma", 1, 2, dec("1"))))
	dispatcher.RegisterStrategy(host)

	eventStore, err := backtest.NewEventStore(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)

	engine := backtest.NewEngine(f, dispatcher, handler, eventStore)
	report, err := engine.Run()
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.FinalEquity.IsPositive())
	assert.GreaterOrEqual(t, len(engine.Snapshots()), 1)
}

func TestEngine_ReturnsErrorWhenFeedIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,ticker,open,high,low,close,volume\n"), 0o644))
	f, err := feed.NewFileFeed(path)
	require.NoError(t, err)

	queue := events.NewQueue()
	universe := events.NewUniverse()
	handler := portfoliohandler.New()
	dispatcher := events.NewDispatcher(queue, universe, handler)

	engine := backtest.NewEngine(f, dispatcher, handler, nil)
	_, err = engine.Run()
	assert.Error(t, err)
}
