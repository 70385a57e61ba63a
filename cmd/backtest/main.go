package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/backtest"
	"github.com/coretrade/engine/internal/config"
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

// cmd/backtest is the single-threaded backtest driver: it reads a
// config file the way internal/config does, builds the file
// feed, wires a portfolio and strategy onto the shared dispatcher, runs
// backtest.Engine to completion, and writes the report. Adapted from
// the teacher's cmd/backtest/main.go flag/config layout, rebuilt around
// this engine's Engine/Report/PortfolioConfig types instead of the
// teacher's now-removed BacktestEngine/BacktestConfig.
func main() {
	var (
		configPath   = flag.String("config", "", "YAML config file path (see internal/config)")
		dataPath     = flag.String("data", "./backtest_data/bars.csv", "Historical bar CSV path")
		strategyName = flag.String("strategy", "sma", "Strategy name (sma, momentum)")
		ticker       = flag.String("ticker", "BTCUSDT", "Ticker traded by the strategy")
		capital      = flag.String("capital", "10000", "Initial cash")
		quantity     = flag.String("quantity", "1", "Fixed order quantity per signal")
		shortPeriod  = flag.Int("short-period", 10, "SMA short period")
		longPeriod   = flag.Int("long-period", 30, "SMA long period")
		lookback     = flag.Int("lookback", 20, "Momentum lookback bars")
		threshold    = flag.String("threshold", "0.02", "Momentum entry threshold")
		outputDir    = flag.String("output", "./backtest_results", "Report output directory")
		eventLog     = flag.String("event-log", "", "Optional JSONL event log path")
	)
	flag.Parse()

	logger := logrus.WithField("component", "cmd.backtest")

	loader, err := config.New(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("loading config")
	}

	f, err := feed.NewFileFeed(*dataPath)
	if err != nil {
		logger.WithError(err).Fatal("opening data feed")
	}

	const portfolioID = "backtest"
	queue := events.NewQueue()
	universe := events.NewUniverse()
	universe.Add(*ticker)
	handler := portfoliohandler.New()
	dispatcher := events.NewDispatcher(queue, universe, handler)

	ids := idgen.New()
	initialCash := decimal.RequireFromString(*capital)
	portfolioCfg := loader.PortfolioConfig(portfolioID, types.PortfolioConfig{
		PortfolioID:         portfolioID,
		InitialCash:         initialCash,
		Exchange:            "backtest",
		MaxPositionValue:    initialCash,
		MaxPortfolioValue:   initialCash.Mul(decimal.NewFromInt(10)),
		MaxOpenPositions:    20,
		MaxConcentrationPct: decimal.NewFromInt(100),
		MaxTransactionCount: 1_000_000,
	})
	p := portfolio.New(portfolioCfg, ids)
	handler.Register(p, portfolioID)

	exchange := simexchange.New(loader.ExchangePreset(portfolioCfg.Exchange))
	storage := orderstore.New()
	fees := feemodel.NewPercent(decimal.NewFromFloat(0.001))
	mgr := ordermanager.New(portfolioID, ordermanager.NextBar, storage, exchange, fees)

	validator := ordervalidate.New(ordervalidate.RiskLimits{
		MinOrderValue:      decimal.Zero,
		MaxOrderValue:      initialCash.Mul(decimal.NewFromInt(10)),
		MinQuantity:        decimal.Zero,
		MaxQuantity:        decimal.NewFromInt(1_000_000),
		MinPrice:           decimal.Zero,
		MaxPrice:           decimal.NewFromInt(100_000_000),
		SupportedExchanges: map[string]bool{portfolioCfg.Exchange: true},
	})
	oh := orderhandler.New(portfolioID, ids, validator, mgr, storage)

	dispatcher.RegisterPortfolio(portfolioID, oh, mgr, func() ordervalidate.PortfolioState {
		return ordervalidate.PortfolioState{
			Exchange: p.Exchange(),
			Cash:     p.Cash.Available(),
			HeldQuantity: func(t string) decimal.Decimal {
				pos, ok := p.Positions.Open(t)
				if !ok {
					return decimal.Zero
				}
				return pos.NetQuantity()
			},
		}
	})

	strat, err := buildStrategy(*strategyName, *shortPeriod, *longPeriod, *lookback,
		decimal.RequireFromString(*threshold), decimal.RequireFromString(*quantity))
	if err != nil {
		logger.WithError(err).Fatal("building strategy")
	}
	host := strategyhost.New(portfolioID)
	if err := host.Register(strat); err != nil {
		logger.WithError(err).Fatal("registering strategy")
	}
	dispatcher.RegisterStrategy(host)

	var eventStore *backtest.EventStore
	if *eventLog != "" {
		eventStore, err = backtest.NewEventStore(*eventLog)
		if err != nil {
			logger.WithError(err).Fatal("opening event log")
		}
	}

	engine := backtest.NewEngine(f, dispatcher, handler, eventStore)
	logger.WithFields(logrus.Fields{
		"strategy": *strategyName,
		"ticker":   *ticker,
		"data":     *dataPath,
	}).Info("starting backtest")

	report, err := engine.Run()
	if err != nil {
		logger.WithError(err).Fatal("backtest run failed")
	}

	displaySummary(report)

	if err := backtest.WriteReport(report, *outputDir); err != nil {
		logger.WithError(err).Error("writing report")
		os.Exit(1)
	}
	fmt.Printf("\nReport written to %s\n", *outputDir)
}

func buildStrategy(name string, shortPeriod, longPeriod, lookback int, threshold, quantity decimal.Decimal) (strategyhost.Strategy, error) {
	switch name {
	case "sma", "moving_average":
		return strategy.NewSMACrossover("sma", shortPeriod, longPeriod, quantity), nil
	case "momentum":
		return strategy.NewMomentum("momentum", lookback, threshold, quantity), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

func displaySummary(r *backtest.Report) {
	fmt.Printf("\n=== Backtest Results ===\n")
	fmt.Printf("Initial Equity: %s\n", r.InitialEquity.String())
	fmt.Printf("Final Equity:   %s\n", r.FinalEquity.String())
	fmt.Printf("Total Return:   %.2f%%\n", r.TotalReturnPct)
	fmt.Printf("Max Drawdown:   %.2f%%\n", r.MaxDrawdownPct)
	fmt.Printf("Sharpe Ratio:   %.2f\n", r.SharpeRatio)
	fmt.Printf("Sortino Ratio:  %.2f\n", r.SortinoRatio)

	if r.TotalTrades > 0 {
		fmt.Printf("\n=== Trade Statistics ===\n")
		fmt.Printf("Total Trades:   %d\n", r.TotalTrades)
		fmt.Printf("Winning Trades: %d\n", r.WinningTrades)
		fmt.Printf("Losing Trades:  %d\n", r.LosingTrades)
		fmt.Printf("Win Rate:       %.2f%%\n", r.WinRate*100)
		fmt.Printf("Profit Factor:  %.2f\n", r.ProfitFactor)
	}
}
