package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/backtest"
	"github.com/coretrade/engine/internal/config"
	"github.com/coretrade/engine/internal/events"
	"github.com/coretrade/engine/internal/feed"
	"github.com/coretrade/engine/internal/feemodel"
	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/internal/notify"
	"github.com/coretrade/engine/internal/ordermanager"
	"github.com/coretrade/engine/internal/orderhandler"
	"github.com/coretrade/engine/internal/orderstore"
	"github.com/coretrade/engine/internal/ordervalidate"
	"github.com/coretrade/engine/internal/portfolio"
	"github.com/coretrade/engine/internal/portfoliohandler"
	"github.com/coretrade/engine/internal/screener"
	"github.com/coretrade/engine/internal/simexchange"
	"github.com/coretrade/engine/internal/strategy"
	"github.com/coretrade/engine/internal/strategyhost"
	"github.com/coretrade/engine/pkg/nats"
	"github.com/coretrade/engine/pkg/types"
)

// cmd/liveengine drives the live path: a small pool of worker threads
// where one thread owns the event-processing loop and external
// feed/notifier threads enqueue events onto the thread-safe global
// queue. It wires a WebsocketFeed, a NATS mirror
// of the dispatched event stream, and a Telegram fill notifier onto the
// same Dispatcher/portfolio stack cmd/backtest uses, since execution
// stays simulated (simexchange.Exchange) in both paths — only the bar
// source and the thread topology differ.
func main() {
	var (
		configPath   = flag.String("config", "", "YAML config file path (see internal/config)")
		wsURL        = flag.String("ws-url", "", "Exchange trade-stream websocket URL")
		barInterval  = flag.Duration("bar-interval", time.Minute, "Bar aggregation interval")
		tickers      = flag.String("tickers", "BTCUSDT", "Comma-separated tickers to trade")
		strategyName = flag.String("strategy", "sma", "Strategy name (sma, momentum)")
		capital      = flag.String("capital", "10000", "Initial cash")
		quantity     = flag.String("quantity", "1", "Fixed order quantity per signal")
		shortPeriod  = flag.Int("short-period", 10, "SMA short period")
		longPeriod   = flag.Int("long-period", 30, "SMA long period")
		lookback     = flag.Int("lookback", 20, "Momentum lookback bars")
		threshold    = flag.String("threshold", "0.02", "Momentum entry threshold")
		natsURL      = flag.String("nats-url", "", "NATS server URL; empty disables the event mirror")
		telegramToken = flag.String("telegram-token", "", "Telegram bot token; empty disables notifications")
		telegramChat  = flag.Int64("telegram-chat", 0, "Telegram chat ID")
		sweepInterval = flag.Duration("sweep-interval", 30*time.Second, "Expired-order sweep interval")
		eventLog      = flag.String("event-log", "", "Optional JSONL event log path")
		screenMinVol  = flag.String("screener-min-volume", "0", "Minimum bar volume a ticker must clear to stay in the tradable universe")
		screenMinPx   = flag.String("screener-min-price", "0", "Minimum close price a ticker must clear to stay in the tradable universe")
	)
	flag.Parse()

	logger := logrus.WithField("component", "cmd.liveengine")

	loader, err := config.New(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("loading config")
	}

	const portfolioID = "live"
	queue := events.NewQueue()
	universe := events.NewUniverse()
	for _, t := range strings.Split(*tickers, ",") {
		universe.Add(strings.TrimSpace(t))
	}
	handler := portfoliohandler.New()
	dispatcher := events.NewDispatcher(queue, universe, handler)

	ids := idgen.New()
	initialCash := decimal.RequireFromString(*capital)
	portfolioCfg := loader.PortfolioConfig(portfolioID, types.PortfolioConfig{
		PortfolioID:         portfolioID,
		InitialCash:         initialCash,
		Exchange:            "live",
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
	mgr := ordermanager.New(portfolioID, ordermanager.Immediate, storage, exchange, fees)

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

	strat, err := buildLiveStrategy(*strategyName, *shortPeriod, *longPeriod, *lookback,
		decimal.RequireFromString(*threshold), decimal.RequireFromString(*quantity))
	if err != nil {
		logger.WithError(err).Fatal("building strategy")
	}
	host := strategyhost.New(portfolioID)
	if err := host.Register(strat); err != nil {
		logger.WithError(err).Fatal("registering strategy")
	}
	dispatcher.RegisterStrategy(host)

	watchlist := make(map[string]screener.Threshold, len(universe.Tickers()))
	for _, t := range universe.Tickers() {
		watchlist[t] = screener.Threshold{
			MinVolume: decimal.RequireFromString(*screenMinVol),
			MinPrice:  decimal.RequireFromString(*screenMinPx),
		}
	}
	scr := screener.New(watchlist)

	var sinks []events.Sink
	if *eventLog != "" {
		store, err := backtest.NewEventStore(*eventLog)
		if err != nil {
			logger.WithError(err).Fatal("opening event log")
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if *natsURL != "" {
		client, err := nats.NewClient(&nats.Config{
			URL:      *natsURL,
			ClientID: "liveengine",
			Streams: []nats.StreamConfig{
				{Name: "ENGINE_EVENTS", Subjects: []string{"engine.events.>"}},
			},
		})
		if err != nil {
			logger.WithError(err).Fatal("connecting to nats")
		}
		defer client.Close()
		sinks = append(sinks, events.NewNatsSink(client))
	}

	notifier := notify.Notifier(notify.Noop{})
	if *telegramToken != "" {
		tg, err := notify.NewTelegram(*telegramToken, *telegramChat)
		if err != nil {
			logger.WithError(err).Fatal("connecting to telegram")
		}
		notifier = tg
	} else {
		notifier = notify.NewLogging(logger)
	}
	sinks = append(sinks, events.NewNotifySink(notifier))
	dispatcher.SetSink(events.NewMultiSink(sinks...))

	wsFeed := feed.NewWebsocketFeed(*wsURL, *barInterval)
	for _, t := range universe.Tickers() {
		wsFeed.Subscribe(t)
	}
	if err := wsFeed.Start(); err != nil {
		logger.WithError(err).Fatal("starting websocket feed")
	}
	defer wsFeed.Close()

	stop := make(chan struct{})
	go pumpBars(wsFeed, scr, queue, stop)
	go sweepExpiredOrders(mgr, queue, *sweepInterval, stop)

	logger.WithFields(logrus.Fields{
		"strategy": *strategyName,
		"tickers":  *tickers,
		"ws_url":   *wsURL,
	}).Info("starting live engine")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		close(stop)
	}()

	dispatcher.Run(stop)
	logger.Info("live engine stopped")
}

func buildLiveStrategy(name string, shortPeriod, longPeriod, lookback int, threshold, quantity decimal.Decimal) (strategyhost.Strategy, error) {
	switch name {
	case "sma", "moving_average":
		return strategy.NewSMACrossover("sma", shortPeriod, longPeriod, quantity), nil
	case "momentum":
		return strategy.NewMomentum("momentum", lookback, threshold, quantity), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

// pumpBars relays aggregated bars from the websocket feed onto the
// dispatcher's queue, running the screener against each bar and pushing
// any resulting SCREENER event before the BAR event it was evaluated
// from (the queue's canonical order still drains a waiting BAR ahead of
// a SCREENER), until stop is closed or the feed channel drains.
func pumpBars(f *feed.WebsocketFeed, scr *screener.Screener, queue *events.Queue, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		bars, ok := f.Next()
		if !ok {
			return
		}
		if update, changed := scr.Evaluate(bars); changed {
			queue.Push(types.NewScreenerEvent(update))
		}
		queue.Push(types.NewBarEvent(bars))
	}
}

// sweepExpiredOrders periodically enqueues EXPIRED transitions for
// orders past their expirationTime. The backtest path never auto-sweeps
// expirations, but the live loop has a natural place to run it.
func sweepExpiredOrders(mgr *ordermanager.Manager, queue *events.Queue, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			for _, e := range mgr.SweepExpired(now) {
				queue.Push(e)
			}
		}
	}
}
