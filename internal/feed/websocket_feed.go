package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/pkg/types"
)

// TradeMessage is the exchange trade-stream payload this feed parses:
// price, quantity, and a millisecond event timestamp per ticker tick.
// Grounded on web3guy0-polybot's internal/binance/client.go trade-stream
// handling (handleTradeMessage), generalized from a single hardcoded
// symbol to every ticker subscribed on one feed.
type TradeMessage struct {
	Ticker    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	EventTime time.Time
}

func parseTradeMessage(ticker string, data []byte) (TradeMessage, error) {
	var raw struct {
		Price string  `json:"p"`
		Qty   string  `json:"q"`
		Time  float64 `json:"T"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return TradeMessage{}, fmt.Errorf("websocket feed: decoding trade message: %w", err)
	}
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return TradeMessage{}, fmt.Errorf("websocket feed: invalid price %q: %w", raw.Price, err)
	}
	qty, err := decimal.NewFromString(raw.Qty)
	if err != nil {
		return TradeMessage{}, fmt.Errorf("websocket feed: invalid quantity %q: %w", raw.Qty, err)
	}
	return TradeMessage{
		Ticker:    ticker,
		Price:     price,
		Quantity:  qty,
		EventTime: time.UnixMilli(int64(raw.Time)),
	}, nil
}

// WebsocketFeed aggregates trade ticks from one exchange websocket URL
// into per-interval BarSets for tickers subscribed with Subscribe. It
// reconnects on read failure, mirroring the teacher's runWebSocket retry
// loop.
type WebsocketFeed struct {
	url      string
	interval time.Duration
	logger   *logrus.Entry

	mu       sync.Mutex
	conn     *websocket.Conn
	tickers  map[string]struct{}
	building map[string]*types.Bar
	barTime  time.Time

	out     chan types.BarSet
	stopCh  chan struct{}
	closed  bool
	running bool
}

// NewWebsocketFeed returns a feed that dials url and aggregates ticks
// into BarSets every interval.
func NewWebsocketFeed(url string, interval time.Duration) *WebsocketFeed {
	return &WebsocketFeed{
		url:      url,
		interval: interval,
		logger:   logrus.WithField("component", "websocket_feed"),
		tickers:  make(map[string]struct{}),
		building: make(map[string]*types.Bar),
		out:      make(chan types.BarSet, 64),
		stopCh:   make(chan struct{}),
	}
}

// Subscribe adds a ticker to the set this feed aggregates bars for. Must
// be called before Start.
func (f *WebsocketFeed) Subscribe(ticker string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickers[ticker] = struct{}{}
}

// Start dials the websocket and begins aggregating ticks in the
// background; BarSets become available through Next.
func (f *WebsocketFeed) Start() error {
	f.mu.Lock()
	f.running = true
	f.mu.Unlock()

	go f.run()
	go f.flushLoop()
	return nil
}

func (f *WebsocketFeed) run() {
	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			f.logger.WithError(err).Warn("websocket dial failed, retrying")
			time.Sleep(5 * time.Second)
			continue
		}

		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()

		f.readMessages(conn)

		select {
		case <-f.stopCh:
			return
		default:
			f.logger.Warn("websocket disconnected, reconnecting")
			time.Sleep(time.Second)
		}
	}
}

func (f *WebsocketFeed) readMessages(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			f.logger.WithError(err).Warn("websocket read error")
			return
		}
		f.handleMessage(msg)
	}
}

func (f *WebsocketFeed) handleMessage(raw []byte) {
	var envelope struct {
		Ticker string `json:"s"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Ticker == "" {
		return
	}
	trade, err := parseTradeMessage(envelope.Ticker, raw)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, tracked := f.tickers[trade.Ticker]; !tracked {
		return
	}
	bar, ok := f.building[trade.Ticker]
	if !ok {
		f.building[trade.Ticker] = &types.Bar{
			Ticker: trade.Ticker, Time: trade.EventTime,
			Open: trade.Price, High: trade.Price, Low: trade.Price, Close: trade.Price, Volume: trade.Quantity,
		}
		return
	}
	if trade.Price.GreaterThan(bar.High) {
		bar.High = trade.Price
	}
	if trade.Price.LessThan(bar.Low) {
		bar.Low = trade.Price
	}
	bar.Close = trade.Price
	bar.Volume = bar.Volume.Add(trade.Quantity)
}

func (f *WebsocketFeed) flushLoop() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stopCh:
			close(f.out)
			return
		case now := <-ticker.C:
			f.flush(now)
		}
	}
}

func (f *WebsocketFeed) flush(at time.Time) {
	f.mu.Lock()
	if len(f.building) == 0 {
		f.mu.Unlock()
		return
	}
	set := types.BarSet{Time: at, Bars: make(map[string]types.Bar, len(f.building))}
	for ticker, bar := range f.building {
		set.Bars[ticker] = *bar
	}
	f.building = make(map[string]*types.Bar)
	f.mu.Unlock()

	select {
	case f.out <- set:
	case <-f.stopCh:
	}
}

// Next blocks until the next aggregated BarSet is ready, or returns
// ok=false once Close has been called and the channel drains.
func (f *WebsocketFeed) Next() (types.BarSet, bool) {
	set, ok := <-f.out
	return set, ok
}

// Close stops the background goroutines and the websocket connection.
func (f *WebsocketFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	conn := f.conn
	f.mu.Unlock()

	close(f.stopCh)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
