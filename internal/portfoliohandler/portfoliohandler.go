// Package portfoliohandler implements PortfolioHandler: the registry
// of live Portfolio instances, dispatching each FillEvent
// to its owning portfolio and emitting the resulting PortfolioUpdateEvent.
package portfoliohandler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/portfolio"
	"github.com/coretrade/engine/pkg/types"
)

// Handler owns every portfolio in the run and routes fills to the right one.
type Handler struct {
	mu         sync.RWMutex
	portfolios map[string]*portfolio.Portfolio
	logger     *logrus.Entry
}

// New returns an empty Handler.
func New() *Handler {
	return &Handler{
		portfolios: make(map[string]*portfolio.Portfolio),
		logger:     logrus.WithField("component", "portfoliohandler"),
	}
}

// Register adds a portfolio to the handler under its PortfolioID.
func (h *Handler) Register(p *portfolio.Portfolio, portfolioID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.portfolios[portfolioID] = p
}

// Get returns the portfolio registered under portfolioID, if any.
func (h *Handler) Get(portfolioID string) (*portfolio.Portfolio, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.portfolios[portfolioID]
	return p, ok
}

// PortfolioIDs returns every registered portfolio ID in a stable order.
func (h *Handler) PortfolioIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.portfolios))
	for id := range h.portfolios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HandleFill routes a FillEvent's payload to its portfolio's accounting
// books and returns the PortfolioUpdateEvent produced.
func (h *Handler) HandleFill(fill types.Fill) (types.Event, error) {
	h.mu.RLock()
	p, ok := h.portfolios[fill.PortfolioID]
	h.mu.RUnlock()
	if !ok {
		return types.Event{}, fmt.Errorf("portfoliohandler: unknown portfolio %q", fill.PortfolioID)
	}

	if _, _, err := p.ProcessFill(fill); err != nil {
		return types.Event{}, fmt.Errorf("portfoliohandler: processing fill for %q: %w", fill.PortfolioID, err)
	}

	snap := p.Snapshot(fill.Time)
	update := types.PortfolioUpdate{
		Time:        fill.Time,
		PortfolioID: snap.PortfolioID,
		AvailableCash: types.PortfolioCashSnapshot{
			Balance:   snap.CashBalance.String(),
			Reserved:  snap.CashReserved.String(),
			Available: snap.CashAvailable.String(),
		},
		TotalEquity:   snap.TotalEquity.String(),
		OpenPositions: snap.OpenPositions,
	}
	return types.NewPortfolioUpdateEvent(update), nil
}

// MarkToMarket updates every registered portfolio's open positions from
// a bar set — called on every BarEvent before strategies run.
func (h *Handler) MarkToMarket(bars types.BarSet) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.portfolios {
		p.UpdateMarketValues(bars, bars.Time)
	}
}

// AllTransactions returns every transaction recorded across every
// registered portfolio, grouped by portfolio ID in PortfolioIDs order.
// Used by the performance analyzer to build a run-wide trade ledger.
func (h *Handler) AllTransactions() []types.Transaction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.portfolios))
	for id := range h.portfolios {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []types.Transaction
	for _, id := range ids {
		out = append(out, h.portfolios[id].Transactions.History()...)
	}
	return out
}

// Snapshots returns a PortfolioSnapshot for every registered portfolio,
// ordered by portfolio ID.
func (h *Handler) Snapshots(at time.Time) []types.PortfolioSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.portfolios))
	for id := range h.portfolios {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]types.PortfolioSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, h.portfolios[id].Snapshot(at))
	}
	return out
}
