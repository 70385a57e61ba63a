// Package portfolio implements Portfolio: a thread-safe
// façade composing CashManager, PositionManager, and TransactionManager,
// accepting fills only while ACTIVE, checking trading limits on request
// (CheckTradeLimits), and recording timestamped state transitions.
//
// Grounded on the lock-guarded limit-checking shape of
// internal/risk/manager.go in the teacher repo, generalized from a
// risk-engine add-on into the portfolio's own boundary enforcement.
package portfolio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/cash"
	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/internal/position"
	"github.com/coretrade/engine/internal/transaction"
	"github.com/coretrade/engine/pkg/types"
)

// ErrNotActive is returned by any trading operation attempted while the
// portfolio isn't in the ACTIVE state.
var ErrNotActive = errors.New("portfolio: not in ACTIVE state")

// ErrLimitExceeded is returned when a prospective trade would breach a
// configured hard limit (position count, per-position value, concentration).
var ErrLimitExceeded = errors.New("portfolio: limit exceeded")

// ErrInvalidStateTransition is returned by TransitionState for a move
// the portfolio state machine doesn't allow (e.g. ARCHIVED -> ACTIVE).
var ErrInvalidStateTransition = errors.New("portfolio: invalid state transition")

var validStateTransitions = map[string]map[string]bool{
	types.PortfolioStateActive: {
		types.PortfolioStateInactive: true,
		types.PortfolioStateArchived: true,
	},
	types.PortfolioStateInactive: {
		types.PortfolioStateActive:   true,
		types.PortfolioStateArchived: true,
	},
}

// Portfolio composes the three accounting managers behind one mutex and
// enforces the portfolio's trading boundary.
type Portfolio struct {
	mu     sync.RWMutex
	config types.PortfolioConfig
	state  string
	history []types.StateChange

	Cash        *cash.Manager
	Positions   *position.Manager
	Transactions *transaction.Manager

	peakEquity       decimal.Decimal
	dailyStartEquity decimal.Decimal

	logger *logrus.Entry
}

// New creates a Portfolio in the ACTIVE state with the given config,
// sharing ids with the rest of the engine so OrderID/PositionID/
// TransactionID sequences stay globally monotonic.
func New(config types.PortfolioConfig, ids *idgen.IDGen) *Portfolio {
	cashMgr := cash.New(ids, config.InitialCash, config.MaxPortfolioValue)
	positionMgr := position.New(ids)
	txnMgr := transaction.New(ids, cashMgr, config.MaxTransactionCount)

	return &Portfolio{
		config:           config,
		state:            types.PortfolioStateActive,
		Cash:             cashMgr,
		Positions:        positionMgr,
		Transactions:     txnMgr,
		peakEquity:       config.InitialCash,
		dailyStartEquity: config.InitialCash,
		logger:           logrus.WithField("component", "portfolio").WithField("portfolioId", config.PortfolioID),
	}
}

// State returns the portfolio's current lifecycle state.
func (p *Portfolio) State() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// CanTrade reports whether the portfolio currently accepts new trades.
func (p *Portfolio) CanTrade() bool {
	return p.State() == types.PortfolioStateActive
}

// TransitionState moves the portfolio to a new lifecycle state,
// rejecting transitions the state machine doesn't allow.
func (p *Portfolio) TransitionState(to string, at time.Time, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	allowed, ok := validStateTransitions[p.state]
	if !ok || !allowed[to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.state, to)
	}
	p.history = append(p.history, types.StateChange{From: p.state, To: to, Time: at, Reason: reason})
	p.state = to
	p.logger.WithFields(logrus.Fields{"from": p.history[len(p.history)-1].From, "to": to}).Info("portfolio state transition")
	return nil
}

// StateHistory returns a copy of every recorded state transition.
func (p *Portfolio) StateHistory() []types.StateChange {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.StateChange, len(p.history))
	copy(out, p.history)
	return out
}

// CheckTradeLimits checks a prospective trade against the position-count,
// per-position-value, and concentration limits, returning ErrNotActive or
// a wrapped ErrLimitExceeded. proposedValue is quantity*price for the
// prospective trade. The signal-to-order path (OrderHandler and
// OrderValidator) does not call it, so orders are not held to these limits.
func (p *Portfolio) CheckTradeLimits(ticker string, proposedValue decimal.Decimal) error {
	if !p.CanTrade() {
		return ErrNotActive
	}

	_, alreadyHeld := p.Positions.Open(ticker)
	if !alreadyHeld && p.config.MaxOpenPositions > 0 && len(p.Positions.OpenPositions()) >= p.config.MaxOpenPositions {
		return fmt.Errorf("%w: position count at limit %d", ErrLimitExceeded, p.config.MaxOpenPositions)
	}

	if !p.config.MaxPositionValue.IsZero() && proposedValue.GreaterThan(p.config.MaxPositionValue) {
		return fmt.Errorf("%w: position value %s exceeds max %s", ErrLimitExceeded, proposedValue, p.config.MaxPositionValue)
	}

	if !p.config.MaxConcentrationPct.IsZero() {
		equity := p.totalEquity()
		if equity.IsPositive() {
			existing := decimal.Zero
			if pos, ok := p.Positions.Open(ticker); ok {
				existing = pos.MarketValue().Abs()
			}
			largest := existing.Add(proposedValue)
			for _, pos := range p.Positions.OpenPositions() {
				if pos.Ticker != ticker && pos.MarketValue().Abs().GreaterThan(largest) {
					largest = pos.MarketValue().Abs()
				}
			}
			concentration := largest.Div(equity)
			if concentration.GreaterThan(p.config.MaxConcentrationPct) {
				return fmt.Errorf("%w: concentration %s exceeds max %s", ErrLimitExceeded, concentration, p.config.MaxConcentrationPct)
			}
		}
	}
	return nil
}

// ProcessFill applies a FILL event to the portfolio's position and cash
// books: PositionManager updates first, then
// TransactionManager routes the financial side to CashManager.
func (p *Portfolio) ProcessFill(fill types.Fill) (types.Transaction, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != types.PortfolioStateActive {
		return types.Transaction{}, false, ErrNotActive
	}

	var heldBeforeUpdate decimal.Decimal
	var wasLong bool
	if existing, ok := p.Positions.Open(fill.Ticker); ok {
		heldBeforeUpdate = existing.NetQuantity()
		wasLong = existing.Side == types.PositionSideLong
	}

	posTxn := types.Transaction{
		Ticker:     fill.Ticker,
		Action:     fill.Action,
		Quantity:   fill.Quantity,
		Price:      fill.Price,
		Commission: fill.Commission,
		Time:       fill.Time,
	}
	pos, closed := p.Positions.ProcessPositionUpdate(posTxn)

	txn, err := p.Transactions.Process(p.state, fill, pos.PositionID, transaction.HeldBefore{Quantity: heldBeforeUpdate, WasLong: wasLong})
	if err != nil {
		return types.Transaction{}, closed, fmt.Errorf("portfolio: processing fill: %w", err)
	}

	p.updateHealthMetrics()
	return txn, closed, nil
}

// UpdateMarketValues marks every open position to market from a bar set
// and refreshes peak-equity tracking for drawdown monitoring.
func (p *Portfolio) UpdateMarketValues(bars types.BarSet, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Positions.UpdateMarketValues(bars, at)
	p.updateHealthMetrics()
}

func (p *Portfolio) updateHealthMetrics() {
	equity := p.totalEquity()
	if equity.GreaterThan(p.peakEquity) {
		p.peakEquity = equity
	}
}

func (p *Portfolio) totalEquity() decimal.Decimal {
	return p.Cash.Balance().Add(p.Positions.TotalMarketValue())
}

// Health reports the portfolio's soft risk metrics.
func (p *Portfolio) Health() types.HealthMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	equity := p.totalEquity()

	drawdownPct := decimal.Zero
	if p.peakEquity.IsPositive() {
		drawdownPct = p.peakEquity.Sub(equity).Div(p.peakEquity)
	}
	dailyPnLPct := decimal.Zero
	if p.dailyStartEquity.IsPositive() {
		dailyPnLPct = equity.Sub(p.dailyStartEquity).Div(p.dailyStartEquity)
	}

	metrics := types.HealthMetrics{
		PeakEquity:         p.peakEquity,
		CurrentDrawdownPct: drawdownPct,
		DailyStartEquity:   p.dailyStartEquity,
		DailyPnLPct:        dailyPnLPct,
	}
	if !p.config.DrawdownLimitPct.IsZero() {
		metrics.DrawdownBreached = drawdownPct.GreaterThan(p.config.DrawdownLimitPct)
	}
	if !p.config.DailyLossLimitPct.IsZero() {
		metrics.DailyLossBreached = dailyPnLPct.IsNegative() && dailyPnLPct.Abs().GreaterThan(p.config.DailyLossLimitPct)
	}
	return metrics
}

// ResetDailyTracking stamps the current equity as the new daily
// baseline, typically called once per session day by the engine driver.
func (p *Portfolio) ResetDailyTracking() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dailyStartEquity = p.totalEquity()
}

// Snapshot returns a point-in-time, read-only view of the portfolio's
// aggregate state.
func (p *Portfolio) Snapshot(at time.Time) types.PortfolioSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	balance := p.Cash.Balance()
	reserved := p.Cash.Reserved()
	marketValue := p.Positions.TotalMarketValue()
	return types.PortfolioSnapshot{
		PortfolioID:        p.config.PortfolioID,
		State:              p.state,
		Time:               at,
		CashBalance:        balance,
		CashReserved:       reserved,
		CashAvailable:      balance.Sub(reserved),
		TotalMarketValue:   marketValue,
		TotalEquity:        balance.Add(marketValue),
		TotalUnrealisedPnL: p.Positions.TotalUnrealisedPnL(),
		TotalRealisedPnL:   p.Positions.TotalRealisedPnL(),
		OpenPositions:      len(p.Positions.OpenPositions()),
	}
}

// Exchange returns the portfolio's configured exchange name, used by
// OrderValidator phase 2 (market conditions).
func (p *Portfolio) Exchange() string {
	return p.config.Exchange
}
