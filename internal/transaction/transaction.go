// Package transaction implements TransactionManager: validates a
// prospective transaction against portfolio state, then delegates the
// cash-affecting side to cash.Manager and appends a Transaction record
// on success.
package transaction

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/internal/cash"
	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/pkg/types"
)

// ErrPortfolioNotActive is returned when a transaction is attempted
// against a portfolio that isn't in the ACTIVE state.
var ErrPortfolioNotActive = errors.New("transaction: portfolio is not active")

// ErrTransactionLimitReached is returned once a portfolio's transaction
// count cap has been hit.
var ErrTransactionLimitReached = errors.New("transaction: transaction count limit reached")

// HeldBefore snapshots the position a fill's ticker held immediately
// before the fill was applied to it, so Process can check holdings
// against pre-fill state instead of the already-updated (and possibly
// already-closed-and-removed) position.
type HeldBefore struct {
	Quantity decimal.Decimal
	WasLong  bool
}

// Manager validates and records transactions for one portfolio.
type Manager struct {
	mu          sync.Mutex
	ids         *idgen.IDGen
	cashMgr     *cash.Manager
	maxTxnCount int
	history     []types.Transaction
}

// New returns a Manager delegating cash movement to cashMgr.
// maxTxnCount of 0 means unbounded.
func New(ids *idgen.IDGen, cashMgr *cash.Manager, maxTxnCount int) *Manager {
	return &Manager{ids: ids, cashMgr: cashMgr, maxTxnCount: maxTxnCount}
}

// History returns a copy of every recorded transaction.
func (m *Manager) History() []types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Transaction, len(m.history))
	copy(out, m.history)
	return out
}

// Process validates a fill-derived transaction against portfolio state
// and, on success, debits/credits cash and appends the Transaction
// record. portfolioState is the current PortfolioState constant (e.g.
// types.PortfolioStateActive); held is the ticker's position as it
// stood immediately before this fill was applied.
func (m *Manager) Process(portfolioState string, fill types.Fill, positionID int64, held HeldBefore) (types.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if portfolioState != types.PortfolioStateActive {
		return types.Transaction{}, fmt.Errorf("%w: state=%s", ErrPortfolioNotActive, portfolioState)
	}
	if m.maxTxnCount > 0 && len(m.history) >= m.maxTxnCount {
		return types.Transaction{}, fmt.Errorf("%w: limit=%d", ErrTransactionLimitReached, m.maxTxnCount)
	}

	txn := types.Transaction{
		TransactionID: m.ids.NextTransactionID(),
		PortfolioID:   fill.PortfolioID,
		PositionID:    positionID,
		Time:          fill.Time,
		Ticker:        fill.Ticker,
		Action:        fill.Action,
		Quantity:      fill.Quantity,
		Price:         fill.Price,
		Commission:    fill.Commission,
	}

	if fill.Action == types.ActionBuy {
		required := fill.Quantity.Mul(fill.Price).Add(fill.Commission)
		if m.cashMgr.Available().LessThan(required) {
			return types.Transaction{}, fmt.Errorf("%w: required %s available %s", cash.ErrInsufficientFunds, required, m.cashMgr.Available())
		}
		if err := m.cashMgr.ProcessTransactionCashFlow(required, true, "buy", fmt.Sprintf("txn-%d", txn.TransactionID)); err != nil {
			return types.Transaction{}, err
		}
	} else {
		if err := validateSellHoldings(fill, held); err != nil {
			return types.Transaction{}, err
		}
		credit := fill.Quantity.Mul(fill.Price).Sub(fill.Commission)
		if err := m.cashMgr.ProcessTransactionCashFlow(credit, false, "sell", fmt.Sprintf("txn-%d", txn.TransactionID)); err != nil {
			return types.Transaction{}, err
		}
	}

	m.history = append(m.history, txn)
	return txn, nil
}

// validateSellHoldings is lenient for SHORT-opening sells (no existing
// position, or an existing SHORT) and only checks held quantity for a
// SELL reducing a LONG — using the position as it stood before this
// fill, since a fully-closing SELL has already removed it by the time
// Process runs.
func validateSellHoldings(fill types.Fill, held HeldBefore) error {
	if !held.WasLong {
		return nil
	}
	if held.Quantity.LessThan(fill.Quantity) {
		return fmt.Errorf("transaction: held quantity %s < sell quantity %s", held.Quantity, fill.Quantity)
	}
	return nil
}
