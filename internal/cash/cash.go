// Package cash implements CashManager: deposits, withdrawals,
// transaction cash flow, and reservations, all guarded by a
// single mutex and recorded to an append-only CashOperation audit log.
//
// Grounded on the locking/validation style of
// internal/risk/manager.go in the teacher repo.
package cash

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/pkg/types"
)

// ErrInvalidTransaction covers a non-positive amount, a deposit that
// would exceed MaxBalance, or a reservation release larger than the
// amount currently reserved.
var ErrInvalidTransaction = errors.New("cash: invalid transaction")

// ErrInsufficientFunds is returned when available balance is less than
// the amount required for a withdrawal, debit, or reservation.
var ErrInsufficientFunds = errors.New("cash: insufficient funds")

// Manager holds one portfolio's cash balance and reservation, and its
// append-only audit log. All mutating operations run under mu so the
// balance/reserved invariants (balance>=0, reserved>=0, reserved<=balance)
// never observe a half-applied update.
type Manager struct {
	mu         sync.Mutex
	ids        *idgen.IDGen
	balance    decimal.Decimal
	reserved   decimal.Decimal
	maxBalance decimal.Decimal // zero means unbounded
	log        []types.CashOperation
}

// New creates a Manager with the given starting balance. maxBalance of
// decimal.Zero means no upper bound is enforced.
func New(ids *idgen.IDGen, initialBalance, maxBalance decimal.Decimal) *Manager {
	return &Manager{
		ids:        ids,
		balance:    initialBalance,
		maxBalance: maxBalance,
	}
}

// Balance returns the current total balance.
func (m *Manager) Balance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// Reserved returns the currently reserved amount.
func (m *Manager) Reserved() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserved
}

// Available returns balance - reserved.
func (m *Manager) Available() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance.Sub(m.reserved)
}

// Log returns a copy of the audit trail recorded so far.
func (m *Manager) Log() []types.CashOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.CashOperation, len(m.log))
	copy(out, m.log)
	return out
}

func (m *Manager) record(opType string, amount, before, after decimal.Decimal, desc, refID string) types.CashOperation {
	op := types.CashOperation{
		OperationID:   m.ids.NextCashOpID(),
		OperationType: opType,
		Amount:        amount,
		Timestamp:     time.Now(),
		Description:   desc,
		ReferenceID:   refID,
		BalanceBefore: before,
		BalanceAfter:  after,
	}
	m.log = append(m.log, op)
	return op
}

// Deposit increases the balance by amount.
func (m *Manager) Deposit(amount decimal.Decimal, desc, refID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: deposit amount must be positive, got %s", ErrInvalidTransaction, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.balance
	after := before.Add(amount)
	if !m.maxBalance.IsZero() && after.GreaterThan(m.maxBalance) {
		return fmt.Errorf("%w: deposit would exceed max balance %s", ErrInvalidTransaction, m.maxBalance)
	}
	m.balance = types.RoundCash(after)
	m.record(types.CashOpDeposit, amount, before, m.balance, desc, refID)
	return nil
}

// Withdraw decreases the balance by amount, failing if the withdrawal
// would leave available balance negative.
func (m *Manager) Withdraw(amount decimal.Decimal, desc, refID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: withdrawal amount must be positive, got %s", ErrInvalidTransaction, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	available := m.balance.Sub(m.reserved)
	if available.LessThan(amount) {
		return fmt.Errorf("%w: available %s < requested %s", ErrInsufficientFunds, available, amount)
	}
	before := m.balance
	m.balance = types.RoundCash(before.Sub(amount))
	m.record(types.CashOpWithdrawal, amount, before, m.balance, desc, refID)
	return nil
}

// ProcessTransactionCashFlow debits or credits the balance for a
// completed trade transaction, called by TransactionManager.
func (m *Manager) ProcessTransactionCashFlow(amount decimal.Decimal, isDebit bool, desc, txnID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: cash flow amount must be positive, got %s", ErrInvalidTransaction, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.balance
	if isDebit {
		available := before.Sub(m.reserved)
		if available.LessThan(amount) {
			return fmt.Errorf("%w: available %s < required %s", ErrInsufficientFunds, available, amount)
		}
		m.balance = types.RoundCash(before.Sub(amount))
		m.record(types.CashOpTransactionDebit, amount, before, m.balance, desc, txnID)
		return nil
	}
	m.balance = types.RoundCash(before.Add(amount))
	m.record(types.CashOpTransactionCredit, amount, before, m.balance, desc, txnID)
	return nil
}

// ReserveCash earmarks amount against future settlement without
// touching the total balance.
func (m *Manager) ReserveCash(amount decimal.Decimal, desc, refID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: reservation amount must be positive, got %s", ErrInvalidTransaction, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	available := m.balance.Sub(m.reserved)
	if available.LessThan(amount) {
		return fmt.Errorf("%w: available %s < requested reservation %s", ErrInsufficientFunds, available, amount)
	}
	before := m.balance
	m.reserved = types.RoundCash(m.reserved.Add(amount))
	m.record(types.CashOpReservation, amount, before, m.balance, desc, refID)
	return nil
}

// ReleaseCashReservation frees a previously reserved amount, failing if
// it exceeds what's currently reserved.
func (m *Manager) ReleaseCashReservation(amount decimal.Decimal, desc, refID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: release amount must be positive, got %s", ErrInvalidTransaction, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reserved.LessThan(amount) {
		return fmt.Errorf("%w: cannot release %s, only %s reserved", ErrInvalidTransaction, amount, m.reserved)
	}
	before := m.balance
	m.reserved = types.RoundCash(m.reserved.Sub(amount))
	m.record(types.CashOpReleaseReservation, amount, before, m.balance, desc, refID)
	return nil
}
