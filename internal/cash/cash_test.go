package cash

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/internal/idgen"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newManager(initial string) *Manager {
	return New(idgen.New(), dec(initial), decimal.Zero)
}

func TestDeposit_IncreasesBalance(t *testing.T) {
	m := newManager("1000")
	require.NoError(t, m.Deposit(dec("500"), "top up", "ref1"))
	assert.True(t, m.Balance().Equal(dec("1500")))
	assert.Len(t, m.Log(), 1)
}

func TestDeposit_RejectsNonPositive(t *testing.T) {
	m := newManager("1000")
	err := m.Deposit(dec("0"), "bad", "ref1")
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	m := newManager("100")
	err := m.Withdraw(dec("200"), "too much", "ref1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, m.Balance().Equal(dec("100")))
}

func TestReserve_DoesNotChangeBalance(t *testing.T) {
	m := newManager("1000")
	require.NoError(t, m.ReserveCash(dec("300"), "hold", "ref1"))
	assert.True(t, m.Balance().Equal(dec("1000")))
	assert.True(t, m.Reserved().Equal(dec("300")))
	assert.True(t, m.Available().Equal(dec("700")))
}

func TestReserve_AvailableCannotCoverTwice(t *testing.T) {
	m := newManager("1000")
	require.NoError(t, m.ReserveCash(dec("900"), "hold1", "ref1"))
	err := m.ReserveCash(dec("200"), "hold2", "ref2")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestReleaseReservation_ExcessRejected(t *testing.T) {
	m := newManager("1000")
	require.NoError(t, m.ReserveCash(dec("300"), "hold", "ref1"))
	err := m.ReleaseCashReservation(dec("400"), "release", "ref1")
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestProcessTransactionCashFlow_DebitAndCredit(t *testing.T) {
	m := newManager("1000")
	require.NoError(t, m.ProcessTransactionCashFlow(dec("250"), true, "buy", "txn1"))
	assert.True(t, m.Balance().Equal(dec("750")))

	require.NoError(t, m.ProcessTransactionCashFlow(dec("100"), false, "sell", "txn2"))
	assert.True(t, m.Balance().Equal(dec("850")))
}

func TestDeposit_RejectsOverMaxBalance(t *testing.T) {
	m := New(idgen.New(), dec("1000"), dec("1100"))
	err := m.Deposit(dec("200"), "too much", "ref1")
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}
