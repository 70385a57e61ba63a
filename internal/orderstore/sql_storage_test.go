package orderstore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/pkg/types"
)

func TestSQLStorage_SaveAndQuery(t *testing.T) {
	store, err := NewSQLStorage(":memory:")
	require.NoError(t, err)

	o := &types.Order{OrderID: 1, PortfolioID: "p1", Status: types.OrderStatusPending, CreatedAt: time.Now()}
	store.SaveOrder(o)

	active := store.ActiveOrders("p1")
	assert.Len(t, active, 1)

	o.Status = types.OrderStatusFilled
	store.UpdateOrder(o)
	assert.Empty(t, store.ActiveOrders("p1"))

	got, ok := store.GetOrder("p1", 1)
	assert.True(t, ok)
	assert.Equal(t, types.OrderStatusFilled, got.Status)
}

func TestSQLStorage_DeactivateOrderPreservesStatus(t *testing.T) {
	store, err := NewSQLStorage(":memory:")
	require.NoError(t, err)

	o := &types.Order{OrderID: 1, PortfolioID: "p1", Status: types.OrderStatusFilled, FilledQuantity: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(1), CreatedAt: time.Now()}
	store.SaveOrder(o)

	store.DeactivateOrder("p1", 1)

	assert.Empty(t, store.ActiveOrders("p1"))
	got, ok := store.GetOrder("p1", 1)
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusFilled, got.Status, "deactivating a filled order must not rewrite its status")
}

func TestSQLStorage_ArchiveOrders(t *testing.T) {
	store, err := NewSQLStorage(":memory:")
	require.NoError(t, err)

	old := &types.Order{OrderID: 1, PortfolioID: "p1", Status: types.OrderStatusFilled, CreatedAt: time.Now().Add(-48 * time.Hour)}
	store.SaveOrder(old)

	moved := store.ArchiveOrders(time.Now().Add(-24 * time.Hour))
	assert.Equal(t, 1, moved)
	assert.Len(t, store.ArchivedOrders("p1"), 1)
}
