package orderstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coretrade/engine/pkg/types"
)

func TestSaveAndDeactivate(t *testing.T) {
	s := New()
	o := &types.Order{OrderID: 1, PortfolioID: "p1", Status: types.OrderStatusPending}
	s.SaveOrder(o)

	assert.Len(t, s.ActiveOrders("p1"), 1)
	assert.Len(t, s.AllOrders("p1"), 1)

	s.DeactivateOrder("p1", 1)
	assert.Empty(t, s.ActiveOrders("p1"))
	assert.Len(t, s.AllOrders("p1"), 1)
}

func TestUpdateOrder_RemovesFromActiveWhenTerminal(t *testing.T) {
	s := New()
	o := &types.Order{OrderID: 1, PortfolioID: "p1", Status: types.OrderStatusPending}
	s.SaveOrder(o)

	o.Status = types.OrderStatusFilled
	s.UpdateOrder(o)

	assert.Empty(t, s.ActiveOrders("p1"))
	got, ok := s.GetOrder("p1", 1)
	assert.True(t, ok)
	assert.Equal(t, types.OrderStatusFilled, got.Status)
}

func TestActiveOrders_SortedByOrderID(t *testing.T) {
	s := New()
	s.SaveOrder(&types.Order{OrderID: 3, PortfolioID: "p1", Status: types.OrderStatusPending})
	s.SaveOrder(&types.Order{OrderID: 1, PortfolioID: "p1", Status: types.OrderStatusPending})
	s.SaveOrder(&types.Order{OrderID: 2, PortfolioID: "p1", Status: types.OrderStatusPending})

	orders := s.ActiveOrders("p1")
	assert.Equal(t, []int64{1, 2, 3}, []int64{orders[0].OrderID, orders[1].OrderID, orders[2].OrderID})
}

func TestArchiveOrders_MovesTerminalOrdersBeforeCutoff(t *testing.T) {
	s := New()
	old := &types.Order{OrderID: 1, PortfolioID: "p1", Status: types.OrderStatusFilled, CreatedAt: time.Now().Add(-48 * time.Hour)}
	recent := &types.Order{OrderID: 2, PortfolioID: "p1", Status: types.OrderStatusFilled, CreatedAt: time.Now()}
	s.SaveOrder(old)
	s.SaveOrder(recent)

	moved := s.ArchiveOrders(time.Now().Add(-24 * time.Hour))
	assert.Equal(t, 1, moved)
	assert.Len(t, s.ArchivedOrders("p1"), 1)
	assert.Len(t, s.AllOrders("p1"), 1)
}
