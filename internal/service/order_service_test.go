package service

import (
	"context"
	"testing"
	"time"

	"bs-shop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(m *mockStore, clientID int64, totalAmount int64, status string) *models.Order {
	order := &models.Order{
		ID:          m.id(),
		ClientID:    clientID,
		TotalAmount: totalAmount,
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.orders[order.ID] = order
	m.orderItems[order.ID] = []models.OrderItem{
		{
			ID:         m.id(),
			OrderID:    order.ID,
			ProductID:  1,
			Quantity:   2,
			UnitPrice:  totalAmount / 2,
			TotalPrice: totalAmount,
		},
	}
	return order
}

func TestListClientOrders(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	seedOrder(m, 5, 1000, models.OrderStatusPending)
	seedOrder(m, 5, 3000, models.OrderStatusAccepted)
	seedOrder(m, 9, 500, models.OrderStatusPending)

	svc := NewOrderService(m, &mockPublisher{})

	view, err := svc.ListClientOrders(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalOrders)
	assert.Equal(t, int64(4000), view.TotalSpent)
	assert.Equal(t, int64(1), view.StatusBreakdown[models.OrderStatusPending])
	assert.Equal(t, int64(1), view.StatusBreakdown[models.OrderStatusAccepted])
	assert.Equal(t, int64(0), view.StatusBreakdown[models.OrderStatusCancelled])
}

func TestGetClientOrderOwnership(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	order := seedOrder(m, 9, 1000, models.OrderStatusPending)

	svc := NewOrderService(m, &mockPublisher{})

	// someone else's order must look like it does not exist
	_, err := svc.GetClientOrder(context.Background(), 5, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	view, err := svc.GetClientOrder(context.Background(), 9, order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderNumber(order.ID), view.OrderNumber)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, "Espresso", view.Items[0].ProductName)
}

func TestGetClientOrderMissing(t *testing.T) {
	m := newMockStore()
	svc := NewOrderService(m, &mockPublisher{})

	_, err := svc.GetClientOrder(context.Background(), 5, 4242)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListAllOrders(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	m.users[5] = &models.User{ID: 5, Name: "Ada", Email: "ada@example.com"}
	seedOrder(m, 5, 1000, models.OrderStatusPending)
	seedOrder(m, 5, 2000, models.OrderStatusCancelled)

	svc := NewOrderService(m, &mockPublisher{})

	view, err := svc.ListAllOrders(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, view.Page, "page defaults apply")
	assert.Equal(t, 20, view.PerPage)
	assert.Equal(t, int64(2), view.TotalOrders)
	assert.Equal(t, int64(3000), view.TotalRevenue)
	assert.Equal(t, int64(1), view.StatusBreakdown[models.OrderStatusCancelled])
	require.Len(t, view.Orders, 2)
	for _, order := range view.Orders {
		assert.Equal(t, "Ada", order.Client.Name)
	}
}

func TestUpdateStatusInvalid(t *testing.T) {
	m := newMockStore()
	svc := NewOrderService(m, &mockPublisher{})

	_, err := svc.UpdateStatus(context.Background(), 1, "shipped", nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	m := newMockStore()
	svc := NewOrderService(m, &mockPublisher{})

	_, err := svc.UpdateStatus(context.Background(), 777, models.OrderStatusAccepted, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusPublishesEvent(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	order := seedOrder(m, 5, 1000, models.OrderStatusPending)

	publisher := &mockPublisher{}
	svc := NewOrderService(m, publisher)

	view, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusAccepted, strPtr("confirmed by phone"))

	require.NoError(t, err)
	assert.True(t, view.StatusChanged)
	assert.Equal(t, models.OrderStatusPending, view.OldStatus)
	assert.Equal(t, models.OrderStatusAccepted, view.Status)
	assert.Equal(t, "confirmed by phone", view.Notes)
	assert.Equal(t, int64(1000), view.TotalAmount, "frozen total untouched")

	assert.Equal(t, models.OrderStatusAccepted, m.orders[order.ID].Status)
	assert.Equal(t, "confirmed by phone", m.orders[order.ID].Notes)

	require.Len(t, publisher.statusChanged, 1)
	assert.Equal(t, order.ID, publisher.statusChanged[0].OrderID)
	assert.Equal(t, models.OrderStatusPending, publisher.statusChanged[0].OldStatus)
	assert.Equal(t, models.OrderStatusAccepted, publisher.statusChanged[0].NewStatus)
}

func TestUpdateStatusSameStatusNoEvent(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	order := seedOrder(m, 5, 1000, models.OrderStatusPending)

	publisher := &mockPublisher{}
	svc := NewOrderService(m, publisher)

	view, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusPending, nil)

	require.NoError(t, err)
	assert.False(t, view.StatusChanged)
	assert.Empty(t, publisher.statusChanged)
}
