package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bs-shop/internal/models"
	"bs-shop/internal/store"
	"bs-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService serves order history and administrative order operations.
// It never touches the conversion path.
type OrderService struct {
	store     Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(st Store, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// OrderView is a rendered order with its lines.
type OrderView struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	TotalAmount int64           `json:"total_amount"`
	Notes       string          `json:"notes"`
	Items       []OrderItemView `json:"items"`
	TotalItems  int             `json:"total_items"`
	ItemsCount  int             `json:"items_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ClientOrdersView is a client's full order history with aggregates.
type ClientOrdersView struct {
	Orders          []OrderView      `json:"orders"`
	TotalOrders     int              `json:"total_orders"`
	TotalSpent      int64            `json:"total_spent"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
}

// AdminOrderView is an order with owner detail, for the admin surface.
type AdminOrderView struct {
	OrderView
	Client            ClientInfo `json:"client"`
	WhatsAppMessageID *string    `json:"whatsapp_message_id,omitempty"`
}

// AdminOrdersView is a page of all orders plus store-wide aggregates.
type AdminOrdersView struct {
	Orders          []AdminOrderView `json:"orders"`
	Page            int              `json:"page"`
	PerPage         int              `json:"per_page"`
	TotalOrders     int64            `json:"total_orders"`
	TotalRevenue    int64            `json:"total_revenue"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
}

// StatusUpdateView reports an administrative status change.
type StatusUpdateView struct {
	ID            int64     `json:"id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	OldStatus     string    `json:"old_status"`
	StatusChanged bool      `json:"status_changed"`
	TotalAmount   int64     `json:"total_amount"`
	Notes         string    `json:"notes"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListClientOrders returns the caller's orders, newest first, with totals
// and a per-status breakdown.
func (s *OrderService) ListClientOrders(ctx context.Context, clientID int64) (*ClientOrdersView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListClientOrders")
	defer span.End()

	orders, err := s.store.GetOrdersByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	view := &ClientOrdersView{
		Orders:          make([]OrderView, 0, len(orders)),
		StatusBreakdown: emptyBreakdown(),
	}
	for i := range orders {
		order := &orders[i]
		rendered, err := s.renderOrder(ctx, order)
		if err != nil {
			return nil, err
		}
		view.Orders = append(view.Orders, *rendered)
		view.TotalSpent += order.TotalAmount
		view.StatusBreakdown[order.Status]++
	}
	view.TotalOrders = len(view.Orders)
	return view, nil
}

// GetClientOrder returns one of the caller's orders. Orders belonging to
// anyone else are reported as not found, not forbidden.
func (s *OrderService) GetClientOrder(ctx context.Context, clientID, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetClientOrder")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, ErrOrderNotFound
	}
	return s.renderOrder(ctx, order)
}

// ListAllOrders returns a page of every order plus store-wide aggregates.
func (s *OrderService) ListAllOrders(ctx context.Context, page, perPage int) (*AdminOrdersView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListAllOrders")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	orders, err := s.store.ListOrders(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	total, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	revenue, err := s.store.GetOrdersTotalRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	counts, err := s.store.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	breakdown := emptyBreakdown()
	for status, count := range counts {
		breakdown[status] = count
	}

	view := &AdminOrdersView{
		Orders:          make([]AdminOrderView, 0, len(orders)),
		Page:            page,
		PerPage:         perPage,
		TotalOrders:     total,
		TotalRevenue:    revenue,
		StatusBreakdown: breakdown,
	}
	for i := range orders {
		rendered, err := s.renderAdminOrder(ctx, &orders[i])
		if err != nil {
			return nil, err
		}
		view.Orders = append(view.Orders, *rendered)
	}
	return view, nil
}

// GetOrderDetail returns one order with owner detail, for admins.
func (s *OrderService) GetOrderDetail(ctx context.Context, orderID int64) (*AdminOrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrderDetail")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.renderAdminOrder(ctx, order)
}

// UpdateStatus applies an administrative status transition, optionally
// replacing the notes. The frozen total is never recomputed. Publishes an
// OrderStatusChanged event after the update.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string, notes *string) (*StatusUpdateView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := s.store.UpdateOrderStatus(ctx, orderID, status, notes); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrderStatusUpdatesTotal.WithLabelValues(status).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", status))

	if oldStatus != status {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID:   orderID,
			OldStatus: oldStatus,
			NewStatus: status,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}

	updatedNotes := order.Notes
	if notes != nil {
		updatedNotes = *notes
	}
	return &StatusUpdateView{
		ID:            orderID,
		OrderNumber:   OrderNumber(orderID),
		Status:        status,
		OldStatus:     oldStatus,
		StatusChanged: oldStatus != status,
		TotalAmount:   order.TotalAmount,
		Notes:         updatedNotes,
		UpdatedAt:     time.Now(),
	}, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) renderOrder(ctx context.Context, order *models.Order) (*OrderView, error) {
	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	lines, err := loadOrderLines(ctx, s.store, items)
	if err != nil {
		return nil, err
	}

	view := &OrderView{
		ID:          order.ID,
		OrderNumber: OrderNumber(order.ID),
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Notes:       order.Notes,
		Items:       make([]OrderItemView, 0, len(lines)),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for i := range lines {
		line := &lines[i]
		item := OrderItemView{
			ProductName: line.Product.Name,
			Quantity:    line.Item.Quantity,
			UnitPrice:   line.Item.UnitPrice,
			TotalPrice:  line.Item.TotalPrice,
		}
		if line.Variant != nil {
			name := line.Variant.Name
			item.VariantName = &name
		}
		view.Items = append(view.Items, item)
		view.TotalItems += line.Item.Quantity
		view.ItemsCount++
	}
	return view, nil
}

func (s *OrderService) renderAdminOrder(ctx context.Context, order *models.Order) (*AdminOrderView, error) {
	rendered, err := s.renderOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	view := &AdminOrderView{
		OrderView:         *rendered,
		WhatsAppMessageID: order.WhatsAppMessageID,
		Client:            ClientInfo{ID: order.ClientID},
	}
	owner, err := s.store.GetUserByID(ctx, order.ClientID)
	if err != nil {
		s.logger.Warn("Failed to load order owner",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return view, nil
	}
	view.Client.Name = owner.Name
	view.Client.Email = owner.Email
	view.Client.IsExistingUser = !owner.IsGuest
	return view, nil
}

func emptyBreakdown() map[string]int64 {
	breakdown := make(map[string]int64, len(models.OrderStatuses))
	for _, status := range models.OrderStatuses {
		breakdown[status] = 0
	}
	return breakdown
}
