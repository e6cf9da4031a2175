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

// CheckoutService converts cart sessions into orders.
type CheckoutService struct {
	store     Store
	cache     CartCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(st Store, cache CartCache, publisher EventPublisher) *CheckoutService {
	return &CheckoutService{
		store:     st,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CheckoutRequest carries one conversion attempt. Caller is the
// authenticated user, if any. GuestOnly forces guest provisioning and
// ignores the caller entirely.
type CheckoutRequest struct {
	SessionToken string
	Notes        string
	Caller       *models.User
	GuestOnly    bool
}

// ClientInfo summarizes the identity owning the new order.
type ClientInfo struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	IsExistingUser bool   `json:"is_existing_user"`
}

// OrderItemView is one rendered order line.
type OrderItemView struct {
	ProductName string  `json:"product_name"`
	VariantName *string `json:"variant_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	TotalPrice  int64   `json:"total_price"`
}

// OrderItemsSummary aggregates the lines of an order.
type OrderItemsSummary struct {
	TotalItems int       `json:"total_items"`
	ItemsCount int       `json:"items_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderSummary is the order representation returned on checkout.
type OrderSummary struct {
	ID          int64             `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      string            `json:"status"`
	TotalAmount int64             `json:"total_amount"`
	Notes       string            `json:"notes"`
	ClientInfo  ClientInfo        `json:"client_info"`
	Items       []OrderItemView   `json:"items"`
	Summary     OrderItemsSummary `json:"summary"`
}

// CheckoutResponse is the conversion result. WhatsAppMessage and NextSteps
// are only populated on the authenticated checkout path.
type CheckoutResponse struct {
	Order           OrderSummary `json:"order"`
	WhatsAppMessage string       `json:"whatsapp_message,omitempty"`
	NextSteps       []string     `json:"next_steps,omitempty"`
}

// identityResolution is the decision of who owns the new order. Exactly one
// of clientID / guest is set.
type identityResolution struct {
	clientID    int64
	guest       *models.User
	linkSession bool
}

// resolveIdentity applies the ownership precedence: authenticated caller
// first (relinking the session when it points elsewhere), then the session's
// linked identity, then guest provisioning. guestOnly forces the guest path.
func resolveIdentity(caller *models.User, session *models.CartSession, guestOnly bool) identityResolution {
	if !guestOnly && caller != nil {
		return identityResolution{
			clientID:    caller.ID,
			linkSession: session.ClientID == nil || *session.ClientID != caller.ID,
		}
	}
	if !guestOnly && session.ClientID != nil {
		return identityResolution{clientID: *session.ClientID}
	}
	return identityResolution{guest: newGuestUser(session.SessionToken), linkSession: true}
}

// newGuestUser builds the minimal placeholder account that owns a guest
// order. The unique email keeps repeated guest checkouts from colliding.
func newGuestUser(sessionToken string) *models.User {
	suffix := sessionToken
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return &models.User{
		Name:          "Client " + suffix,
		Email:         fmt.Sprintf("guest_%d@bs-shop.local", time.Now().UnixNano()),
		WhatsAppPhone: "+33000000000",
		Role:          models.RoleClient,
		IsActive:      true,
		IsGuest:       true,
	}
}

// Checkout runs the full conversion pipeline: load the live session, load
// and validate the cart lines, resolve the owning identity, convert the cart
// inside one transaction, then publish the post-commit event and render the
// response. The availability check always runs here, at conversion time,
// regardless of what any earlier display-time check said.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ConversionLatency.Observe(time.Since(start).Seconds())
	}()

	session, err := s.store.GetCartSessionByToken(ctx, req.SessionToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.ConversionsFailedTotal.WithLabelValues("session_expired").Inc()
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to load cart session: %w", err)
	}

	lines, err := loadCartLines(ctx, s.store, session.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		util.ConversionsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	if unavailable := ValidateCartLines(lines); len(unavailable) > 0 {
		util.ConversionsFailedTotal.WithLabelValues("unavailable_items").Inc()
		return nil, &UnavailableItemsError{Items: unavailable}
	}

	resolution := resolveIdentity(req.Caller, session, req.GuestOnly)

	convertLines := make([]store.ConvertLine, 0, len(lines))
	var totalAmount int64
	for i := range lines {
		line := &lines[i]
		convertLines = append(convertLines, store.ConvertLine{
			ProductID:      line.Item.ProductID,
			VariantID:      line.Item.ProductVariantID,
			Quantity:       line.Item.Quantity,
			UnitPrice:      line.UnitPrice(),
			DecrementStock: line.Variant != nil && line.Variant.StockQuantity != nil,
		})
		totalAmount += line.TotalPrice()
	}

	order, items, err := s.store.ConvertCart(ctx, store.ConvertCartParams{
		SessionID:   session.ID,
		ClientID:    resolution.clientID,
		Guest:       resolution.guest,
		LinkSession: resolution.linkSession,
		TotalAmount: totalAmount,
		Notes:       req.Notes,
		Lines:       convertLines,
	})
	if err != nil {
		var stockErr *store.InsufficientStockError
		if errors.As(err, &stockErr) {
			util.StockDecrementsRejected.Inc()
			util.ConversionsFailedTotal.WithLabelValues("stock_race").Inc()
			return nil, &UnavailableItemsError{Items: []string{s.lineNameForVariant(lines, stockErr.VariantID)}}
		}
		util.ConversionsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("cart conversion failed: %w", err)
	}

	s.invalidate(ctx, session.SessionToken)
	util.OrdersConvertedTotal.Inc()
	if resolution.guest != nil {
		util.GuestOrdersTotal.Inc()
	}
	s.logger.Info("Cart converted into order",
		zap.Int64("order_id", order.ID),
		zap.Int64("client_id", order.ClientID),
		zap.Int64("total_amount", order.TotalAmount),
		zap.Bool("guest", resolution.guest != nil))

	owner := s.orderOwner(ctx, req, resolution, order)
	orderLines := orderLinesFromCart(items, lines)

	s.publishOrderPlaced(ctx, order, items, resolution.guest != nil)

	response := &CheckoutResponse{
		Order: buildOrderSummary(order, orderLines, owner, req.Caller != nil && !req.GuestOnly),
	}
	if !req.GuestOnly {
		response.WhatsAppMessage = BuildOrderMessage(order, orderLines)
		response.NextSteps = []string{
			"Check the order summary above",
			"Send the WhatsApp message to confirm",
			"Wait for the administrator's confirmation",
		}
	}
	return response, nil
}

func (s *CheckoutService) lineNameForVariant(lines []models.CartLine, variantID int64) string {
	for i := range lines {
		if lines[i].Variant != nil && lines[i].Variant.ID == variantID {
			return lines[i].DisplayName()
		}
	}
	return fmt.Sprintf("variant %d", variantID)
}

// orderOwner materializes the owning user for the response. The order is
// already committed; a lookup failure only degrades the client_info block.
func (s *CheckoutService) orderOwner(ctx context.Context, req CheckoutRequest, resolution identityResolution, order *models.Order) *models.User {
	if resolution.guest != nil {
		return resolution.guest
	}
	if req.Caller != nil && !req.GuestOnly {
		return req.Caller
	}
	owner, err := s.store.GetUserByID(ctx, order.ClientID)
	if err != nil {
		s.logger.Warn("Failed to load order owner for response",
			zap.Int64("order_id", order.ID),
			zap.Int64("client_id", order.ClientID),
			zap.Error(err))
		return &models.User{ID: order.ClientID}
	}
	return owner
}

func (s *CheckoutService) invalidate(ctx context.Context, sessionToken string) {
	if err := s.cache.InvalidateCartView(ctx, sessionToken); err != nil {
		s.logger.Warn("Failed to invalidate cart view cache",
			zap.String("session_token", sessionToken),
			zap.Error(err))
	}
}

func (s *CheckoutService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem, guest bool) {
	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		ClientID:    order.ClientID,
		TotalAmount: order.TotalAmount,
		Guest:       guest,
	}
	for _, item := range items {
		event.Items = append(event.Items, models.OrderLineData{
			ProductID:        item.ProductID,
			ProductVariantID: item.ProductVariantID,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
		})
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}

// orderLinesFromCart pairs the freshly created order items with the catalog
// snapshots already loaded for the cart, avoiding a re-read after commit.
// Items are created in cart-line order.
func orderLinesFromCart(items []models.OrderItem, lines []models.CartLine) []models.OrderLine {
	orderLines := make([]models.OrderLine, 0, len(items))
	for i, item := range items {
		line := models.OrderLine{Item: item}
		if i < len(lines) {
			line.Product = lines[i].Product
			line.Variant = lines[i].Variant
		}
		orderLines = append(orderLines, line)
	}
	return orderLines
}

func buildOrderSummary(order *models.Order, lines []models.OrderLine, owner *models.User, existingUser bool) OrderSummary {
	summary := OrderSummary{
		ID:          order.ID,
		OrderNumber: OrderNumber(order.ID),
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Notes:       order.Notes,
		ClientInfo: ClientInfo{
			ID:             owner.ID,
			Name:           owner.Name,
			Email:          owner.Email,
			IsExistingUser: existingUser,
		},
		Items:   make([]OrderItemView, 0, len(lines)),
		Summary: OrderItemsSummary{CreatedAt: order.CreatedAt},
	}

	for i := range lines {
		line := &lines[i]
		view := OrderItemView{
			ProductName: line.Product.Name,
			Quantity:    line.Item.Quantity,
			UnitPrice:   line.Item.UnitPrice,
			TotalPrice:  line.Item.TotalPrice,
		}
		if line.Variant != nil {
			name := line.Variant.Name
			view.VariantName = &name
		}
		summary.Items = append(summary.Items, view)

		summary.Summary.TotalItems += line.Item.Quantity
		summary.Summary.ItemsCount++
	}

	return summary
}
