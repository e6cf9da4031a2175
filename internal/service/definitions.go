package service

import (
	"context"
	"time"

	"bs-shop/internal/models"
	"bs-shop/internal/store"
)

// Store is the persistence surface the services depend on. *store.Store
// implements it; tests substitute a mock.
type Store interface {
	// users
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// catalog
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error)
	GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.ProductVariant, error)
	GetCategoriesByIDs(ctx context.Context, ids []int64) ([]models.Category, error)

	// cart
	GetCartSessionByToken(ctx context.Context, token string) (*models.CartSession, error)
	GetCartSessionByClientID(ctx context.Context, clientID int64) (*models.CartSession, error)
	CreateCartSession(ctx context.Context, session *models.CartSession) error
	LinkCartSessionClient(ctx context.Context, sessionID, clientID int64) error
	GetCartItems(ctx context.Context, sessionID int64) ([]models.CartItem, error)
	GetCartItemByID(ctx context.Context, itemID int64) (*models.CartItem, error)
	FindCartItem(ctx context.Context, sessionID, productID int64, variantID *int64) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, itemID int64) error
	ClearCartItems(ctx context.Context, sessionID int64) error

	// orders
	ConvertCart(ctx context.Context, params store.ConvertCartParams) (*models.Order, []models.OrderItem, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrdersByClientID(ctx context.Context, clientID int64) ([]models.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error)
	CountOrders(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context) (map[string]int64, error)
	GetOrdersTotalRevenue(ctx context.Context) (int64, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string, notes *string) error
	SetOrderWhatsAppMessageID(ctx context.Context, orderID int64, messageID string) error
}

// CartCache is the best-effort read-side cache for rendered cart views.
type CartCache interface {
	GetCartView(ctx context.Context, sessionToken string) ([]byte, error)
	SetCartView(ctx context.Context, sessionToken string, payload []byte, ttl time.Duration) error
	InvalidateCartView(ctx context.Context, sessionToken string) error
}

// EventPublisher publishes domain events after state changes have committed.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// Notifier delivers a confirmation message to the external messaging channel
// and returns the channel's message reference.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, phone, message string) (string, error)
}
