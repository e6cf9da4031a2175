package models

import "time"

// User represents a customer or admin account. Guest checkout provisions
// minimal rows with IsGuest set.
type User struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	WhatsAppPhone string    `db:"whatsapp_phone" json:"whatsapp_phone,omitempty"`
	Role          string    `db:"role" json:"role"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	IsGuest       bool      `db:"is_guest" json:"is_guest"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Category is the read-only slice of the catalog taxonomy carts need for display.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// Product represents a catalog product. BasePrice is in cents and nullable;
// a product without a base price is priced through its variants.
type Product struct {
	ID          int64     `db:"id" json:"id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description,omitempty"`
	BasePrice   *int64    `db:"base_price" json:"base_price,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveBasePrice returns the product base price in cents, 0 when unset.
func (p *Product) EffectiveBasePrice() int64 {
	if p.BasePrice == nil {
		return 0
	}
	return *p.BasePrice
}

// ProductVariant is a purchasable SKU-level specialization of a product.
// StockQuantity nil means unlimited stock; any integer, including 0, is a
// hard ceiling on how many units can be ordered.
type ProductVariant struct {
	ID            int64     `db:"id" json:"id"`
	ProductID     int64     `db:"product_id" json:"product_id"`
	Name          string    `db:"name" json:"name"`
	SKU           string    `db:"sku" json:"sku"`
	Price         int64     `db:"price" json:"price"`
	StockQuantity *int      `db:"stock_quantity" json:"stock_quantity,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CartSession is a token-addressable, time-bounded container of cart items.
// ClientID is set once an owning identity is known.
type CartSession struct {
	ID           int64     `db:"id" json:"id"`
	SessionToken string    `db:"session_token" json:"session_token"`
	ClientID     *int64    `db:"client_id" json:"client_id,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CartItem is one line of a cart session. At most one row exists per
// (session, product, variant) combination.
type CartItem struct {
	ID               int64     `db:"id" json:"id"`
	CartSessionID    int64     `db:"cart_session_id" json:"cart_session_id"`
	ProductID        int64     `db:"product_id" json:"product_id"`
	ProductVariantID *int64    `db:"product_variant_id" json:"product_variant_id,omitempty"`
	Quantity         int       `db:"quantity" json:"quantity"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CartLine is a cart item resolved against the catalog. Variant is nil for
// plain product lines.
type CartLine struct {
	Item    CartItem
	Product Product
	Variant *ProductVariant
}

// UnitPrice returns the effective unit price of the line in cents: the
// variant price when a variant is selected, else the product base price.
func (l *CartLine) UnitPrice() int64 {
	if l.Variant != nil {
		return l.Variant.Price
	}
	return l.Product.EffectiveBasePrice()
}

// TotalPrice returns quantity times the effective unit price.
func (l *CartLine) TotalPrice() int64 {
	return l.UnitPrice() * int64(l.Item.Quantity)
}

// DisplayName renders the human-readable identifier used in availability
// errors and confirmation messages: "Product" or "Product - Variant".
func (l *CartLine) DisplayName() string {
	if l.Variant != nil {
		return l.Product.Name + " - " + l.Variant.Name
	}
	return l.Product.Name
}

// Order is a persisted order. TotalAmount is a frozen snapshot computed at
// conversion time and never recomputed.
type Order struct {
	ID                int64     `db:"id" json:"id"`
	ClientID          int64     `db:"client_id" json:"client_id"`
	TotalAmount       int64     `db:"total_amount" json:"total_amount"`
	Status            string    `db:"status" json:"status"`
	WhatsAppMessageID *string   `db:"whatsapp_message_id" json:"whatsapp_message_id,omitempty"`
	Notes             string    `db:"notes" json:"notes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is one immutable line of an order. UnitPrice is the price
// snapshot taken at conversion time.
type OrderItem struct {
	ID               int64     `db:"id" json:"id"`
	OrderID          int64     `db:"order_id" json:"order_id"`
	ProductID        int64     `db:"product_id" json:"product_id"`
	ProductVariantID *int64    `db:"product_variant_id" json:"product_variant_id,omitempty"`
	Quantity         int       `db:"quantity" json:"quantity"`
	UnitPrice        int64     `db:"unit_price" json:"unit_price"`
	TotalPrice       int64     `db:"total_price" json:"total_price"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// OrderLine is an order item resolved against the catalog for display.
type OrderLine struct {
	Item    OrderItem
	Product Product
	Variant *ProductVariant
}

// DisplayName mirrors CartLine.DisplayName for order lines.
func (l *OrderLine) DisplayName() string {
	if l.Variant != nil {
		return l.Product.Name + " - " + l.Variant.Name
	}
	return l.Product.Name
}

// User roles
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusAccepted   = "accepted"
	OrderStatusReady      = "ready"
	OrderStatusInProgress = "in_progress"
	OrderStatusAvailable  = "available"
	OrderStatusCancelled  = "cancelled"
)

// OrderStatuses lists every valid order status, in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusReady,
	OrderStatusInProgress,
	OrderStatusAvailable,
	OrderStatusCancelled,
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}
