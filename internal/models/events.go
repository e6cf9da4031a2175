package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after a cart has been converted into an
// order and the conversion transaction has committed.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	ClientID    int64           `json:"client_id"`
	TotalAmount int64           `json:"total_amount"`
	Guest       bool            `json:"guest"`
	Items       []OrderLineData `json:"items"`
}

// OrderStatusChangedEvent is published after an administrative status update.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// OrderLineData represents item data in events
type OrderLineData struct {
	ProductID        int64  `json:"product_id"`
	ProductVariantID *int64 `json:"product_variant_id,omitempty"`
	Quantity         int    `json:"quantity"`
	UnitPrice        int64  `json:"unit_price"`
}
