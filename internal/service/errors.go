package service

import (
	"errors"
	"strings"
)

var (
	ErrSessionExpired    = errors.New("cart session invalid or expired")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrCartAccessDenied  = errors.New("cart item does not belong to this session")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is not available")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrVariantInactive   = errors.New("variant is not available")
	ErrVariantMismatch   = errors.New("variant does not belong to the selected product")
	ErrVariantOutOfStock = errors.New("variant is out of stock")
	ErrQuantityLimit     = errors.New("total quantity exceeds the per-line limit")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
)

// UnavailableItemsError reports every cart line that failed the availability
// check, by display name, so the client can prompt removal.
type UnavailableItemsError struct {
	Items []string
}

func (e *UnavailableItemsError) Error() string {
	return "unavailable items: " + strings.Join(e.Items, ", ")
}
