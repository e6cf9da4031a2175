package api

import (
	"net/http"
	"strconv"

	"bs-shop/internal/service"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=99"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=99"`
}

// getCart returns the caller's cart, or an empty one when no live session
// exists.
func (h *Handler) getCart(c *gin.Context) {
	view, err := h.carts.GetCart(c.Request.Context(), sessionToken(c), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart retrieved successfully", view)
}

// addCartItem adds a product or variant line to the cart.
func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	result, err := h.carts.AddItem(c.Request.Context(), sessionToken(c), currentUser(c), service.AddItemRequest{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Item added to cart", result)
}

// updateCartItem sets the quantity of an existing cart line.
func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Cart item not found", nil)
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	result, err := h.carts.UpdateItemQuantity(c.Request.Context(), sessionToken(c), currentUser(c), itemID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart item updated", result)
}

// removeCartItem deletes one cart line.
func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Cart item not found", nil)
		return
	}

	result, err := h.carts.RemoveItem(c.Request.Context(), sessionToken(c), currentUser(c), itemID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Item removed from cart", result)
}

// clearCart removes every line of the caller's cart.
func (h *Handler) clearCart(c *gin.Context) {
	token, err := h.carts.ClearCart(c.Request.Context(), sessionToken(c), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart cleared", gin.H{"session_id": token})
}
