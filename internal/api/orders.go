package api

import (
	"net/http"
	"strconv"

	"bs-shop/internal/service"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Notes     string `json:"notes" binding:"omitempty,max=1000"`
}

type updateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes" binding:"omitempty,max=1000"`
}

// createOrder converts the cart into an order for the authenticated caller.
func (h *Handler) createOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	resp, err := h.checkout.Checkout(c.Request.Context(), service.CheckoutRequest{
		SessionToken: req.SessionID,
		Notes:        req.Notes,
		Caller:       currentUser(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Order created successfully", resp)
}

// guestCheckout converts the cart into an order owned by a provisioned guest
// account. No authentication required; any caller identity is ignored.
func (h *Handler) guestCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	resp, err := h.checkout.Checkout(c.Request.Context(), service.CheckoutRequest{
		SessionToken: req.SessionID,
		Notes:        req.Notes,
		GuestOnly:    true,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Order created successfully", resp)
}

// listOrders returns the authenticated caller's order history.
func (h *Handler) listOrders(c *gin.Context) {
	view, err := h.orders.ListClientOrders(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Orders retrieved successfully", view)
}

// getOrder returns one of the caller's orders.
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Order not found", nil)
		return
	}

	view, err := h.orders.GetClientOrder(c.Request.Context(), currentUser(c).ID, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order retrieved successfully", view)
}

// adminListOrders returns a page of all orders with store-wide aggregates.
func (h *Handler) adminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	view, err := h.orders.ListAllOrders(c.Request.Context(), page, perPage)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Orders retrieved successfully", view)
}

// adminGetOrder returns one order with owner detail.
func (h *Handler) adminGetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Order not found", nil)
		return
	}

	view, err := h.orders.GetOrderDetail(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order retrieved successfully", view)
}

// adminUpdateStatus applies an administrative status transition.
func (h *Handler) adminUpdateStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Order not found", nil)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	view, err := h.orders.UpdateStatus(c.Request.Context(), orderID, req.Status, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order status updated", view)
}
