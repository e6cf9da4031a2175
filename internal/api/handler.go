package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bs-shop/internal/models"
	"bs-shop/internal/service"
	"bs-shop/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CartService is the cart surface the handlers need.
type CartService interface {
	GetCart(ctx context.Context, token string, caller *models.User) (*service.CartView, error)
	AddItem(ctx context.Context, token string, caller *models.User, req service.AddItemRequest) (*service.CartMutationResult, error)
	UpdateItemQuantity(ctx context.Context, token string, caller *models.User, itemID int64, quantity int) (*service.CartMutationResult, error)
	RemoveItem(ctx context.Context, token string, caller *models.User, itemID int64) (*service.RemoveItemResult, error)
	ClearCart(ctx context.Context, token string, caller *models.User) (string, error)
}

// CheckoutService is the conversion surface the handlers need.
type CheckoutService interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResponse, error)
}

// OrderService is the order history and admin surface the handlers need.
type OrderService interface {
	ListClientOrders(ctx context.Context, clientID int64) (*service.ClientOrdersView, error)
	GetClientOrder(ctx context.Context, clientID, orderID int64) (*service.OrderView, error)
	ListAllOrders(ctx context.Context, page, perPage int) (*service.AdminOrdersView, error)
	GetOrderDetail(ctx context.Context, orderID int64) (*service.AdminOrderView, error)
	UpdateStatus(ctx context.Context, orderID int64, status string, notes *string) (*service.StatusUpdateView, error)
}

// UserStore resolves authenticated callers.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Handler contains HTTP handlers
type Handler struct {
	carts    CartService
	checkout CheckoutService
	orders   OrderService
	users    UserStore
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(carts CartService, checkout CheckoutService, orders OrderService, users UserStore) *Handler {
	return &Handler{
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		users:    users,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(h.authMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		cart := v1.Group("/cart")
		{
			cart.GET("", h.getCart)
			cart.DELETE("", h.clearCart)
			cart.POST("/items", h.addCartItem)
			cart.PUT("/items/:id", h.updateCartItem)
			cart.DELETE("/items/:id", h.removeCartItem)
		}

		// guest checkout needs no caller; ownership comes from the
		// provisioned guest account
		v1.POST("/orders/guest", h.guestCheckout)

		orders := v1.Group("/orders", h.requireAuth())
		{
			orders.POST("", h.createOrder)
			orders.GET("", h.listOrders)
			orders.GET("/:id", h.getOrder)
		}

		admin := v1.Group("/admin", h.requireAuth(), h.requireAdmin())
		{
			admin.GET("/orders", h.adminListOrders)
			admin.GET("/orders/:id", h.adminGetOrder)
			admin.PATCH("/orders/:id/status", h.adminUpdateStatus)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

const currentUserKey = "currentUser"

// authMiddleware resolves the caller from the X-User-ID header set by the
// upstream auth proxy. Unknown or inactive users are treated as anonymous.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-ID")
		if header == "" {
			c.Next()
			return
		}

		userID, err := strconv.ParseInt(header, 10, 64)
		if err != nil {
			c.Next()
			return
		}

		user, err := h.users.GetUserByID(c.Request.Context(), userID)
		if err != nil || !user.IsActive {
			c.Next()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}
		c.Next()
	}
}

func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func sessionToken(c *gin.Context) string {
	return c.GetHeader("X-Session-ID")
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string, errs interface{}) {
	body := gin.H{
		"success": false,
		"message": message,
	}
	if errs != nil {
		body["errors"] = errs
	}
	c.JSON(status, body)
}

func failValidation(c *gin.Context, err error) {
	fail(c, http.StatusUnprocessableEntity, "Validation failed", gin.H{"detail": err.Error()})
}

// respondError maps service errors to HTTP responses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var unavailable *service.UnavailableItemsError

	switch {
	case errors.Is(err, service.ErrSessionExpired):
		fail(c, http.StatusNotFound, "Cart session expired or not found", nil)
	case errors.Is(err, service.ErrEmptyCart):
		fail(c, http.StatusUnprocessableEntity, "Cart is empty", nil)
	case errors.As(err, &unavailable):
		fail(c, http.StatusUnprocessableEntity, "Some items are no longer available",
			gin.H{"unavailable_items": unavailable.Items})
	case errors.Is(err, service.ErrVariantMismatch):
		fail(c, http.StatusUnprocessableEntity, "Variant does not belong to this product", nil)
	case errors.Is(err, service.ErrVariantOutOfStock):
		fail(c, http.StatusUnprocessableEntity, "Insufficient stock for this variant", nil)
	case errors.Is(err, service.ErrQuantityLimit):
		fail(c, http.StatusUnprocessableEntity, "Quantity exceeds the allowed limit", nil)
	case errors.Is(err, service.ErrInvalidStatus):
		fail(c, http.StatusUnprocessableEntity, "Invalid order status", nil)
	case errors.Is(err, service.ErrProductNotFound):
		fail(c, http.StatusNotFound, "Product not found", nil)
	case errors.Is(err, service.ErrVariantNotFound):
		fail(c, http.StatusNotFound, "Product variant not found", nil)
	case errors.Is(err, service.ErrCartItemNotFound):
		fail(c, http.StatusNotFound, "Cart item not found", nil)
	case errors.Is(err, service.ErrOrderNotFound):
		fail(c, http.StatusNotFound, "Order not found", nil)
	case errors.Is(err, service.ErrProductInactive), errors.Is(err, service.ErrVariantInactive):
		fail(c, http.StatusForbidden, "This product is not available for purchase", nil)
	case errors.Is(err, service.ErrCartAccessDenied):
		fail(c, http.StatusForbidden, "Access denied", nil)
	default:
		h.logger.Error("Unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
