package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersConvertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_converted_total",
		Help: "Total number of carts successfully converted into orders",
	})

	GuestOrdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_guest_total",
		Help: "Total number of orders placed through guest checkout",
	})

	ConversionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversions_failed_total",
		Help: "Total number of failed cart conversions",
	}, []string{"reason"})

	StockDecrementsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrements_rejected_total",
		Help: "Total number of conversions aborted by the conditional stock decrement",
	})

	ConversionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_conversion_latency_seconds",
		Help:    "Latency of the cart-to-order conversion transaction",
		Buckets: prometheus.DefBuckets,
	})

	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Total number of add-to-cart operations",
	})

	CartCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_cache_hits_total",
		Help: "Total number of cart views served from Redis",
	})

	CartCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_cache_misses_total",
		Help: "Total number of cart views that fell through to the database",
	})

	ConfirmationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whatsapp_confirmations_sent_total",
		Help: "Total number of order confirmation messages handed to the notifier",
	})

	ConfirmationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whatsapp_confirmations_failed_total",
		Help: "Total number of confirmation messages that could not be sent",
	})

	OrderStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_updates_total",
		Help: "Total number of administrative order status updates",
	}, []string{"status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
