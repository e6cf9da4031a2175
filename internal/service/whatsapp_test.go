package service

import (
	"context"
	"strings"
	"testing"

	"bs-shop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderNumber(t *testing.T) {
	assert.Equal(t, "CMD-000042", OrderNumber(42))
	assert.Equal(t, "CMD-123456", OrderNumber(123456))
	assert.Equal(t, "CMD-1234567", OrderNumber(1234567))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "30.00", FormatAmount(3000))
	assert.Equal(t, "12.34", FormatAmount(1234))
}

func TestBuildOrderMessage(t *testing.T) {
	order := &models.Order{
		ID:          7,
		TotalAmount: 3400,
		Notes:       "Ring the bell twice",
	}
	lines := []models.OrderLine{
		{
			Item:    models.OrderItem{Quantity: 2, TotalPrice: 3000},
			Product: models.Product{Name: "Cold Brew"},
			Variant: &models.ProductVariant{Name: "1L Bottle"},
		},
		{
			Item:    models.OrderItem{Quantity: 1, TotalPrice: 400},
			Product: models.Product{Name: "Espresso"},
		},
	}

	got := BuildOrderMessage(order, lines)

	want := "🛒 *NEW ORDER - BS SHOP*\n\n" +
		"📋 *Order #000007*\n" +
		"💰 *Total: 34.00 €*\n\n" +
		"📦 *ORDERED ITEMS:*\n" +
		"• Cold Brew - 1L Bottle x2 = 30.00€\n" +
		"• Espresso x1 = 4.00€\n" +
		"\n📝 *NOTES:* Ring the bell twice" +
		"\n\n✅ *Reply 'YES' to confirm this order*"
	assert.Equal(t, want, got)
}

func TestBuildOrderMessageWithoutNotes(t *testing.T) {
	order := &models.Order{ID: 1, TotalAmount: 250}
	lines := []models.OrderLine{
		{
			Item:    models.OrderItem{Quantity: 1, TotalPrice: 250},
			Product: models.Product{Name: "Espresso"},
		},
	}

	got := BuildOrderMessage(order, lines)

	assert.Contains(t, got, "📝 *NOTES:* None")
}

func TestWALinkNotifierReturnsMessageID(t *testing.T) {
	notifier := NewWALinkNotifier()

	id, err := notifier.SendOrderConfirmation(context.Background(), "+33000000000", "hello world")

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, strings.ContainsAny(id, " \n"))
}
