package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bs-shop/internal/models"
	"bs-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderNumber renders the public order number: prefix plus the zero-padded
// database id.
func OrderNumber(id int64) string {
	return fmt.Sprintf("CMD-%06d", id)
}

// FormatAmount renders an amount in cents as a decimal string, e.g. 3000 ->
// "30.00".
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// BuildOrderMessage renders the confirmation message for an order. Pure and
// deterministic; used both in the checkout response and by the confirmation
// worker.
func BuildOrderMessage(order *models.Order, lines []models.OrderLine) string {
	var b strings.Builder

	b.WriteString("🛒 *NEW ORDER - BS SHOP*\n\n")
	fmt.Fprintf(&b, "📋 *Order #%06d*\n", order.ID)
	fmt.Fprintf(&b, "💰 *Total: %s €*\n\n", FormatAmount(order.TotalAmount))

	b.WriteString("📦 *ORDERED ITEMS:*\n")
	for i := range lines {
		line := &lines[i]
		fmt.Fprintf(&b, "• %s x%d = %s€\n",
			line.DisplayName(), line.Item.Quantity, FormatAmount(line.Item.TotalPrice))
	}

	notes := order.Notes
	if notes == "" {
		notes = "None"
	}
	fmt.Fprintf(&b, "\n📝 *NOTES:* %s", notes)
	b.WriteString("\n\n✅ *Reply 'YES' to confirm this order*")

	return b.String()
}

// WALinkNotifier is the default Notifier. The real messaging gateway is an
// external collaborator; this implementation prepares a wa.me deep link,
// logs it and returns a generated message reference.
type WALinkNotifier struct {
	logger *zap.Logger
}

// NewWALinkNotifier creates the default notifier.
func NewWALinkNotifier() *WALinkNotifier {
	return &WALinkNotifier{logger: util.GetLogger()}
}

// SendOrderConfirmation implements Notifier.
func (n *WALinkNotifier) SendOrderConfirmation(ctx context.Context, phone, message string) (string, error) {
	link := fmt.Sprintf("https://wa.me/%s?text=%s",
		strings.TrimPrefix(phone, "+"), url.QueryEscape(message))

	n.logger.Info("WhatsApp confirmation prepared",
		zap.String("phone", phone),
		zap.String("link", link))

	return uuid.New().String(), nil
}
