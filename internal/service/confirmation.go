package service

import (
	"context"
	"fmt"

	"bs-shop/internal/models"
	"bs-shop/internal/util"

	"go.uber.org/zap"
)

// ConfirmationService reacts to OrderPlaced events by sending the WhatsApp
// confirmation message and recording the gateway message id on the order.
type ConfirmationService struct {
	store     Store
	notifier  Notifier
	shopPhone string
	logger    *zap.Logger
}

// NewConfirmationService creates a new confirmation service.
func NewConfirmationService(st Store, notifier Notifier, shopPhone string) *ConfirmationService {
	return &ConfirmationService{
		store:     st,
		notifier:  notifier,
		shopPhone: shopPhone,
		logger:    util.GetLogger(),
	}
}

// HandleOrderPlaced rebuilds the confirmation message from the stored order
// and sends it. The message is rebuilt from the database rather than the
// event payload so a replayed event always reflects the committed state.
func (s *ConfirmationService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "ConfirmationService.HandleOrderPlaced")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		util.ConfirmationsFailedTotal.Inc()
		return fmt.Errorf("failed to load order %d: %w", event.OrderID, err)
	}
	if order.WhatsAppMessageID != nil {
		s.logger.Info("Order already confirmed, skipping",
			zap.Int64("order_id", order.ID),
			zap.String("whatsapp_message_id", *order.WhatsAppMessageID))
		return nil
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		util.ConfirmationsFailedTotal.Inc()
		return fmt.Errorf("failed to load order items for order %d: %w", order.ID, err)
	}
	lines, err := loadOrderLines(ctx, s.store, items)
	if err != nil {
		util.ConfirmationsFailedTotal.Inc()
		return err
	}

	message := BuildOrderMessage(order, lines)
	messageID, err := s.notifier.SendOrderConfirmation(ctx, s.shopPhone, message)
	if err != nil {
		util.ConfirmationsFailedTotal.Inc()
		return fmt.Errorf("failed to send confirmation for order %d: %w", order.ID, err)
	}

	if err := s.store.SetOrderWhatsAppMessageID(ctx, order.ID, messageID); err != nil {
		util.ConfirmationsFailedTotal.Inc()
		return fmt.Errorf("failed to record message id for order %d: %w", order.ID, err)
	}

	util.ConfirmationsSentTotal.Inc()
	s.logger.Info("Order confirmation sent",
		zap.Int64("order_id", order.ID),
		zap.String("whatsapp_message_id", messageID))
	return nil
}
