package worker

import (
	"context"
	"log"

	"bs-shop/internal/broker"
	"bs-shop/internal/service"
)

// ConfirmationWorker consumes order events and drives the WhatsApp
// confirmation flow for newly placed orders.
type ConfirmationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewConfirmationWorker creates a new confirmation worker.
func NewConfirmationWorker(
	consumer *broker.Consumer,
	confirmations *service.ConfirmationService,
) *ConfirmationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(confirmations.HandleOrderPlaced)

	return &ConfirmationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *ConfirmationWorker) Start(ctx context.Context) error {
	log.Println("Starting confirmation worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ConfirmationWorker) Stop() error {
	log.Println("Stopping confirmation worker...")
	return w.consumer.Close()
}
