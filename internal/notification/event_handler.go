package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/event-ticketing/internal/core/events"
)

// EventHandler bridges the in-process event bus to the notification
// dispatcher so every lifecycle transition reaches the webhook consumer.
type EventHandler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewEventHandler(dispatcher *Dispatcher, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *EventHandler) HandleTransactionCreated(ctx context.Context, event events.Event) error {
	createdEvent, ok := event.(*events.TransactionCreatedEvent)
	if !ok {
		h.logger.Error("invalid event type for transaction created handler", "event_type", event.EventType())
		return fmt.Errorf("expected TransactionCreatedEvent, got %T", event)
	}

	return h.dispatcher.Enqueue(Job{
		EventID:       createdEvent.EventID(),
		EventType:     createdEvent.EventType(),
		TransactionID: createdEvent.TransactionID,
		UserID:        createdEvent.UserID,
		Payload: map[string]interface{}{
			"ticket_event_id": createdEvent.TicketEventID,
			"payable_idr":     createdEvent.PayableIDR,
			"status":          createdEvent.Status,
		},
	})
}

func (h *EventHandler) HandleTransactionStatusChanged(ctx context.Context, event events.Event) error {
	statusEvent, ok := event.(*events.TransactionStatusEvent)
	if !ok {
		h.logger.Error("invalid event type for transaction status handler", "event_type", event.EventType())
		return fmt.Errorf("expected TransactionStatusEvent, got %T", event)
	}

	return h.dispatcher.Enqueue(Job{
		EventID:       statusEvent.EventID(),
		EventType:     statusEvent.EventType(),
		TransactionID: statusEvent.TransactionID,
		UserID:        statusEvent.UserID,
		Payload: map[string]interface{}{
			"status": statusEvent.Status,
		},
	})
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeTransactionCreated, h.HandleTransactionCreated)

	statusEvents := []string{
		events.EventTypeTransactionWaitingConfirmation,
		events.EventTypeTransactionApproved,
		events.EventTypeTransactionRejected,
		events.EventTypeTransactionCanceled,
		events.EventTypeTransactionExpired,
	}
	for _, eventType := range statusEvents {
		eventBus.Subscribe(eventType, h.HandleTransactionStatusChanged)
	}

	h.logger.Info("notification event handlers registered",
		"handlers", append([]string{events.EventTypeTransactionCreated}, statusEvents...))
}
