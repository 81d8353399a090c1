package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTransactionCreated             = "transaction.created"
	EventTypeTransactionWaitingConfirmation = "transaction.waiting_confirmation"
	EventTypeTransactionApproved            = "transaction.approved"
	EventTypeTransactionRejected            = "transaction.rejected"
	EventTypeTransactionCanceled            = "transaction.canceled"
	EventTypeTransactionExpired             = "transaction.expired"
)

type TransactionCreatedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
	TicketEventID int64  `json:"event_id"`
	PayableIDR    int64  `json:"payable_idr"`
	Status        string `json:"status"`
}

func NewTransactionCreatedEvent(transactionID, userID, eventID, payableIDR int64, status string) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransactionCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"user_id":        userID,
				"event_id":       eventID,
				"payable_idr":    payableIDR,
				"status":         status,
			},
		},
		TransactionID: transactionID,
		UserID:        userID,
		TicketEventID: eventID,
		PayableIDR:    payableIDR,
		Status:        status,
	}
}

// TransactionStatusEvent covers every lifecycle transition after creation;
// the event type names the transition.
type TransactionStatusEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
	TicketEventID int64  `json:"event_id"`
	Status        string `json:"status"`
}

func NewTransactionStatusEvent(eventType string, transactionID, userID, eventID int64, status string) *TransactionStatusEvent {
	return &TransactionStatusEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"user_id":        userID,
				"event_id":       eventID,
				"status":         status,
			},
		},
		TransactionID: transactionID,
		UserID:        userID,
		TicketEventID: eventID,
		Status:        status,
	}
}
