package transaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ticketDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/ticket"
	"github.com/frahmantamala/event-ticketing/internal/core/events"
	"github.com/frahmantamala/event-ticketing/internal/event"
	"github.com/frahmantamala/event-ticketing/internal/points"
	"github.com/frahmantamala/event-ticketing/internal/pricing"
	"github.com/frahmantamala/event-ticketing/internal/promotion"
)

// Repository defines the data access methods for transactions. Mutating
// methods are atomic units: the status change and its side effects (points
// debit or refund, ticket issuance, inventory decrement) commit together or
// not at all.
type Repository interface {
	CreateWithDebit(txn *Transaction, debit *points.Entry, promoID *int64) error
	GetByID(id int64) (*Transaction, error)
	GetByUserID(userID int64, limit, offset int) ([]*Transaction, error)
	GetItems(transactionID int64) ([]*Item, error)

	// Transition asserts fromStatus as a write precondition; a mismatch
	// means another actor won the race and yields ErrInvalidStateTransition.
	Transition(txn *Transaction, fromStatus string, refund *points.Entry) error
	TransitionToDone(txn *Transaction, fromStatus string, tickets []*ticketDatamodel.IssuedTicket) error
	UpdatePaymentProof(id int64, proofURL string, proofAt time.Time) error

	FindPaymentOverdue(now time.Time, limit int) ([]*Transaction, error)
	FindDecisionOverdue(now time.Time, limit int) ([]*Transaction, error)
}

// EventCatalog supplies price, quota and organizer ownership for validation.
type EventCatalog interface {
	GetByID(id int64) (*event.Event, error)
	GetTicketType(id int64) (*event.TicketType, error)
}

// PromoLookup resolves event-scoped promo codes.
type PromoLookup interface {
	FindByEventAndCode(eventID int64, code string) (*promotion.Promotion, error)
}

// PointsReader reads the current balance; mutations flow through the
// transaction repository so they share the storage transaction.
type PointsReader interface {
	Balance(userID int64) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service orchestrates the reservation lifecycle
type Service struct {
	repo      Repository
	catalog   EventCatalog
	promos    PromoLookup
	points    PointsReader
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, catalog EventCatalog, promos PromoLookup, pointsReader PointsReader, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		promos:    promos,
		points:    pointsReader,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateTransaction prices a checkout and persists the reservation, its line
// item, the points debit and the promo usage bump as one atomic unit. Nothing
// is persisted when any validation fails.
func (s *Service) CreateTransaction(userID int64, dto CreateTransactionDTO) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("transaction validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	ev, err := s.catalog.GetByID(dto.EventID)
	if err != nil {
		s.logger.Error("event not found for checkout", "error", err, "event_id", dto.EventID)
		return nil, event.ErrEventNotFound
	}

	ticketType, err := s.catalog.GetTicketType(dto.TicketTypeID)
	if err != nil {
		s.logger.Error("ticket type not found for checkout", "error", err, "ticket_type_id", dto.TicketTypeID)
		return nil, event.ErrTicketTypeNotFound
	}
	if ticketType.EventID != ev.ID {
		s.logger.Warn("ticket type does not belong to event",
			"ticket_type_id", ticketType.ID,
			"event_id", ev.ID)
		return nil, event.ErrTicketTypeNotFound
	}

	now := s.now()

	var promo *promotion.Promotion
	var promoCode *string
	var promoID *int64
	if dto.PromoCode != "" {
		promo, err = s.promos.FindByEventAndCode(dto.EventID, dto.PromoCode)
		if err != nil {
			s.logger.Warn("promo lookup failed", "error", err, "event_id", dto.EventID, "code", dto.PromoCode)
			return nil, err
		}
		promoCode = &promo.Code
		promoID = &promo.ID
	}

	var balance int64
	if dto.UsePoints {
		balance, err = s.points.Balance(userID)
		if err != nil {
			s.logger.Error("failed to read points balance", "error", err, "user_id", userID)
			return nil, err
		}
	}

	quote, err := pricing.Calculate(pricing.Input{
		EventID:       dto.EventID,
		UnitPriceIDR:  ticketType.PriceIDR,
		Quantity:      dto.Quantity,
		Promo:         promo,
		UsePoints:     dto.UsePoints,
		PointsBalance: balance,
		Now:           now,
	})
	if err != nil {
		s.logger.Warn("pricing rejected checkout", "error", err, "user_id", userID, "event_id", dto.EventID)
		return nil, err
	}

	txn := NewTransaction(userID, ev.ID, ticketType.ID, ticketType.PriceIDR, dto.Quantity, promoCode, quote, now)

	var debit *points.Entry
	if quote.PointsUsedIDR > 0 {
		debit = &points.Entry{
			UserID: userID,
			Delta:  -quote.PointsUsedIDR,
			Reason: points.ReasonRedemption,
		}
	}

	if err := s.repo.CreateWithDebit(txn, debit, promoID); err != nil {
		s.logger.Error("failed to create transaction", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("transaction created",
		"transaction_id", txn.ID,
		"user_id", userID,
		"event_id", ev.ID,
		"payable", txn.TotalPayableIDR,
		"points_used", txn.PointsUsedIDR,
		"status", txn.Status)

	s.publish(events.NewTransactionCreatedEvent(txn.ID, txn.UserID, txn.EventID, txn.TotalPayableIDR, txn.Status))

	return txn, nil
}

// GetTransaction retrieves a transaction with access control: the owner or
// the event's organizer may read it.
func (s *Service) GetTransaction(id, actorID int64) (*Transaction, error) {
	txn, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get transaction", "error", err, "transaction_id", id)
		return nil, ErrTransactionNotFound
	}

	if txn.UserID != actorID {
		ev, err := s.catalog.GetByID(txn.EventID)
		if err != nil || ev.OrganizerID != actorID {
			s.logger.Warn("unauthorized access to transaction", "transaction_id", id, "actor_id", actorID)
			return nil, ErrUnauthorizedAccess
		}
	}

	items, err := s.repo.GetItems(txn.ID)
	if err != nil {
		s.logger.Error("failed to load transaction items", "error", err, "transaction_id", id)
		return nil, err
	}
	txn.Items = items

	return txn, nil
}

func (s *Service) GetUserTransactions(userID int64, limit, offset int) ([]*Transaction, error) {
	txns, err := s.repo.GetByUserID(userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to get user transactions", "error", err, "user_id", userID)
		return nil, err
	}
	return txns, nil
}

// SubmitPaymentProof stores the proof reference and moves the transaction to
// the organizer decision queue. A transaction already waiting for a decision
// accepts a corrected proof as an in-place update.
func (s *Service) SubmitPaymentProof(transactionID, actorID int64, dto SubmitPaymentProofDTO) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	txn, err := s.repo.GetByID(transactionID)
	if err != nil {
		s.logger.Error("transaction not found for proof submission", "error", err, "transaction_id", transactionID)
		return nil, ErrTransactionNotFound
	}

	if txn.UserID != actorID {
		s.logger.Warn("proof submission denied: not the owner", "transaction_id", transactionID, "actor_id", actorID)
		return nil, ErrUnauthorizedAccess
	}

	now := s.now()

	if txn.CanResubmitProof() {
		if err := s.repo.UpdatePaymentProof(txn.ID, dto.PaymentProofURL, now); err != nil {
			s.logger.Error("failed to update payment proof", "error", err, "transaction_id", txn.ID)
			return nil, err
		}
		txn.PaymentProofURL = &dto.PaymentProofURL
		txn.PaymentProofAt = &now
		txn.UpdatedAt = now

		s.logger.Info("payment proof replaced", "transaction_id", txn.ID, "user_id", actorID)
		return txn, nil
	}

	if !txn.CanSubmitProof() {
		s.logger.Warn("cannot submit proof in current status",
			"transaction_id", txn.ID,
			"current_status", txn.Status)
		return nil, ErrInvalidStateTransition
	}

	txn.SubmitProof(dto.PaymentProofURL, now)

	if err := s.repo.Transition(txn, StatusWaitingPayment, nil); err != nil {
		s.logger.Error("failed to transition to waiting confirmation", "error", err, "transaction_id", txn.ID)
		return nil, err
	}

	s.logger.Info("payment proof submitted",
		"transaction_id", txn.ID,
		"user_id", actorID,
		"decision_due_at", txn.DecisionDueAt)

	s.publish(events.NewTransactionStatusEvent(events.EventTypeTransactionWaitingConfirmation, txn.ID, txn.UserID, txn.EventID, txn.Status))

	return txn, nil
}

// ApproveTransaction is the organizer confirming payment: tickets are issued
// and inventory decremented in the same storage transaction as the status
// change.
func (s *Service) ApproveTransaction(transactionID, organizerID int64) (*Transaction, error) {
	txn, ev, err := s.transactionForDecision(transactionID, organizerID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(txn.ID)
	if err != nil {
		s.logger.Error("failed to load items for approval", "error", err, "transaction_id", txn.ID)
		return nil, err
	}

	now := s.now()
	tickets := issueTickets(txn, items, now)
	txn.Approve(now)

	if err := s.repo.TransitionToDone(txn, StatusWaitingConfirmation, tickets); err != nil {
		s.logger.Error("failed to approve transaction", "error", err, "transaction_id", txn.ID)
		return nil, err
	}

	s.logger.Info("transaction approved",
		"transaction_id", txn.ID,
		"organizer_id", organizerID,
		"event_id", ev.ID,
		"tickets_issued", len(tickets))

	s.publish(events.NewTransactionStatusEvent(events.EventTypeTransactionApproved, txn.ID, txn.UserID, txn.EventID, txn.Status))

	return txn, nil
}

// RejectTransaction refuses the submitted proof; held points are credited
// back within the transition.
func (s *Service) RejectTransaction(transactionID, organizerID int64, reason string) (*Transaction, error) {
	txn, _, err := s.transactionForDecision(transactionID, organizerID)
	if err != nil {
		return nil, err
	}

	txn.Reject(reason, s.now())

	if err := s.repo.Transition(txn, StatusWaitingConfirmation, refundEntry(txn)); err != nil {
		s.logger.Error("failed to reject transaction", "error", err, "transaction_id", txn.ID)
		return nil, err
	}

	s.logger.Info("transaction rejected",
		"transaction_id", txn.ID,
		"organizer_id", organizerID,
		"reason", reason,
		"points_refunded", txn.PointsUsedIDR)

	s.publish(events.NewTransactionStatusEvent(events.EventTypeTransactionRejected, txn.ID, txn.UserID, txn.EventID, txn.Status))

	return txn, nil
}

// CancelTransaction is an explicit cancel by the owner or the organizer.
// Legal from any non-terminal state.
func (s *Service) CancelTransaction(transactionID, actorID int64) (*Transaction, error) {
	txn, err := s.repo.GetByID(transactionID)
	if err != nil {
		s.logger.Error("transaction not found for cancel", "error", err, "transaction_id", transactionID)
		return nil, ErrTransactionNotFound
	}

	if txn.UserID != actorID {
		ev, err := s.catalog.GetByID(txn.EventID)
		if err != nil || ev.OrganizerID != actorID {
			s.logger.Warn("cancel denied", "transaction_id", transactionID, "actor_id", actorID)
			return nil, ErrUnauthorizedAccess
		}
	}

	if txn.IsTerminal() {
		s.logger.Warn("cannot cancel terminal transaction",
			"transaction_id", txn.ID,
			"current_status", txn.Status)
		return nil, ErrInvalidStateTransition
	}

	fromStatus := txn.Status
	txn.Cancel(s.now())

	if err := s.repo.Transition(txn, fromStatus, refundEntry(txn)); err != nil {
		s.logger.Error("failed to cancel transaction", "error", err, "transaction_id", txn.ID)
		return nil, err
	}

	s.logger.Info("transaction canceled",
		"transaction_id", txn.ID,
		"actor_id", actorID,
		"points_refunded", txn.PointsUsedIDR)

	s.publish(events.NewTransactionStatusEvent(events.EventTypeTransactionCanceled, txn.ID, txn.UserID, txn.EventID, txn.Status))

	return txn, nil
}

func (s *Service) transactionForDecision(transactionID, organizerID int64) (*Transaction, *event.Event, error) {
	txn, err := s.repo.GetByID(transactionID)
	if err != nil {
		s.logger.Error("transaction not found for decision", "error", err, "transaction_id", transactionID)
		return nil, nil, ErrTransactionNotFound
	}

	ev, err := s.catalog.GetByID(txn.EventID)
	if err != nil {
		s.logger.Error("event not found for decision", "error", err, "event_id", txn.EventID)
		return nil, nil, event.ErrEventNotFound
	}

	if ev.OrganizerID != organizerID {
		s.logger.Warn("decision denied: actor does not organize event",
			"transaction_id", transactionID,
			"event_id", ev.ID,
			"actor_id", organizerID)
		return nil, nil, ErrNotEventOrganizer
	}

	if !txn.CanBeDecided() {
		s.logger.Warn("cannot decide transaction in current status",
			"transaction_id", txn.ID,
			"current_status", txn.Status)
		return nil, nil, ErrInvalidStateTransition
	}

	return txn, ev, nil
}

func (s *Service) publish(ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), ev); err != nil {
		s.logger.Error("failed to publish transaction event", "error", err, "event_type", ev.EventType())
	}
}

// refundEntry builds the credit-back ledger entry, or nil when the
// transaction holds no points. The repository applies it inside the same
// storage transaction as the status change, so the refund happens exactly
// once per lifetime.
func refundEntry(txn *Transaction) *points.Entry {
	if !txn.HoldsPoints() {
		return nil
	}
	return &points.Entry{
		UserID:        txn.UserID,
		Delta:         txn.PointsUsedIDR,
		Reason:        points.ReasonRefund,
		TransactionID: &txn.ID,
	}
}

func issueTickets(txn *Transaction, items []*Item, now time.Time) []*ticketDatamodel.IssuedTicket {
	var tickets []*ticketDatamodel.IssuedTicket
	for _, item := range items {
		for i := int64(0); i < item.Quantity; i++ {
			tickets = append(tickets, &ticketDatamodel.IssuedTicket{
				Serial:        uuid.NewString(),
				TransactionID: txn.ID,
				TicketTypeID:  item.TicketTypeID,
				UserID:        txn.UserID,
				IssuedAt:      now,
			})
		}
	}
	return tickets
}
