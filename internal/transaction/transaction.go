package transaction

import (
	"errors"
	"time"

	transactionDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/transaction"
	"github.com/frahmantamala/event-ticketing/internal/pricing"
)

// Lifecycle states. DONE, REJECTED, CANCELED and EXPIRED are terminal.
const (
	StatusWaitingPayment      = "WAITING_PAYMENT"
	StatusWaitingConfirmation = "WAITING_CONFIRMATION"
	StatusDone                = "DONE"
	StatusRejected            = "REJECTED"
	StatusCanceled            = "CANCELED"
	StatusExpired             = "EXPIRED"
)

// Wall-clock windows evaluated by the sweeper.
const (
	PaymentWindow  = 2 * time.Hour
	DecisionWindow = 3 * 24 * time.Hour
)

var (
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrUnauthorizedAccess     = errors.New("unauthorized access to transaction")
	ErrNotEventOrganizer      = errors.New("actor does not organize this event")
	ErrInvalidStateTransition = errors.New("transaction cannot be moved from its current status")
	ErrTicketsSoldOut         = errors.New("not enough tickets left for this ticket type")
)

type Transaction struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	EventID          int64      `json:"event_id"`
	Status           string     `json:"status"`
	TotalBeforeIDR   int64      `json:"total_before_idr"`
	PromoDiscountIDR int64      `json:"promo_discount_idr"`
	PromoCode        *string    `json:"promo_code,omitempty"`
	PointsUsedIDR    int64      `json:"points_used_idr"`
	TotalPayableIDR  int64      `json:"total_payable_idr"`
	PaymentProofURL  *string    `json:"payment_proof_url,omitempty"`
	PaymentProofAt   *time.Time `json:"payment_proof_at,omitempty"`
	RejectReason     *string    `json:"reject_reason,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	DecisionDueAt    *time.Time `json:"decision_due_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Items []*Item `json:"items,omitempty"`
}

type Item struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	TicketTypeID  int64     `json:"ticket_type_id"`
	Quantity      int64     `json:"quantity"`
	UnitPriceIDR  int64     `json:"unit_price_idr"`
	SubtotalIDR   int64     `json:"subtotal_idr"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewTransaction picks the initial state from the payable total: a fully
// covered checkout skips straight to the organizer decision queue, anything
// else gets a payment deadline.
func NewTransaction(userID, eventID, ticketTypeID, unitPriceIDR, quantity int64, promoCode *string, quote pricing.Quote, now time.Time) *Transaction {
	txn := &Transaction{
		UserID:           userID,
		EventID:          eventID,
		TotalBeforeIDR:   quote.SubtotalIDR,
		PromoDiscountIDR: quote.PromoDiscountIDR,
		PromoCode:        promoCode,
		PointsUsedIDR:    quote.PointsUsedIDR,
		TotalPayableIDR:  quote.TotalPayableIDR,
		CreatedAt:        now,
		UpdatedAt:        now,
		Items: []*Item{
			{
				TicketTypeID: ticketTypeID,
				Quantity:     quantity,
				UnitPriceIDR: unitPriceIDR,
				SubtotalIDR:  quote.SubtotalIDR,
				CreatedAt:    now,
			},
		},
	}

	if quote.TotalPayableIDR == 0 {
		txn.Status = StatusWaitingConfirmation
		decisionDue := now.Add(DecisionWindow)
		txn.DecisionDueAt = &decisionDue
	} else {
		txn.Status = StatusWaitingPayment
		expires := now.Add(PaymentWindow)
		txn.ExpiresAt = &expires
	}

	return txn
}

func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusDone, StatusRejected, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

func (t *Transaction) CanSubmitProof() bool {
	return t.Status == StatusWaitingPayment
}

// CanResubmitProof covers a user correcting a bad upload before the
// organizer decides; an update, not a transition.
func (t *Transaction) CanResubmitProof() bool {
	return t.Status == StatusWaitingConfirmation
}

func (t *Transaction) CanBeDecided() bool {
	return t.Status == StatusWaitingConfirmation
}

// HoldsPoints reports whether a refund is owed when this transaction
// forfeits its hold.
func (t *Transaction) HoldsPoints() bool {
	return t.PointsUsedIDR > 0
}

func (t *Transaction) SubmitProof(proofURL string, now time.Time) {
	t.Status = StatusWaitingConfirmation
	t.PaymentProofURL = &proofURL
	t.PaymentProofAt = &now
	decisionDue := now.Add(DecisionWindow)
	t.DecisionDueAt = &decisionDue
	t.UpdatedAt = now
}

func (t *Transaction) Approve(now time.Time) {
	t.Status = StatusDone
	t.UpdatedAt = now
}

func (t *Transaction) Reject(reason string, now time.Time) {
	t.Status = StatusRejected
	t.RejectReason = &reason
	t.UpdatedAt = now
}

func (t *Transaction) Cancel(now time.Time) {
	t.Status = StatusCanceled
	t.UpdatedAt = now
}

func (t *Transaction) Expire(now time.Time) {
	t.Status = StatusExpired
	t.UpdatedAt = now
}

func (t *Transaction) PaymentOverdue(now time.Time) bool {
	return t.Status == StatusWaitingPayment && t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

func (t *Transaction) DecisionOverdue(now time.Time) bool {
	return t.Status == StatusWaitingConfirmation && t.DecisionDueAt != nil && t.DecisionDueAt.Before(now)
}

func ToDataModel(t *Transaction) *transactionDatamodel.Transaction {
	return &transactionDatamodel.Transaction{
		ID:               t.ID,
		UserID:           t.UserID,
		EventID:          t.EventID,
		Status:           t.Status,
		TotalBeforeIDR:   t.TotalBeforeIDR,
		PromoDiscountIDR: t.PromoDiscountIDR,
		PromoCode:        t.PromoCode,
		PointsUsedIDR:    t.PointsUsedIDR,
		TotalPayableIDR:  t.TotalPayableIDR,
		PaymentProofURL:  t.PaymentProofURL,
		PaymentProofAt:   t.PaymentProofAt,
		RejectReason:     t.RejectReason,
		ExpiresAt:        t.ExpiresAt,
		DecisionDueAt:    t.DecisionDueAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func FromDataModel(t *transactionDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:               t.ID,
		UserID:           t.UserID,
		EventID:          t.EventID,
		Status:           t.Status,
		TotalBeforeIDR:   t.TotalBeforeIDR,
		PromoDiscountIDR: t.PromoDiscountIDR,
		PromoCode:        t.PromoCode,
		PointsUsedIDR:    t.PointsUsedIDR,
		TotalPayableIDR:  t.TotalPayableIDR,
		PaymentProofURL:  t.PaymentProofURL,
		PaymentProofAt:   t.PaymentProofAt,
		RejectReason:     t.RejectReason,
		ExpiresAt:        t.ExpiresAt,
		DecisionDueAt:    t.DecisionDueAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func ItemToDataModel(i *Item) *transactionDatamodel.TransactionItem {
	return &transactionDatamodel.TransactionItem{
		ID:            i.ID,
		TransactionID: i.TransactionID,
		TicketTypeID:  i.TicketTypeID,
		Quantity:      i.Quantity,
		UnitPriceIDR:  i.UnitPriceIDR,
		SubtotalIDR:   i.SubtotalIDR,
		CreatedAt:     i.CreatedAt,
	}
}

func ItemFromDataModel(i *transactionDatamodel.TransactionItem) *Item {
	return &Item{
		ID:            i.ID,
		TransactionID: i.TransactionID,
		TicketTypeID:  i.TicketTypeID,
		Quantity:      i.Quantity,
		UnitPriceIDR:  i.UnitPriceIDR,
		SubtotalIDR:   i.SubtotalIDR,
		CreatedAt:     i.CreatedAt,
	}
}

func FromDataModelSlice(txns []*transactionDatamodel.Transaction) []*Transaction {
	result := make([]*Transaction, len(txns))
	for i, t := range txns {
		result[i] = FromDataModel(t)
	}
	return result
}
