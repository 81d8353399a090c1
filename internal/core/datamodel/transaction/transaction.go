package transaction

import "time"

type Transaction struct {
	ID               int64      `gorm:"primaryKey"`
	UserID           int64      `gorm:"column:user_id;not null;index"`
	EventID          int64      `gorm:"column:event_id;not null;index"`
	Status           string     `gorm:"column:status;not null;index"`
	TotalBeforeIDR   int64      `gorm:"column:total_before_idr;not null"`
	PromoDiscountIDR int64      `gorm:"column:promo_discount_idr;default:0"`
	PromoCode        *string    `gorm:"column:promo_code"`
	PointsUsedIDR    int64      `gorm:"column:points_used_idr;default:0"`
	TotalPayableIDR  int64      `gorm:"column:total_payable_idr;not null"`
	PaymentProofURL  *string    `gorm:"column:payment_proof_url"`
	PaymentProofAt   *time.Time `gorm:"column:payment_proof_at"`
	RejectReason     *string    `gorm:"column:reject_reason"`
	ExpiresAt        *time.Time `gorm:"column:expires_at"`
	DecisionDueAt    *time.Time `gorm:"column:decision_due_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;default:now()"`
}

// TransactionItem snapshots price at checkout; later ticket-type price
// changes must not alter historical transactions.
type TransactionItem struct {
	ID            int64     `gorm:"primaryKey"`
	TransactionID int64     `gorm:"column:transaction_id;not null;index"`
	TicketTypeID  int64     `gorm:"column:ticket_type_id;not null"`
	Quantity      int64     `gorm:"column:quantity;not null"`
	UnitPriceIDR  int64     `gorm:"column:unit_price_idr;not null"`
	SubtotalIDR   int64     `gorm:"column:subtotal_idr;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;default:now()"`
}
