package ticket

import "time"

// IssuedTicket exists only for transactions that reached DONE.
type IssuedTicket struct {
	ID            int64     `gorm:"primaryKey"`
	Serial        string    `gorm:"column:serial;uniqueIndex;not null"`
	TransactionID int64     `gorm:"column:transaction_id;not null;index"`
	TicketTypeID  int64     `gorm:"column:ticket_type_id;not null"`
	UserID        int64     `gorm:"column:user_id;not null;index"`
	IssuedAt      time.Time `gorm:"column:issued_at;default:now()"`
}
