package points

import "time"

// PointEntry is an immutable ledger row. Balance corrections are made by
// appending a compensating entry, never by editing history.
type PointEntry struct {
	ID            int64     `gorm:"primaryKey"`
	UserID        int64     `gorm:"column:user_id;not null;index"`
	Delta         int64     `gorm:"column:delta;not null"`
	Reason        string    `gorm:"column:reason;not null"`
	TransactionID *int64    `gorm:"column:transaction_id"`
	CreatedAt     time.Time `gorm:"column:created_at;default:now()"`
}

func (PointEntry) TableName() string {
	return "point_entries"
}
