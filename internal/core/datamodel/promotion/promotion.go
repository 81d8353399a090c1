package promotion

import "time"

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Promotion struct {
	ID           int64     `gorm:"primaryKey"`
	EventID      int64     `gorm:"column:event_id;not null;uniqueIndex:idx_promotions_event_code"`
	Code         string    `gorm:"column:code;not null;uniqueIndex:idx_promotions_event_code"`
	DiscountType string    `gorm:"column:discount_type;not null"`
	Value        int64     `gorm:"column:value;not null"`
	MinSpendIDR  int64     `gorm:"column:min_spend_idr;default:0"`
	StartsAt     time.Time `gorm:"column:starts_at;not null"`
	EndsAt       time.Time `gorm:"column:ends_at;not null"`
	UsageCap     *int64    `gorm:"column:usage_cap"`
	UsedCount    int64     `gorm:"column:used_count;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `gorm:"column:updated_at;default:now()"`
}
