package event

import "time"

type Event struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	Venue       string    `gorm:"column:venue"`
	OrganizerID int64     `gorm:"column:organizer_id;not null"`
	StartsAt    time.Time `gorm:"column:starts_at;not null"`
	TotalSeats  int64     `gorm:"column:total_seats;not null"`
	SeatsSold   int64     `gorm:"column:seats_sold;default:0"`
	IsPublished bool      `gorm:"column:is_published;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}

type TicketType struct {
	ID        int64     `gorm:"primaryKey"`
	EventID   int64     `gorm:"column:event_id;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	PriceIDR  int64     `gorm:"column:price_idr;not null"`
	Quota     int64     `gorm:"column:quota;not null"`
	Sold      int64     `gorm:"column:sold;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}
