package postgres

import (
	"github.com/frahmantamala/event-ticketing/internal/event"
	"gorm.io/gorm"
)

// EventRepository implements the event.Repository interface using GORM
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) event.Repository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetByID(id int64) (*event.Event, error) {
	var ev event.Event
	err := r.db.Where("id = ?", id).First(&ev).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, event.ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (r *EventRepository) ListPublished(limit, offset int) ([]*event.Event, error) {
	var events []*event.Event
	err := r.db.Where("is_published = ?", true).
		Order("starts_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, err
}

func (r *EventRepository) GetTicketType(id int64) (*event.TicketType, error) {
	var tt event.TicketType
	err := r.db.Where("id = ?", id).First(&tt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, event.ErrTicketTypeNotFound
		}
		return nil, err
	}
	return &tt, nil
}

func (r *EventRepository) ListTicketTypes(eventID int64) ([]*event.TicketType, error) {
	var ticketTypes []*event.TicketType
	err := r.db.Where("event_id = ?", eventID).
		Order("price_idr ASC").
		Find(&ticketTypes).Error
	return ticketTypes, err
}
