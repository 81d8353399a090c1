package event

import (
	"errors"

	eventDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/event"
)

type Event = eventDatamodel.Event
type TicketType = eventDatamodel.TicketType

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
)

// Repository supplies the catalog facts the transaction core validates
// against: price, quota and organizer ownership.
type Repository interface {
	GetByID(id int64) (*Event, error)
	ListPublished(limit, offset int) ([]*Event, error)
	GetTicketType(id int64) (*TicketType, error)
	ListTicketTypes(eventID int64) ([]*TicketType, error)
}

// EventWithTicketTypes is the browse view returned to customers.
type EventWithTicketTypes struct {
	*Event
	TicketTypes []*TicketType `json:"ticket_types"`
}
