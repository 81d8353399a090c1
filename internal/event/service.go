package event

import (
	"log/slog"
)

// Service handles event catalog reads
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetByID returns the bare event row, used by the transaction core for
// organizer ownership checks.
func (s *Service) GetByID(id int64) (*Event, error) {
	return s.repo.GetByID(id)
}

func (s *Service) GetTicketType(id int64) (*TicketType, error) {
	return s.repo.GetTicketType(id)
}

func (s *Service) GetEvent(id int64) (*EventWithTicketTypes, error) {
	ev, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get event", "error", err, "event_id", id)
		return nil, ErrEventNotFound
	}

	ticketTypes, err := s.repo.ListTicketTypes(id)
	if err != nil {
		s.logger.Error("failed to list ticket types", "error", err, "event_id", id)
		return nil, err
	}

	return &EventWithTicketTypes{Event: ev, TicketTypes: ticketTypes}, nil
}

func (s *Service) ListEvents(limit, offset int) ([]*Event, error) {
	events, err := s.repo.ListPublished(limit, offset)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		return nil, err
	}
	return events, nil
}
