package points

import (
	"log/slog"
)

// Service handles points ledger business logic
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

func (s *Service) Balance(userID int64) (int64, error) {
	balance, err := s.repo.Balance(userID)
	if err != nil {
		s.logger.Error("failed to read points balance", "error", err, "user_id", userID)
		return 0, err
	}
	return balance, nil
}

// Debit consumes points for a checkout. Fails with ErrInsufficientBalance
// when the amount exceeds the current balance.
func (s *Service) Debit(userID, amount int64, reason string, transactionID *int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if err := s.repo.Debit(userID, amount, reason, transactionID); err != nil {
		s.logger.Error("points debit failed",
			"error", err,
			"user_id", userID,
			"amount", amount,
			"reason", reason)
		return err
	}

	s.logger.Info("points debited",
		"user_id", userID,
		"amount", amount,
		"reason", reason)
	return nil
}

// Credit restores points when a transaction that held them reaches a
// point-forfeiting terminal state.
func (s *Service) Credit(userID, amount int64, reason string, transactionID *int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if err := s.repo.Credit(userID, amount, reason, transactionID); err != nil {
		s.logger.Error("points credit failed",
			"error", err,
			"user_id", userID,
			"amount", amount,
			"reason", reason)
		return err
	}

	s.logger.Info("points credited",
		"user_id", userID,
		"amount", amount,
		"reason", reason)
	return nil
}

func (s *Service) History(userID int64, limit, offset int) ([]*Entry, error) {
	entries, err := s.repo.History(userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to read points history", "error", err, "user_id", userID)
		return nil, err
	}
	return entries, nil
}
