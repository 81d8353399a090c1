package transaction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/event-ticketing/internal/core/events"
)

const (
	DefaultSweepInterval  = 5 * time.Minute
	DefaultSweepBatchSize = 100
)

// Sweeper periodically forces timed-out reservations into their terminal
// states: overdue payments expire, overdue organizer decisions cancel. Every
// transition goes through the same compare-and-swap path as human actions,
// so an overlapping sweep or a concurrent organizer decision makes a row a
// skip, never a double-process.
type Sweeper struct {
	repo      Repository
	publisher EventPublisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewSweeper(repo Repository, publisher EventPublisher, logger *slog.Logger, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &Sweeper{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Start runs the sweep loop until the context is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("expiry sweeper started", "interval", s.interval, "batch_size", s.batchSize)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count, err := s.RunOnce(ctx, s.now())
			if err != nil {
				s.logger.Error("sweep failed", "error", err)
				continue
			}
			if count > 0 {
				s.logger.Info("sweep completed", "transitions_applied", count)
			}
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

// RunOnce performs a single sweep and returns the number of transitions
// applied. One bad row is logged and skipped, never aborts the batch.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (int, error) {
	count := 0

	overdue, err := s.repo.FindPaymentOverdue(now, s.batchSize)
	if err != nil {
		return count, err
	}
	for _, txn := range overdue {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		if s.expire(txn, now) {
			count++
		}
	}

	undecided, err := s.repo.FindDecisionOverdue(now, s.batchSize)
	if err != nil {
		return count, err
	}
	for _, txn := range undecided {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		if s.cancelOverdue(txn, now) {
			count++
		}
	}

	return count, nil
}

func (s *Sweeper) expire(txn *Transaction, now time.Time) bool {
	txn.Expire(now)

	if err := s.repo.Transition(txn, StatusWaitingPayment, refundEntry(txn)); err != nil {
		if errors.Is(err, ErrInvalidStateTransition) {
			// another actor already moved it; nothing to do
			s.logger.Debug("skip expired transaction, status already changed", "transaction_id", txn.ID)
			return false
		}
		s.logger.Error("failed to expire transaction", "error", err, "transaction_id", txn.ID)
		return false
	}

	s.logger.Info("transaction expired by sweeper",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"points_refunded", txn.PointsUsedIDR)

	s.publish(events.NewTransactionStatusEvent(events.EventTypeTransactionExpired, txn.ID, txn.UserID, txn.EventID, txn.Status))
	return true
}

func (s *Sweeper) cancelOverdue(txn *Transaction, now time.Time) bool {
	txn.Cancel(now)

	if err := s.repo.Transition(txn, StatusWaitingConfirmation, refundEntry(txn)); err != nil {
		if errors.Is(err, ErrInvalidStateTransition) {
			s.logger.Debug("skip overdue decision, status already changed", "transaction_id", txn.ID)
			return false
		}
		s.logger.Error("failed to cancel overdue transaction", "error", err, "transaction_id", txn.ID)
		return false
	}

	s.logger.Info("transaction canceled by sweeper, decision deadline passed",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"points_refunded", txn.PointsUsedIDR)

	s.publish(events.NewTransactionStatusEvent(events.EventTypeTransactionCanceled, txn.ID, txn.UserID, txn.EventID, txn.Status))
	return true
}

func (s *Sweeper) publish(ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), ev); err != nil {
		s.logger.Error("failed to publish sweep event", "error", err, "event_type", ev.EventType())
	}
}
