package transaction_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/event-ticketing/internal/core/events"
	"github.com/frahmantamala/event-ticketing/internal/points"
	"github.com/frahmantamala/event-ticketing/internal/transaction"
)

var _ = Describe("Sweeper", func() {
	var (
		sweeper   *transaction.Sweeper
		repo      *mockTransactionRepository
		publisher *mockPublisher
		now       time.Time
	)

	seed := func(id int64, status string, pointsUsed int64, deadline time.Time) {
		txn := &transaction.Transaction{
			ID:            id,
			UserID:        1,
			EventID:       10,
			Status:        status,
			PointsUsedIDR: pointsUsed,
		}
		switch status {
		case transaction.StatusWaitingPayment:
			txn.ExpiresAt = &deadline
		case transaction.StatusWaitingConfirmation:
			txn.DecisionDueAt = &deadline
		}
		repo.transactions[id] = txn
	}

	BeforeEach(func() {
		repo = newMockTransactionRepository()
		publisher = &mockPublisher{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		sweeper = transaction.NewSweeper(repo, publisher, logger, time.Minute, 100)
		now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	})

	It("should expire overdue payments and refund held points", func() {
		seed(1, transaction.StatusWaitingPayment, 50000, now.Add(-time.Minute))

		count, err := sweeper.RunOnce(context.Background(), now)

		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
		Expect(repo.transactions[1].Status).To(Equal(transaction.StatusExpired))
		Expect(repo.refunds).To(HaveLen(1))
		Expect(repo.refunds[0].Delta).To(Equal(int64(50000)))
		Expect(repo.refunds[0].Reason).To(Equal(points.ReasonRefund))
		Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeTransactionExpired))
	})

	It("should cancel reservations whose decision deadline passed", func() {
		seed(2, transaction.StatusWaitingConfirmation, 0, now.Add(-time.Hour))

		count, err := sweeper.RunOnce(context.Background(), now)

		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
		Expect(repo.transactions[2].Status).To(Equal(transaction.StatusCanceled))
		Expect(repo.refunds).To(BeEmpty())
		Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeTransactionCanceled))
	})

	It("should leave reservations inside their windows alone", func() {
		seed(1, transaction.StatusWaitingPayment, 0, now.Add(time.Hour))
		seed(2, transaction.StatusWaitingConfirmation, 0, now.Add(time.Hour))

		count, err := sweeper.RunOnce(context.Background(), now)

		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
		Expect(repo.transactions[1].Status).To(Equal(transaction.StatusWaitingPayment))
		Expect(repo.transactions[2].Status).To(Equal(transaction.StatusWaitingConfirmation))
	})

	It("should process a mixed batch in one pass", func() {
		seed(1, transaction.StatusWaitingPayment, 25000, now.Add(-time.Minute))
		seed(2, transaction.StatusWaitingPayment, 0, now.Add(time.Hour))
		seed(3, transaction.StatusWaitingConfirmation, 10000, now.Add(-time.Minute))

		count, err := sweeper.RunOnce(context.Background(), now)

		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
		Expect(repo.transactions[1].Status).To(Equal(transaction.StatusExpired))
		Expect(repo.transactions[2].Status).To(Equal(transaction.StatusWaitingPayment))
		Expect(repo.transactions[3].Status).To(Equal(transaction.StatusCanceled))
		Expect(repo.refunds).To(HaveLen(2))
	})

	It("should be a no-op on the second pass", func() {
		seed(1, transaction.StatusWaitingPayment, 50000, now.Add(-time.Minute))

		first, err := sweeper.RunOnce(context.Background(), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal(1))

		second, err := sweeper.RunOnce(context.Background(), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeZero())
		// the refund ran exactly once
		Expect(repo.refunds).To(HaveLen(1))
	})

	It("should skip a row another actor already moved", func() {
		seed(1, transaction.StatusWaitingPayment, 50000, now.Add(-time.Minute))
		repo.transitionError = transaction.ErrInvalidStateTransition

		count, err := sweeper.RunOnce(context.Background(), now)

		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
		Expect(repo.refunds).To(BeEmpty())
	})

	It("should stop when the context is canceled", func() {
		seed(1, transaction.StatusWaitingPayment, 0, now.Add(-time.Minute))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := sweeper.RunOnce(ctx, now)

		Expect(err).To(MatchError(context.Canceled))
	})
})
