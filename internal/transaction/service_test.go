package transaction_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	ticketDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/ticket"
	"github.com/frahmantamala/event-ticketing/internal/core/events"
	"github.com/frahmantamala/event-ticketing/internal/event"
	"github.com/frahmantamala/event-ticketing/internal/points"
	"github.com/frahmantamala/event-ticketing/internal/promotion"
	"github.com/frahmantamala/event-ticketing/internal/transaction"
)

// Mock repository recording every mutation so tests can assert on the side
// effects the real repository would commit atomically.
type mockTransactionRepository struct {
	transactions map[int64]*transaction.Transaction
	items        map[int64][]*transaction.Item
	nextID       int64

	debits       []*points.Entry
	refunds      []*points.Entry
	promoBumps   []int64
	issued       []*ticketDatamodel.IssuedTicket
	transitions  []string
	proofUpdates []string

	createError     error
	getError        error
	transitionError error
}

func newMockTransactionRepository() *mockTransactionRepository {
	return &mockTransactionRepository{
		transactions: make(map[int64]*transaction.Transaction),
		items:        make(map[int64][]*transaction.Item),
		nextID:       1,
	}
}

func (m *mockTransactionRepository) CreateWithDebit(txn *transaction.Transaction, debit *points.Entry, promoID *int64) error {
	if m.createError != nil {
		return m.createError
	}
	txn.ID = m.nextID
	m.nextID++
	for _, item := range txn.Items {
		item.TransactionID = txn.ID
	}
	m.transactions[txn.ID] = txn
	m.items[txn.ID] = txn.Items
	if debit != nil {
		debit.TransactionID = &txn.ID
		m.debits = append(m.debits, debit)
	}
	if promoID != nil {
		m.promoBumps = append(m.promoBumps, *promoID)
	}
	return nil
}

func (m *mockTransactionRepository) GetByID(id int64) (*transaction.Transaction, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	txn, ok := m.transactions[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound
	}
	copied := *txn
	return &copied, nil
}

func (m *mockTransactionRepository) GetByUserID(userID int64, limit, offset int) ([]*transaction.Transaction, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var result []*transaction.Transaction
	for _, txn := range m.transactions {
		if txn.UserID == userID {
			result = append(result, txn)
		}
	}
	return result, nil
}

func (m *mockTransactionRepository) GetItems(transactionID int64) ([]*transaction.Item, error) {
	return m.items[transactionID], nil
}

func (m *mockTransactionRepository) Transition(txn *transaction.Transaction, fromStatus string, refund *points.Entry) error {
	if m.transitionError != nil {
		return m.transitionError
	}
	stored, ok := m.transactions[txn.ID]
	if !ok || stored.Status != fromStatus {
		return transaction.ErrInvalidStateTransition
	}
	*stored = *txn
	m.transitions = append(m.transitions, fromStatus+"->"+txn.Status)
	if refund != nil {
		m.refunds = append(m.refunds, refund)
	}
	return nil
}

func (m *mockTransactionRepository) TransitionToDone(txn *transaction.Transaction, fromStatus string, tickets []*ticketDatamodel.IssuedTicket) error {
	if m.transitionError != nil {
		return m.transitionError
	}
	stored, ok := m.transactions[txn.ID]
	if !ok || stored.Status != fromStatus {
		return transaction.ErrInvalidStateTransition
	}
	*stored = *txn
	m.transitions = append(m.transitions, fromStatus+"->"+txn.Status)
	m.issued = append(m.issued, tickets...)
	return nil
}

func (m *mockTransactionRepository) UpdatePaymentProof(id int64, proofURL string, proofAt time.Time) error {
	if stored, ok := m.transactions[id]; ok {
		stored.PaymentProofURL = &proofURL
		stored.PaymentProofAt = &proofAt
	}
	m.proofUpdates = append(m.proofUpdates, proofURL)
	return nil
}

func (m *mockTransactionRepository) FindPaymentOverdue(now time.Time, limit int) ([]*transaction.Transaction, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var result []*transaction.Transaction
	for _, txn := range m.transactions {
		if txn.PaymentOverdue(now) {
			copied := *txn
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockTransactionRepository) FindDecisionOverdue(now time.Time, limit int) ([]*transaction.Transaction, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var result []*transaction.Transaction
	for _, txn := range m.transactions {
		if txn.DecisionOverdue(now) {
			copied := *txn
			result = append(result, &copied)
		}
	}
	return result, nil
}

type mockEventCatalog struct {
	events      map[int64]*event.Event
	ticketTypes map[int64]*event.TicketType
}

func newMockEventCatalog() *mockEventCatalog {
	return &mockEventCatalog{
		events:      make(map[int64]*event.Event),
		ticketTypes: make(map[int64]*event.TicketType),
	}
}

func (m *mockEventCatalog) GetByID(id int64) (*event.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	return ev, nil
}

func (m *mockEventCatalog) GetTicketType(id int64) (*event.TicketType, error) {
	tt, ok := m.ticketTypes[id]
	if !ok {
		return nil, event.ErrTicketTypeNotFound
	}
	return tt, nil
}

type mockPromoLookup struct {
	promos map[string]*promotion.Promotion
}

func (m *mockPromoLookup) FindByEventAndCode(eventID int64, code string) (*promotion.Promotion, error) {
	promo, ok := m.promos[code]
	if !ok || promo.EventID != eventID {
		return nil, promotion.ErrPromoNotFound
	}
	return promo, nil
}

type mockPointsReader struct {
	balances map[int64]int64
	err      error
}

func (m *mockPointsReader) Balance(userID int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.balances[userID], nil
}

type mockPublisher struct {
	published []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, ev events.Event) error {
	m.published = append(m.published, ev)
	return nil
}

func (m *mockPublisher) eventTypes() []string {
	var types []string
	for _, ev := range m.published {
		types = append(types, ev.EventType())
	}
	return types
}

var _ = Describe("TransactionService", func() {
	var (
		service   *transaction.Service
		repo      *mockTransactionRepository
		catalog   *mockEventCatalog
		promos    *mockPromoLookup
		balances  *mockPointsReader
		publisher *mockPublisher
		logger    *slog.Logger
	)

	const (
		attendeeID  = int64(1)
		organizerID = int64(2)
		strangerID  = int64(3)
		eventID     = int64(10)
		regularID   = int64(100)
	)

	BeforeEach(func() {
		repo = newMockTransactionRepository()
		catalog = newMockEventCatalog()
		promos = &mockPromoLookup{promos: make(map[string]*promotion.Promotion)}
		balances = &mockPointsReader{balances: make(map[int64]int64)}
		publisher = &mockPublisher{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		catalog.events[eventID] = &event.Event{
			ID:          eventID,
			Name:        "Jakarta Jazz Night",
			OrganizerID: organizerID,
			TotalSeats:  600,
			IsPublished: true,
		}
		catalog.ticketTypes[regularID] = &event.TicketType{
			ID:       regularID,
			EventID:  eventID,
			Name:     "Regular",
			PriceIDR: 250000,
			Quota:    500,
		}

		service = transaction.NewService(repo, catalog, promos, balances, publisher, logger)
	})

	Describe("CreateTransaction", func() {
		It("should create a reservation waiting for payment", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 2}

			txn, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(transaction.StatusWaitingPayment))
			Expect(txn.TotalBeforeIDR).To(Equal(int64(500000)))
			Expect(txn.TotalPayableIDR).To(Equal(int64(500000)))
			Expect(txn.ExpiresAt).NotTo(BeNil())
			Expect(repo.debits).To(BeEmpty())
			Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeTransactionCreated))
		})

		It("should apply a valid promo and bump its usage", func() {
			promos.promos["EARLY10"] = &promotion.Promotion{
				ID:           7,
				EventID:      eventID,
				Code:         "EARLY10",
				DiscountType: promotion.DiscountTypePercentage,
				Value:        10,
				MinSpendIDR:  100000,
				StartsAt:     time.Now().Add(-time.Hour),
				EndsAt:       time.Now().Add(time.Hour),
			}
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 2, PromoCode: "EARLY10"}

			txn, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.PromoDiscountIDR).To(Equal(int64(50000)))
			Expect(txn.TotalPayableIDR).To(Equal(int64(450000)))
			Expect(repo.promoBumps).To(Equal([]int64{7}))
		})

		It("should debit points and skip payment when fully covered", func() {
			balances.balances[attendeeID] = 1000000
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 2, UsePoints: true}

			txn, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(transaction.StatusWaitingConfirmation))
			Expect(txn.PointsUsedIDR).To(Equal(int64(500000)))
			Expect(txn.TotalPayableIDR).To(BeZero())
			Expect(repo.debits).To(HaveLen(1))
			Expect(repo.debits[0].Delta).To(Equal(int64(-500000)))
			Expect(repo.debits[0].Reason).To(Equal(points.ReasonRedemption))
		})

		It("should reject an unknown promo without persisting anything", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1, PromoCode: "NOPE"}

			_, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).To(MatchError(promotion.ErrPromoNotFound))
			Expect(repo.transactions).To(BeEmpty())
		})

		It("should reject an expired promo instead of silently dropping it", func() {
			promos.promos["LATE"] = &promotion.Promotion{
				ID:           8,
				EventID:      eventID,
				Code:         "LATE",
				DiscountType: promotion.DiscountTypePercentage,
				Value:        10,
				StartsAt:     time.Now().Add(-48 * time.Hour),
				EndsAt:       time.Now().Add(-24 * time.Hour),
			}
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1, PromoCode: "LATE"}

			_, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).To(MatchError(promotion.ErrPromoExpired))
			Expect(repo.transactions).To(BeEmpty())
		})

		It("should return not found for an unknown event", func() {
			dto := transaction.CreateTransactionDTO{EventID: 999, TicketTypeID: regularID, Quantity: 1}

			_, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).To(MatchError(event.ErrEventNotFound))
		})

		It("should reject a ticket type that belongs to another event", func() {
			catalog.ticketTypes[200] = &event.TicketType{ID: 200, EventID: 999, PriceIDR: 100000, Quota: 10}
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: 200, Quantity: 1}

			_, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).To(MatchError(event.ErrTicketTypeNotFound))
		})

		It("should surface an insufficient balance from the atomic create", func() {
			balances.balances[attendeeID] = 500000
			repo.createError = points.ErrInsufficientBalance
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 2, UsePoints: true}

			_, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).To(MatchError(points.ErrInsufficientBalance))
		})

		It("should reject an oversized quantity before touching the catalog", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 11}

			_, err := service.CreateTransaction(attendeeID, dto)

			Expect(err).To(HaveOccurred())
			Expect(repo.transactions).To(BeEmpty())
		})
	})

	Describe("GetTransaction", func() {
		var txnID int64

		BeforeEach(func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())
			txnID = txn.ID
		})

		It("should let the owner read it with items", func() {
			txn, err := service.GetTransaction(txnID, attendeeID)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Items).To(HaveLen(1))
		})

		It("should let the event organizer read it", func() {
			_, err := service.GetTransaction(txnID, organizerID)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should deny anyone else", func() {
			_, err := service.GetTransaction(txnID, strangerID)

			Expect(err).To(MatchError(transaction.ErrUnauthorizedAccess))
		})

		It("should return not found for a missing transaction", func() {
			_, err := service.GetTransaction(999, attendeeID)

			Expect(err).To(MatchError(transaction.ErrTransactionNotFound))
		})
	})

	Describe("SubmitPaymentProof", func() {
		var txnID int64

		BeforeEach(func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())
			txnID = txn.ID
		})

		It("should move the transaction to the decision queue", func() {
			dto := transaction.SubmitPaymentProofDTO{PaymentProofURL: "https://cdn.example.com/proof.jpg"}

			txn, err := service.SubmitPaymentProof(txnID, attendeeID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(transaction.StatusWaitingConfirmation))
			Expect(txn.DecisionDueAt).NotTo(BeNil())
			Expect(repo.transitions).To(ContainElement("WAITING_PAYMENT->WAITING_CONFIRMATION"))
			Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeTransactionWaitingConfirmation))
		})

		It("should replace the proof in place while awaiting a decision", func() {
			first := transaction.SubmitPaymentProofDTO{PaymentProofURL: "https://cdn.example.com/blurry.jpg"}
			_, err := service.SubmitPaymentProof(txnID, attendeeID, first)
			Expect(err).NotTo(HaveOccurred())

			second := transaction.SubmitPaymentProofDTO{PaymentProofURL: "https://cdn.example.com/sharp.jpg"}
			txn, err := service.SubmitPaymentProof(txnID, attendeeID, second)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(transaction.StatusWaitingConfirmation))
			Expect(repo.proofUpdates).To(Equal([]string{"https://cdn.example.com/sharp.jpg"}))
			// still a single status transition
			Expect(repo.transitions).To(HaveLen(1))
		})

		It("should deny a non-owner", func() {
			dto := transaction.SubmitPaymentProofDTO{PaymentProofURL: "https://cdn.example.com/proof.jpg"}

			_, err := service.SubmitPaymentProof(txnID, strangerID, dto)

			Expect(err).To(MatchError(transaction.ErrUnauthorizedAccess))
		})

		It("should refuse proof on a terminal transaction", func() {
			repo.transactions[txnID].Status = transaction.StatusExpired
			dto := transaction.SubmitPaymentProofDTO{PaymentProofURL: "https://cdn.example.com/proof.jpg"}

			_, err := service.SubmitPaymentProof(txnID, attendeeID, dto)

			Expect(err).To(MatchError(transaction.ErrInvalidStateTransition))
		})
	})

	Describe("ApproveTransaction", func() {
		var txnID int64

		BeforeEach(func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 3}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())
			txnID = txn.ID

			_, err = service.SubmitPaymentProof(txnID, attendeeID, transaction.SubmitPaymentProofDTO{
				PaymentProofURL: "https://cdn.example.com/proof.jpg",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should issue one ticket per purchased seat", func() {
			txn, err := service.ApproveTransaction(txnID, organizerID)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(transaction.StatusDone))
			Expect(repo.issued).To(HaveLen(3))
			serials := map[string]bool{}
			for _, ticket := range repo.issued {
				Expect(ticket.TicketTypeID).To(Equal(regularID))
				Expect(ticket.UserID).To(Equal(attendeeID))
				serials[ticket.Serial] = true
			}
			Expect(serials).To(HaveLen(3))
			Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeTransactionApproved))
		})

		It("should deny a caller who does not organize the event", func() {
			_, err := service.ApproveTransaction(txnID, strangerID)

			Expect(err).To(MatchError(transaction.ErrNotEventOrganizer))
			Expect(repo.issued).To(BeEmpty())
		})

		It("should refuse to approve before proof submission", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1}
			fresh, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveTransaction(fresh.ID, organizerID)

			Expect(err).To(MatchError(transaction.ErrInvalidStateTransition))
		})

		It("should surface a sold-out event from the atomic transition", func() {
			repo.transitionError = transaction.ErrTicketsSoldOut

			_, err := service.ApproveTransaction(txnID, organizerID)

			Expect(err).To(MatchError(transaction.ErrTicketsSoldOut))
		})
	})

	Describe("RejectTransaction", func() {
		var txnID int64

		BeforeEach(func() {
			balances.balances[attendeeID] = 100000
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1, UsePoints: true}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())
			txnID = txn.ID

			_, err = service.SubmitPaymentProof(txnID, attendeeID, transaction.SubmitPaymentProofDTO{
				PaymentProofURL: "https://cdn.example.com/proof.jpg",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should record the reason and refund held points", func() {
			txn, err := service.RejectTransaction(txnID, organizerID, "amount does not match")

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(transaction.StatusRejected))
			Expect(txn.RejectReason).NotTo(BeNil())
			Expect(*txn.RejectReason).To(Equal("amount does not match"))
			Expect(repo.refunds).To(HaveLen(1))
			Expect(repo.refunds[0].Delta).To(Equal(int64(100000)))
			Expect(repo.refunds[0].Reason).To(Equal(points.ReasonRefund))
			Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeTransactionRejected))
		})

		It("should deny a caller who does not organize the event", func() {
			_, err := service.RejectTransaction(txnID, strangerID, "nope")

			Expect(err).To(MatchError(transaction.ErrNotEventOrganizer))
			Expect(repo.refunds).To(BeEmpty())
		})
	})

	Describe("CancelTransaction", func() {
		It("should cancel a waiting payment reservation and refund points", func() {
			balances.balances[attendeeID] = 100000
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 2, UsePoints: true}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())

			canceled, err := service.CancelTransaction(txn.ID, attendeeID)

			Expect(err).NotTo(HaveOccurred())
			Expect(canceled.Status).To(Equal(transaction.StatusCanceled))
			Expect(repo.refunds).To(HaveLen(1))
			Expect(repo.refunds[0].Delta).To(Equal(int64(100000)))
		})

		It("should skip the refund when no points were held", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CancelTransaction(txn.ID, attendeeID)

			Expect(err).NotTo(HaveOccurred())
			Expect(repo.refunds).To(BeEmpty())
		})

		It("should allow the organizer to cancel", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CancelTransaction(txn.ID, organizerID)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse to cancel a terminal transaction", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())
			repo.transactions[txn.ID].Status = transaction.StatusDone

			_, err = service.CancelTransaction(txn.ID, attendeeID)

			Expect(err).To(MatchError(transaction.ErrInvalidStateTransition))
		})

		It("should deny a stranger", func() {
			dto := transaction.CreateTransactionDTO{EventID: eventID, TicketTypeID: regularID, Quantity: 1}
			txn, err := service.CreateTransaction(attendeeID, dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CancelTransaction(txn.ID, strangerID)

			Expect(err).To(MatchError(transaction.ErrUnauthorizedAccess))
		})
	})
})
