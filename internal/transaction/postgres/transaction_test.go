package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ticketDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/ticket"
	"github.com/frahmantamala/event-ticketing/internal/points"
	"github.com/frahmantamala/event-ticketing/internal/pricing"
	"github.com/frahmantamala/event-ticketing/internal/promotion"
	"github.com/frahmantamala/event-ticketing/internal/transaction"
)

func TestTransactionRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TransactionRepository Suite")
}

type SQLiteUser struct {
	ID            int64     `gorm:"primaryKey"`
	Email         string    `gorm:"column:email"`
	Name          string    `gorm:"column:name"`
	PasswordHash  string    `gorm:"column:password_hash"`
	IsActive      bool      `gorm:"column:is_active;default:true"`
	PointsBalance int64     `gorm:"column:points_balance;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (SQLiteUser) TableName() string { return "users" }

type SQLiteEvent struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name"`
	OrganizerID int64     `gorm:"column:organizer_id"`
	StartsAt    time.Time `gorm:"column:starts_at;default:CURRENT_TIMESTAMP"`
	TotalSeats  int64     `gorm:"column:total_seats"`
	SeatsSold   int64     `gorm:"column:seats_sold;default:0"`
	IsPublished bool      `gorm:"column:is_published;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (SQLiteEvent) TableName() string { return "events" }

type SQLiteTicketType struct {
	ID        int64     `gorm:"primaryKey"`
	EventID   int64     `gorm:"column:event_id"`
	Name      string    `gorm:"column:name"`
	PriceIDR  int64     `gorm:"column:price_idr"`
	Quota     int64     `gorm:"column:quota"`
	Sold      int64     `gorm:"column:sold;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (SQLiteTicketType) TableName() string { return "ticket_types" }

type SQLiteTransaction struct {
	ID               int64      `gorm:"primaryKey"`
	UserID           int64      `gorm:"column:user_id"`
	EventID          int64      `gorm:"column:event_id"`
	Status           string     `gorm:"column:status"`
	TotalBeforeIDR   int64      `gorm:"column:total_before_idr"`
	PromoDiscountIDR int64      `gorm:"column:promo_discount_idr;default:0"`
	PromoCode        *string    `gorm:"column:promo_code"`
	PointsUsedIDR    int64      `gorm:"column:points_used_idr;default:0"`
	TotalPayableIDR  int64      `gorm:"column:total_payable_idr"`
	PaymentProofURL  *string    `gorm:"column:payment_proof_url"`
	PaymentProofAt   *time.Time `gorm:"column:payment_proof_at"`
	RejectReason     *string    `gorm:"column:reject_reason"`
	ExpiresAt        *time.Time `gorm:"column:expires_at"`
	DecisionDueAt    *time.Time `gorm:"column:decision_due_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (SQLiteTransaction) TableName() string { return "transactions" }

type SQLiteTransactionItem struct {
	ID            int64     `gorm:"primaryKey"`
	TransactionID int64     `gorm:"column:transaction_id"`
	TicketTypeID  int64     `gorm:"column:ticket_type_id"`
	Quantity      int64     `gorm:"column:quantity"`
	UnitPriceIDR  int64     `gorm:"column:unit_price_idr"`
	SubtotalIDR   int64     `gorm:"column:subtotal_idr"`
	CreatedAt     time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

func (SQLiteTransactionItem) TableName() string { return "transaction_items" }

type SQLitePointEntry struct {
	ID            int64     `gorm:"primaryKey"`
	UserID        int64     `gorm:"column:user_id"`
	Delta         int64     `gorm:"column:delta"`
	Reason        string    `gorm:"column:reason"`
	TransactionID *int64    `gorm:"column:transaction_id"`
	CreatedAt     time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

func (SQLitePointEntry) TableName() string { return "point_entries" }

type SQLitePromotion struct {
	ID           int64     `gorm:"primaryKey"`
	EventID      int64     `gorm:"column:event_id"`
	Code         string    `gorm:"column:code"`
	DiscountType string    `gorm:"column:discount_type"`
	Value        int64     `gorm:"column:value"`
	MinSpendIDR  int64     `gorm:"column:min_spend_idr;default:0"`
	StartsAt     time.Time `gorm:"column:starts_at;default:CURRENT_TIMESTAMP"`
	EndsAt       time.Time `gorm:"column:ends_at;default:CURRENT_TIMESTAMP"`
	UsageCap     *int64    `gorm:"column:usage_cap"`
	UsedCount    int64     `gorm:"column:used_count;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (SQLitePromotion) TableName() string { return "promotions" }

type SQLiteIssuedTicket struct {
	ID            int64     `gorm:"primaryKey"`
	Serial        string    `gorm:"column:serial;uniqueIndex"`
	TransactionID int64     `gorm:"column:transaction_id"`
	TicketTypeID  int64     `gorm:"column:ticket_type_id"`
	UserID        int64     `gorm:"column:user_id"`
	IssuedAt      time.Time `gorm:"column:issued_at;default:CURRENT_TIMESTAMP"`
}

func (SQLiteIssuedTicket) TableName() string { return "issued_tickets" }

var _ = Describe("TransactionRepository", func() {
	var (
		db   *gorm.DB
		repo transaction.Repository
		now  time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&SQLiteUser{},
			&SQLiteEvent{},
			&SQLiteTicketType{},
			&SQLiteTransaction{},
			&SQLiteTransactionItem{},
			&SQLitePointEntry{},
			&SQLitePromotion{},
			&SQLiteIssuedTicket{},
		)
		Expect(err).NotTo(HaveOccurred())

		now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

		Expect(db.Create(&SQLiteUser{ID: 1, Email: "rani@mail.com", Name: "Rani", PointsBalance: 1000000}).Error).NotTo(HaveOccurred())
		Expect(db.Create(&SQLiteEvent{ID: 10, Name: "Jakarta Jazz Night", OrganizerID: 2, TotalSeats: 600}).Error).NotTo(HaveOccurred())
		Expect(db.Create(&SQLiteTicketType{ID: 100, EventID: 10, Name: "Regular", PriceIDR: 250000, Quota: 500}).Error).NotTo(HaveOccurred())

		repo = NewTransactionRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	newCheckout := func(quantity int64, quote pricing.Quote) *transaction.Transaction {
		return transaction.NewTransaction(1, 10, 100, 250000, quantity, nil, quote, now)
	}

	balanceOf := func(userID int64) int64 {
		var user SQLiteUser
		Expect(db.First(&user, userID).Error).NotTo(HaveOccurred())
		return user.PointsBalance
	}

	Describe("CreateWithDebit", func() {
		It("should persist the transaction with its item", func() {
			txn := newCheckout(2, pricing.Quote{SubtotalIDR: 500000, TotalPayableIDR: 500000})

			err := repo.CreateWithDebit(txn, nil, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(txn.ID).NotTo(BeZero())

			stored, err := repo.GetByID(txn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transaction.StatusWaitingPayment))
			Expect(stored.TotalPayableIDR).To(Equal(int64(500000)))

			items, err := repo.GetItems(txn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Quantity).To(Equal(int64(2)))
			Expect(items[0].UnitPriceIDR).To(Equal(int64(250000)))
		})

		It("should debit points atomically with the insert", func() {
			txn := newCheckout(2, pricing.Quote{SubtotalIDR: 500000, PointsUsedIDR: 500000, TotalPayableIDR: 0})
			debit := &points.Entry{UserID: 1, Delta: -500000, Reason: points.ReasonRedemption}

			err := repo.CreateWithDebit(txn, debit, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(balanceOf(1)).To(Equal(int64(500000)))

			var entry SQLitePointEntry
			Expect(db.Where("user_id = ?", 1).First(&entry).Error).NotTo(HaveOccurred())
			Expect(entry.Delta).To(Equal(int64(-500000)))
			Expect(entry.TransactionID).NotTo(BeNil())
			Expect(*entry.TransactionID).To(Equal(txn.ID))
		})

		It("should roll back the whole checkout when the debit loses", func() {
			txn := newCheckout(2, pricing.Quote{SubtotalIDR: 500000, PointsUsedIDR: 500000, TotalPayableIDR: 0})
			debit := &points.Entry{UserID: 1, Delta: -2000000, Reason: points.ReasonRedemption}

			err := repo.CreateWithDebit(txn, debit, nil)

			Expect(err).To(MatchError(points.ErrInsufficientBalance))
			Expect(balanceOf(1)).To(Equal(int64(1000000)))

			var count int64
			Expect(db.Model(&SQLiteTransaction{}).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should bump promo usage under its cap", func() {
			cap := int64(2)
			Expect(db.Create(&SQLitePromotion{
				ID: 7, EventID: 10, Code: "EARLY10",
				DiscountType: promotion.DiscountTypePercentage, Value: 10,
				UsageCap: &cap, UsedCount: 1,
			}).Error).NotTo(HaveOccurred())

			txn := newCheckout(1, pricing.Quote{SubtotalIDR: 250000, PromoDiscountIDR: 25000, TotalPayableIDR: 225000})
			promoID := int64(7)

			err := repo.CreateWithDebit(txn, nil, &promoID)

			Expect(err).NotTo(HaveOccurred())
			var promo SQLitePromotion
			Expect(db.First(&promo, 7).Error).NotTo(HaveOccurred())
			Expect(promo.UsedCount).To(Equal(int64(2)))
		})

		It("should roll back when the promo cap is already exhausted", func() {
			cap := int64(1)
			Expect(db.Create(&SQLitePromotion{
				ID: 7, EventID: 10, Code: "EARLY10",
				DiscountType: promotion.DiscountTypePercentage, Value: 10,
				UsageCap: &cap, UsedCount: 1,
			}).Error).NotTo(HaveOccurred())

			txn := newCheckout(1, pricing.Quote{SubtotalIDR: 250000, PromoDiscountIDR: 25000, TotalPayableIDR: 225000})
			promoID := int64(7)

			err := repo.CreateWithDebit(txn, nil, &promoID)

			Expect(err).To(MatchError(promotion.ErrPromoExhausted))
			var count int64
			Expect(db.Model(&SQLiteTransaction{}).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	Describe("Transition", func() {
		var txn *transaction.Transaction

		BeforeEach(func() {
			txn = newCheckout(1, pricing.Quote{SubtotalIDR: 250000, PointsUsedIDR: 100000, TotalPayableIDR: 150000})
			debit := &points.Entry{UserID: 1, Delta: -100000, Reason: points.ReasonRedemption}
			Expect(repo.CreateWithDebit(txn, debit, nil)).To(Succeed())
		})

		It("should apply the transition when the prior status matches", func() {
			txn.SubmitProof("https://cdn.example.com/proof.jpg", now)

			err := repo.Transition(txn, transaction.StatusWaitingPayment, nil)

			Expect(err).NotTo(HaveOccurred())
			stored, err := repo.GetByID(txn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transaction.StatusWaitingConfirmation))
			Expect(stored.PaymentProofURL).NotTo(BeNil())
			Expect(stored.DecisionDueAt).NotTo(BeNil())
		})

		It("should reject a transition from a stale status", func() {
			txn.Expire(now)

			err := repo.Transition(txn, transaction.StatusWaitingConfirmation, nil)

			Expect(err).To(MatchError(transaction.ErrInvalidStateTransition))
			stored, getErr := repo.GetByID(txn.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transaction.StatusWaitingPayment))
		})

		It("should apply the refund exactly once across repeated transitions", func() {
			refund := &points.Entry{UserID: 1, Delta: 100000, Reason: points.ReasonRefund, TransactionID: &txn.ID}
			txn.Cancel(now)

			Expect(repo.Transition(txn, transaction.StatusWaitingPayment, refund)).To(Succeed())
			Expect(balanceOf(1)).To(Equal(int64(1000000)))

			// a second sweep or a racing actor loses the CAS, so no double credit
			again := &points.Entry{UserID: 1, Delta: 100000, Reason: points.ReasonRefund, TransactionID: &txn.ID}
			err := repo.Transition(txn, transaction.StatusWaitingPayment, again)

			Expect(err).To(MatchError(transaction.ErrInvalidStateTransition))
			Expect(balanceOf(1)).To(Equal(int64(1000000)))

			var refunds int64
			Expect(db.Model(&SQLitePointEntry{}).Where("reason = ?", points.ReasonRefund).Count(&refunds).Error).NotTo(HaveOccurred())
			Expect(refunds).To(Equal(int64(1)))
		})

		It("should persist the reject reason", func() {
			txn.SubmitProof("https://cdn.example.com/proof.jpg", now)
			Expect(repo.Transition(txn, transaction.StatusWaitingPayment, nil)).To(Succeed())

			txn.Reject("amount mismatch", now.Add(time.Hour))
			Expect(repo.Transition(txn, transaction.StatusWaitingConfirmation, nil)).To(Succeed())

			stored, err := repo.GetByID(txn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transaction.StatusRejected))
			Expect(stored.RejectReason).NotTo(BeNil())
			Expect(*stored.RejectReason).To(Equal("amount mismatch"))
		})
	})

	Describe("TransitionToDone", func() {
		var txn *transaction.Transaction

		BeforeEach(func() {
			txn = newCheckout(3, pricing.Quote{SubtotalIDR: 750000, TotalPayableIDR: 750000})
			Expect(repo.CreateWithDebit(txn, nil, nil)).To(Succeed())
			txn.SubmitProof("https://cdn.example.com/proof.jpg", now)
			Expect(repo.Transition(txn, transaction.StatusWaitingPayment, nil)).To(Succeed())
		})

		issued := func(qty int64) []*ticketDatamodel.IssuedTicket {
			var tickets []*ticketDatamodel.IssuedTicket
			for i := int64(0); i < qty; i++ {
				tickets = append(tickets, &ticketDatamodel.IssuedTicket{
					Serial:        time.Now().Format("20060102150405.000000000") + string(rune('a'+i)),
					TransactionID: txn.ID,
					TicketTypeID:  100,
					UserID:        1,
					IssuedAt:      now,
				})
			}
			return tickets
		}

		It("should issue tickets and move the inventory counters", func() {
			txn.Approve(now)

			err := repo.TransitionToDone(txn, transaction.StatusWaitingConfirmation, issued(3))

			Expect(err).NotTo(HaveOccurred())

			stored, err := repo.GetByID(txn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transaction.StatusDone))

			var ticketType SQLiteTicketType
			Expect(db.First(&ticketType, 100).Error).NotTo(HaveOccurred())
			Expect(ticketType.Sold).To(Equal(int64(3)))

			var ev SQLiteEvent
			Expect(db.First(&ev, 10).Error).NotTo(HaveOccurred())
			Expect(ev.SeatsSold).To(Equal(int64(3)))

			var ticketCount int64
			Expect(db.Model(&SQLiteIssuedTicket{}).Where("transaction_id = ?", txn.ID).Count(&ticketCount).Error).NotTo(HaveOccurred())
			Expect(ticketCount).To(Equal(int64(3)))
		})

		It("should roll everything back when the quota would oversell", func() {
			Expect(db.Model(&SQLiteTicketType{}).Where("id = ?", 100).Update("sold", 498).Error).NotTo(HaveOccurred())
			txn.Approve(now)

			err := repo.TransitionToDone(txn, transaction.StatusWaitingConfirmation, issued(3))

			Expect(err).To(MatchError(transaction.ErrTicketsSoldOut))

			stored, getErr := repo.GetByID(txn.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transaction.StatusWaitingConfirmation))

			var ticketType SQLiteTicketType
			Expect(db.First(&ticketType, 100).Error).NotTo(HaveOccurred())
			Expect(ticketType.Sold).To(Equal(int64(498)))

			var ticketCount int64
			Expect(db.Model(&SQLiteIssuedTicket{}).Count(&ticketCount).Error).NotTo(HaveOccurred())
			Expect(ticketCount).To(BeZero())
		})

		It("should allow filling the quota exactly", func() {
			Expect(db.Model(&SQLiteTicketType{}).Where("id = ?", 100).Update("sold", 497).Error).NotTo(HaveOccurred())
			txn.Approve(now)

			err := repo.TransitionToDone(txn, transaction.StatusWaitingConfirmation, issued(3))

			Expect(err).NotTo(HaveOccurred())
			var ticketType SQLiteTicketType
			Expect(db.First(&ticketType, 100).Error).NotTo(HaveOccurred())
			Expect(ticketType.Sold).To(Equal(int64(500)))
		})
	})

	Describe("overdue queries", func() {
		It("should find only waiting payment rows past their deadline", func() {
			overdue := newCheckout(1, pricing.Quote{SubtotalIDR: 250000, TotalPayableIDR: 250000})
			Expect(repo.CreateWithDebit(overdue, nil, nil)).To(Succeed())
			past := now.Add(-time.Hour)
			Expect(db.Model(&SQLiteTransaction{}).Where("id = ?", overdue.ID).Update("expires_at", past).Error).NotTo(HaveOccurred())

			fresh := newCheckout(1, pricing.Quote{SubtotalIDR: 250000, TotalPayableIDR: 250000})
			Expect(repo.CreateWithDebit(fresh, nil, nil)).To(Succeed())

			found, err := repo.FindPaymentOverdue(now, 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ID).To(Equal(overdue.ID))
		})

		It("should find only undecided rows past their decision deadline", func() {
			undecided := newCheckout(1, pricing.Quote{SubtotalIDR: 250000, TotalPayableIDR: 250000})
			Expect(repo.CreateWithDebit(undecided, nil, nil)).To(Succeed())
			undecided.SubmitProof("https://cdn.example.com/proof.jpg", now.Add(-100*time.Hour))
			Expect(repo.Transition(undecided, transaction.StatusWaitingPayment, nil)).To(Succeed())

			found, err := repo.FindDecisionOverdue(now, 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ID).To(Equal(undecided.ID))

			none, err := repo.FindPaymentOverdue(now.Add(-200*time.Hour), 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())
		})
	})

	Describe("UpdatePaymentProof", func() {
		It("should replace the proof only while awaiting confirmation", func() {
			txn := newCheckout(1, pricing.Quote{SubtotalIDR: 250000, TotalPayableIDR: 250000})
			Expect(repo.CreateWithDebit(txn, nil, nil)).To(Succeed())
			txn.SubmitProof("https://cdn.example.com/blurry.jpg", now)
			Expect(repo.Transition(txn, transaction.StatusWaitingPayment, nil)).To(Succeed())

			err := repo.UpdatePaymentProof(txn.ID, "https://cdn.example.com/sharp.jpg", now.Add(time.Minute))

			Expect(err).NotTo(HaveOccurred())
			stored, getErr := repo.GetByID(txn.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(*stored.PaymentProofURL).To(Equal("https://cdn.example.com/sharp.jpg"))
		})
	})

	Describe("GetByUserID", func() {
		It("should return only the caller's transactions", func() {
			mine := newCheckout(1, pricing.Quote{SubtotalIDR: 250000, TotalPayableIDR: 250000})
			Expect(repo.CreateWithDebit(mine, nil, nil)).To(Succeed())

			theirs := transaction.NewTransaction(99, 10, 100, 250000, 1, nil,
				pricing.Quote{SubtotalIDR: 250000, TotalPayableIDR: 250000}, now)
			Expect(repo.CreateWithDebit(theirs, nil, nil)).To(Succeed())

			found, err := repo.GetByUserID(1, 10, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].UserID).To(Equal(int64(1)))
		})
	})

	Describe("GetByID", func() {
		It("should return not found for a missing id", func() {
			_, err := repo.GetByID(12345)

			Expect(err).To(MatchError(transaction.ErrTransactionNotFound))
		})
	})
})
