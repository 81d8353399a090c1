package postgres

import (
	"time"

	eventDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/event"
	ticketDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/ticket"
	transactionDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/transaction"
	"github.com/frahmantamala/event-ticketing/internal/points"
	pointsPostgres "github.com/frahmantamala/event-ticketing/internal/points/postgres"
	promotionPostgres "github.com/frahmantamala/event-ticketing/internal/promotion/postgres"
	"github.com/frahmantamala/event-ticketing/internal/transaction"
	"gorm.io/gorm"
)

// TransactionRepository implements the transaction.Repository interface
// using GORM. Every mutating method is a single database transaction so the
// status change and its side effects commit or roll back together.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) transaction.Repository {
	return &TransactionRepository{db: db}
}

// CreateWithDebit persists the reservation, its items, the points debit and
// the promo usage increment atomically. A failed debit (insufficient
// balance) or exhausted promo rolls the whole checkout back.
func (r *TransactionRepository) CreateWithDebit(txn *transaction.Transaction, debit *points.Entry, promoID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		record := transaction.ToDataModel(txn)
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		txn.ID = record.ID

		for _, item := range txn.Items {
			item.TransactionID = record.ID
			itemRecord := transaction.ItemToDataModel(item)
			if err := tx.Create(itemRecord).Error; err != nil {
				return err
			}
			item.ID = itemRecord.ID
		}

		if debit != nil {
			debit.TransactionID = &record.ID
			if err := pointsPostgres.ApplyEntry(tx, debit); err != nil {
				return err
			}
		}

		if promoID != nil {
			if err := promotionPostgres.IncrementUsage(tx, *promoID); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *TransactionRepository) GetByID(id int64) (*transaction.Transaction, error) {
	var record transactionDatamodel.Transaction
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, transaction.ErrTransactionNotFound
		}
		return nil, err
	}
	return transaction.FromDataModel(&record), nil
}

func (r *TransactionRepository) GetByUserID(userID int64, limit, offset int) ([]*transaction.Transaction, error) {
	var records []*transactionDatamodel.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return transaction.FromDataModelSlice(records), nil
}

func (r *TransactionRepository) GetItems(transactionID int64) ([]*transaction.Item, error) {
	var records []*transactionDatamodel.TransactionItem
	err := r.db.Where("transaction_id = ?", transactionID).Find(&records).Error
	if err != nil {
		return nil, err
	}
	items := make([]*transaction.Item, len(records))
	for i, rec := range records {
		items[i] = transaction.ItemFromDataModel(rec)
	}
	return items, nil
}

// Transition applies the already-mutated transaction fields with the prior
// status as a write precondition. Zero rows affected means another actor won
// the race; the refund then never executes because the whole transaction
// rolls back, which is what makes the credit-back exactly-once.
func (r *TransactionRepository) Transition(txn *transaction.Transaction, fromStatus string, refund *points.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&transactionDatamodel.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, fromStatus).
			Updates(map[string]interface{}{
				"status":            txn.Status,
				"payment_proof_url": txn.PaymentProofURL,
				"payment_proof_at":  txn.PaymentProofAt,
				"reject_reason":     txn.RejectReason,
				"decision_due_at":   txn.DecisionDueAt,
				"updated_at":        txn.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return transaction.ErrInvalidStateTransition
		}

		if refund != nil {
			if err := pointsPostgres.ApplyEntry(tx, refund); err != nil {
				return err
			}
		}

		return nil
	})
}

// TransitionToDone confirms the reservation: status CAS plus ticket issuance
// plus guarded inventory decrements. The quota guard failing (oversell) rolls
// everything back.
func (r *TransactionRepository) TransitionToDone(txn *transaction.Transaction, fromStatus string, tickets []*ticketDatamodel.IssuedTicket) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&transactionDatamodel.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, fromStatus).
			Updates(map[string]interface{}{
				"status":     txn.Status,
				"updated_at": txn.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return transaction.ErrInvalidStateTransition
		}

		// issued per ticket type so the quota guard sees the full quantity
		byTicketType := make(map[int64]int64)
		for _, t := range tickets {
			byTicketType[t.TicketTypeID]++
		}

		for ticketTypeID, qty := range byTicketType {
			res := tx.Model(&eventDatamodel.TicketType{}).
				Where("id = ? AND sold + ? <= quota", ticketTypeID, qty).
				UpdateColumn("sold", gorm.Expr("sold + ?", qty))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return transaction.ErrTicketsSoldOut
			}
		}

		var totalQty int64
		for _, qty := range byTicketType {
			totalQty += qty
		}
		if err := tx.Model(&eventDatamodel.Event{}).
			Where("id = ?", txn.EventID).
			UpdateColumn("seats_sold", gorm.Expr("seats_sold + ?", totalQty)).Error; err != nil {
			return err
		}

		for _, t := range tickets {
			if err := tx.Create(t).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *TransactionRepository) UpdatePaymentProof(id int64, proofURL string, proofAt time.Time) error {
	return r.db.Model(&transactionDatamodel.Transaction{}).
		Where("id = ? AND status = ?", id, transaction.StatusWaitingConfirmation).
		Updates(map[string]interface{}{
			"payment_proof_url": proofURL,
			"payment_proof_at":  proofAt,
			"updated_at":        time.Now(),
		}).Error
}

func (r *TransactionRepository) FindPaymentOverdue(now time.Time, limit int) ([]*transaction.Transaction, error) {
	var records []*transactionDatamodel.Transaction
	err := r.db.Where("status = ? AND expires_at < ?", transaction.StatusWaitingPayment, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return transaction.FromDataModelSlice(records), nil
}

func (r *TransactionRepository) FindDecisionOverdue(now time.Time, limit int) ([]*transaction.Transaction, error) {
	var records []*transactionDatamodel.Transaction
	err := r.db.Where("status = ? AND decision_due_at < ?", transaction.StatusWaitingConfirmation, now).
		Order("decision_due_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return transaction.FromDataModelSlice(records), nil
}
