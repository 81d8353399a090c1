package postgres

import (
	userDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/event-ticketing/internal/points"
	"gorm.io/gorm"
)

// PointsRepository implements the points.Repository interface using GORM
type PointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) points.Repository {
	return &PointsRepository{db: db}
}

func (r *PointsRepository) Balance(userID int64) (int64, error) {
	var user userDatamodel.User
	err := r.db.Select("points_balance").Where("id = ?", userID).First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.PointsBalance, nil
}

func (r *PointsRepository) Debit(userID, amount int64, reason string, transactionID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return ApplyEntry(tx, &points.Entry{
			UserID:        userID,
			Delta:         -amount,
			Reason:        reason,
			TransactionID: transactionID,
		})
	})
}

func (r *PointsRepository) Credit(userID, amount int64, reason string, transactionID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return ApplyEntry(tx, &points.Entry{
			UserID:        userID,
			Delta:         amount,
			Reason:        reason,
			TransactionID: transactionID,
		})
	})
}

func (r *PointsRepository) History(userID int64, limit, offset int) ([]*points.Entry, error) {
	var entries []*points.Entry
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

// ApplyEntry moves the balance counter and appends the ledger row inside the
// caller's transaction. Negative deltas use a guarded update so a concurrent
// debit racing for the same balance loses instead of overdrawing; the row
// count tells us whether the compare-and-decrement won.
func ApplyEntry(tx *gorm.DB, entry *points.Entry) error {
	amount := entry.Delta

	if amount < 0 {
		res := tx.Model(&userDatamodel.User{}).
			Where("id = ? AND points_balance >= ?", entry.UserID, -amount).
			UpdateColumn("points_balance", gorm.Expr("points_balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return points.ErrInsufficientBalance
		}
	} else {
		res := tx.Model(&userDatamodel.User{}).
			Where("id = ?", entry.UserID).
			UpdateColumn("points_balance", gorm.Expr("points_balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
	}

	return tx.Create(entry).Error
}
