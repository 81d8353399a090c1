package postgres

import (
	"github.com/frahmantamala/event-ticketing/internal/promotion"
	"gorm.io/gorm"
)

// PromotionRepository implements the promotion.Repository interface using GORM
type PromotionRepository struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) promotion.Repository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) FindByEventAndCode(eventID int64, code string) (*promotion.Promotion, error) {
	var promo promotion.Promotion
	err := r.db.Where("event_id = ? AND code = ?", eventID, code).First(&promo).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, promotion.ErrPromoNotFound
		}
		return nil, err
	}
	return &promo, nil
}

// IncrementUsage bumps used_count while re-asserting the cap, so two
// concurrent checkouts cannot both take the last slot.
func IncrementUsage(tx *gorm.DB, promoID int64) error {
	res := tx.Model(&promotion.Promotion{}).
		Where("id = ? AND (usage_cap IS NULL OR used_count < usage_cap)", promoID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return promotion.ErrPromoExhausted
	}
	return nil
}
