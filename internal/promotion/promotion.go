package promotion

import (
	"errors"
	"time"

	promotionDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/promotion"
)

type Promotion = promotionDatamodel.Promotion

const (
	DiscountTypePercentage = promotionDatamodel.DiscountTypePercentage
	DiscountTypeFixed      = promotionDatamodel.DiscountTypeFixed
)

// Repository looks up promos scoped to a single event. Codes are only
// unique within their event, never globally.
type Repository interface {
	FindByEventAndCode(eventID int64, code string) (*Promotion, error)
}

var (
	ErrPromoNotFound  = errors.New("promo code not found for this event")
	ErrPromoExpired   = errors.New("promo code is outside its validity window")
	ErrPromoMinSpend  = errors.New("subtotal does not meet the promo minimum spend")
	ErrPromoExhausted = errors.New("promo code usage cap reached")
)

// ValidateForPurchase applies every promo precondition. A supplied code that
// fails any of them rejects the whole checkout; there is no silent
// zero-discount fallback.
func ValidateForPurchase(p *Promotion, eventID, subtotalIDR int64, now time.Time) error {
	if p == nil || p.EventID != eventID {
		return ErrPromoNotFound
	}
	if now.Before(p.StartsAt) || now.After(p.EndsAt) {
		return ErrPromoExpired
	}
	if subtotalIDR < p.MinSpendIDR {
		return ErrPromoMinSpend
	}
	if p.UsageCap != nil && p.UsedCount >= *p.UsageCap {
		return ErrPromoExhausted
	}
	return nil
}

// DiscountFor computes the discount amount for a validated promo.
// Percentage discounts floor; fixed discounts are capped at the subtotal.
func DiscountFor(p *Promotion, subtotalIDR int64) int64 {
	switch p.DiscountType {
	case DiscountTypePercentage:
		return p.Value * subtotalIDR / 100
	case DiscountTypeFixed:
		if p.Value > subtotalIDR {
			return subtotalIDR
		}
		return p.Value
	default:
		return 0
	}
}
