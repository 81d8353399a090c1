package pricing

import (
	"errors"
	"time"

	"github.com/frahmantamala/event-ticketing/internal/promotion"
)

// Input carries everything the calculator needs so it can stay free of I/O.
// The caller resolves the promo and the points balance beforehand.
type Input struct {
	EventID       int64
	UnitPriceIDR  int64
	Quantity      int64
	Promo         *promotion.Promotion
	UsePoints     bool
	PointsBalance int64
	Now           time.Time
}

// Quote is the priced breakdown of a checkout. The caller is responsible for
// applying PointsUsedIDR to the ledger exactly once.
type Quote struct {
	SubtotalIDR      int64 `json:"subtotal_idr"`
	PromoDiscountIDR int64 `json:"promo_discount_idr"`
	PointsUsedIDR    int64 `json:"points_used_idr"`
	TotalPayableIDR  int64 `json:"total_payable_idr"`
}

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrInvalidPrice    = errors.New("unit price cannot be negative")
	ErrNegativePayable = errors.New("computed payable total is negative")
)

// Calculate prices one checkout: subtotal, promo discount, points redemption,
// payable. Promo failures are hard errors, never a silent zero discount.
func Calculate(in Input) (Quote, error) {
	if in.Quantity <= 0 {
		return Quote{}, ErrInvalidQuantity
	}
	if in.UnitPriceIDR < 0 {
		return Quote{}, ErrInvalidPrice
	}

	quote := Quote{SubtotalIDR: in.UnitPriceIDR * in.Quantity}

	if in.Promo != nil {
		if err := promotion.ValidateForPurchase(in.Promo, in.EventID, quote.SubtotalIDR, in.Now); err != nil {
			return Quote{}, err
		}
		quote.PromoDiscountIDR = promotion.DiscountFor(in.Promo, quote.SubtotalIDR)
	}

	if in.UsePoints && in.PointsBalance > 0 {
		remainder := quote.SubtotalIDR - quote.PromoDiscountIDR
		quote.PointsUsedIDR = min64(in.PointsBalance, remainder)
	}

	quote.TotalPayableIDR = quote.SubtotalIDR - quote.PromoDiscountIDR - quote.PointsUsedIDR
	if quote.TotalPayableIDR < 0 {
		// structurally unreachable given the clamps above, rejected anyway
		return Quote{}, ErrNegativePayable
	}

	return quote, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
