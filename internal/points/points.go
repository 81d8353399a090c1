package points

import (
	"errors"

	pointsDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/points"
)

type Entry = pointsDatamodel.PointEntry

// Ledger reasons. Points are denominated in IDR, one point per rupiah.
const (
	ReasonRedemption = "transaction_redemption"
	ReasonRefund     = "transaction_refund"
	ReasonGrant      = "grant"
)

var (
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrInvalidAmount       = errors.New("points amount must be greater than 0")
)

// Repository mutates the balance counter and the entry log as one atomic
// unit. Debit must not let two concurrent callers overdraw the same user.
type Repository interface {
	Balance(userID int64) (int64, error)
	Debit(userID, amount int64, reason string, transactionID *int64) error
	Credit(userID, amount int64, reason string, transactionID *int64) error
	History(userID int64, limit, offset int) ([]*Entry, error)
}
