package transaction

import (
	"errors"

	"github.com/frahmantamala/event-ticketing/internal/core/common/validation"
)

// CreateTransactionDTO is the checkout request payload.
type CreateTransactionDTO struct {
	EventID      int64  `json:"event_id" validate:"required"`
	TicketTypeID int64  `json:"ticket_type_id" validate:"required"`
	Quantity     int64  `json:"quantity" validate:"required,min=1"`
	UsePoints    bool   `json:"use_points"`
	PromoCode    string `json:"promo_code,omitempty"`
}

func (dto CreateTransactionDTO) Validate() error {
	if dto.EventID <= 0 {
		return errors.New("event_id is required")
	}
	if dto.TicketTypeID <= 0 {
		return errors.New("ticket_type_id is required")
	}
	if err := validation.ValidateTicketQuantity(dto.Quantity); err != nil {
		return err
	}
	return nil
}

// SubmitPaymentProofDTO carries the opaque reference to the uploaded
// payment-proof artifact; the core never sees the bytes.
type SubmitPaymentProofDTO struct {
	PaymentProofURL string `json:"payment_proof_url" validate:"required"`
}

func (dto SubmitPaymentProofDTO) Validate() error {
	if err := validation.ValidatePaymentProofURL(dto.PaymentProofURL); err != nil {
		return err
	}
	return nil
}

// RejectTransactionDTO carries the organizer's rejection reason.
type RejectTransactionDTO struct {
	Reason string `json:"reason" validate:"required"`
}

func (dto RejectTransactionDTO) Validate() error {
	if err := validation.ValidateRejectReason(dto.Reason); err != nil {
		return err
	}
	return nil
}
