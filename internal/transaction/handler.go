package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/frahmantamala/event-ticketing/internal/auth"
	"github.com/frahmantamala/event-ticketing/internal/event"
	"github.com/frahmantamala/event-ticketing/internal/points"
	"github.com/frahmantamala/event-ticketing/internal/pricing"
	"github.com/frahmantamala/event-ticketing/internal/promotion"
	"github.com/frahmantamala/event-ticketing/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateTransaction(userID int64, dto CreateTransactionDTO) (*Transaction, error)
	GetTransaction(id, actorID int64) (*Transaction, error)
	GetUserTransactions(userID int64, limit, offset int) ([]*Transaction, error)
	SubmitPaymentProof(transactionID, actorID int64, dto SubmitPaymentProofDTO) (*Transaction, error)
	ApproveTransaction(transactionID, organizerID int64) (*Transaction, error)
	RejectTransaction(transactionID, organizerID int64, reason string) (*Transaction, error)
	CancelTransaction(transactionID, actorID int64) (*Transaction, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("CreateTransaction: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateTransaction: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.Service.CreateTransaction(user.ID, dto)
	if err != nil {
		h.Logger.Error("CreateTransaction: service error", "error", err, "user_id", user.ID)
		h.writeServiceError(w, err)
		return
	}

	h.Logger.Info("CreateTransaction: transaction created",
		"transaction_id", txn.ID,
		"user_id", user.ID,
		"payable", txn.TotalPayableIDR,
		"status", txn.Status)

	h.WriteJSON(w, http.StatusCreated, txn)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("GetTransaction: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID, err := h.transactionIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	txn, err := h.Service.GetTransaction(transactionID, user.ID)
	if err != nil {
		h.Logger.Error("GetTransaction: service error", "error", err, "transaction_id", transactionID, "user_id", user.ID)
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) GetUserTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("GetUserTransactions: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	txns, err := h.Service.GetUserTransactions(user.ID, limit, offset)
	if err != nil {
		h.Logger.Error("GetUserTransactions: service error", "error", err, "user_id", user.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to get transactions")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *Handler) SubmitPaymentProof(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("SubmitPaymentProof: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID, err := h.transactionIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	var dto SubmitPaymentProofDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("SubmitPaymentProof: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.Service.SubmitPaymentProof(transactionID, user.ID, dto)
	if err != nil {
		h.Logger.Error("SubmitPaymentProof: service error", "error", err, "transaction_id", transactionID, "user_id", user.ID)
		h.writeServiceError(w, err)
		return
	}

	h.Logger.Info("SubmitPaymentProof: proof recorded", "transaction_id", txn.ID, "user_id", user.ID)
	h.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("ApproveTransaction: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID, err := h.transactionIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	txn, err := h.Service.ApproveTransaction(transactionID, user.ID)
	if err != nil {
		h.Logger.Error("ApproveTransaction: service error", "error", err, "transaction_id", transactionID, "organizer_id", user.ID)
		h.writeServiceError(w, err)
		return
	}

	h.Logger.Info("ApproveTransaction: transaction approved", "transaction_id", txn.ID, "organizer_id", user.ID)
	h.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("RejectTransaction: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID, err := h.transactionIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	var dto RejectTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RejectTransaction: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.Logger.Error("RejectTransaction: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	txn, err := h.Service.RejectTransaction(transactionID, user.ID, dto.Reason)
	if err != nil {
		h.Logger.Error("RejectTransaction: service error", "error", err, "transaction_id", transactionID, "organizer_id", user.ID)
		h.writeServiceError(w, err)
		return
	}

	h.Logger.Info("RejectTransaction: transaction rejected",
		"transaction_id", txn.ID,
		"organizer_id", user.ID,
		"reason", dto.Reason)

	h.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("CancelTransaction: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID, err := h.transactionIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	txn, err := h.Service.CancelTransaction(transactionID, user.ID)
	if err != nil {
		h.Logger.Error("CancelTransaction: service error", "error", err, "transaction_id", transactionID, "actor_id", user.ID)
		h.writeServiceError(w, err)
		return
	}

	h.Logger.Info("CancelTransaction: transaction canceled", "transaction_id", txn.ID, "actor_id", user.ID)
	h.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) transactionIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.Logger.Error("invalid transaction ID in URL", "id", idStr)
		return 0, err
	}
	return id, nil
}

// writeServiceError maps domain sentinels to HTTP statuses so checkout
// failures surface their specific reason to the user.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, event.ErrTicketTypeNotFound),
		errors.Is(err, promotion.ErrPromoNotFound):
		h.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorizedAccess),
		errors.Is(err, ErrNotEventOrganizer):
		h.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrTicketsSoldOut),
		errors.Is(err, points.ErrInsufficientBalance):
		h.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, promotion.ErrPromoExpired),
		errors.Is(err, promotion.ErrPromoMinSpend),
		errors.Is(err, promotion.ErrPromoExhausted),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrNegativePayable):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.HandleServiceError(w, err)
	}
}
