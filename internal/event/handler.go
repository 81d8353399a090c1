package event

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/event-ticketing/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetEvent(id int64) (*EventWithTicketTypes, error)
	ListEvents(limit, offset int) ([]*Event, error)
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

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
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

	events, err := h.Service.ListEvents(limit, offset)
	if err != nil {
		h.Logger.Error("ListEvents: failed to list events", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventIDStr := chi.URLParam(r, "id")
	eventID, err := strconv.ParseInt(eventIDStr, 10, 64)
	if err != nil {
		h.Logger.Error("GetEvent: invalid event ID", "id", eventIDStr)
		h.WriteError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	ev, err := h.Service.GetEvent(eventID)
	if err != nil {
		h.Logger.Error("GetEvent: service error", "error", err, "event_id", eventID)
		if err == ErrEventNotFound {
			h.WriteError(w, http.StatusNotFound, "event not found")
			return
		}
		h.WriteError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	h.WriteJSON(w, http.StatusOK, ev)
}
