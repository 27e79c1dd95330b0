package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/photofeed-be/internal/services"
	"github.com/rs/zerolog/log"
)

// EventHandler handles HTTP requests related to audit events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent audit events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}
	if limit > 500 {
		limit = 500
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve events")
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
