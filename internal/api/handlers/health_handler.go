package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// FreeSpacer is satisfied by *staging.Stager.
type FreeSpacer interface {
	FreeBytes() (uint64, error)
}

// HealthHandler reports database reachability and staging disk space.
type HealthHandler struct {
	db      Pinger
	staging FreeSpacer
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, staging FreeSpacer) *HealthHandler {
	return &HealthHandler{db: db, staging: staging}
}

// Get answers 200 when the database is reachable, 503 otherwise.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	dbStatus := "ok"
	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database unreachable")
		status, code, dbStatus = "degraded", http.StatusServiceUnavailable, "unreachable"
	}

	body := map[string]interface{}{"status": status, "db": dbStatus}
	if free, err := h.staging.FreeBytes(); err == nil {
		body["staging_free_bytes"] = free
	} else {
		log.Warn().Err(err).Msg("Health check: could not read staging disk usage")
	}

	writeJSON(w, code, body)
}
