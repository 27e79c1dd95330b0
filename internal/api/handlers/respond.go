package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/photofeed-be/internal/services"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error to its HTTP status. Details of
// authentication and upstream failures stay in the server log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrTooLarge), errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, services.ErrInsufficientStorage):
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Staging storage exhausted")
		writeError(w, http.StatusInsufficientStorage, "insufficient storage")
	case errors.Is(err, services.ErrUploadFailed):
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Upload failed")
		writeError(w, http.StatusInternalServerError, "upload failed")
	default:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
