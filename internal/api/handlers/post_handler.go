package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/photofeed-be/internal/auth"
	"github.com/isdelr/photofeed-be/internal/services"
	"github.com/isdelr/photofeed-be/internal/staging"
	"github.com/rs/zerolog/log"
)

const maxCaptionBytes = 2200

// PostHandler handles uploads, the feed and post deletion.
type PostHandler struct {
	service        services.FeedServiceProvider
	maxUploadBytes int64
}

// NewPostHandler creates a new PostHandler. maxUploadBytes bounds the request body.
func NewPostHandler(service services.FeedServiceProvider, maxUploadBytes int64) *PostHandler {
	return &PostHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Upload handles a multipart body with a "file" part and an optional "caption" part.
func (h *PostHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, services.ErrUnauthorized)
		return
	}

	if h.maxUploadBytes > 0 {
		// Leave room for the caption and multipart framing.
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(64<<10))
	}
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected a multipart/form-data body", "field": "file"})
		return
	}

	var staged *staging.File
	defer func() {
		if staged != nil {
			staged.Release()
		}
	}()
	caption := ""

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeServiceError(w, r, malformedMultipart(err))
			return
		}

		switch part.FormName() {
		case "file":
			if staged != nil {
				part.Close()
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only one file may be uploaded", "field": "file"})
				return
			}
			staged, err = h.service.Stage(part, part.FileName())
			if err != nil {
				part.Close()
				log.Warn().Err(err).Str("user_id", user.ID).Str("file_name", part.FileName()).Msg("Failed to stage upload")
				writeServiceError(w, r, err)
				return
			}
		case "caption":
			b, err := io.ReadAll(io.LimitReader(part, maxCaptionBytes+1))
			if err != nil {
				part.Close()
				writeServiceError(w, r, malformedMultipart(err))
				return
			}
			if len(b) > maxCaptionBytes {
				part.Close()
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "caption is too long", "field": "caption"})
				return
			}
			caption = string(b)
		}
		part.Close()
	}

	if staged == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required", "field": "file"})
		return
	}

	post, err := h.service.Publish(r.Context(), user, staged, caption)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

func malformedMultipart(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return &services.ValidationError{Field: "file", Message: "malformed multipart body"}
}

// Feed handles the request to list all posts, most recent first.
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListFeed(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve feed")
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// Delete handles the request to delete one of the caller's posts.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, services.ErrUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.DeletePost(r.Context(), id, user); err != nil {
		log.Warn().Err(err).Str("post_id", id).Str("user_id", user.ID).Msg("Failed to delete post")
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully", "id": id})
}
