package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/uploads"
)

// UploadsHandler accepts multipart image uploads for event banners and
// speaker photos.
type UploadsHandler struct {
	store  *uploads.Store
	logger zerolog.Logger
	env    string
}

func NewUploadsHandler(store *uploads.Store, logger zerolog.Logger, env string) *UploadsHandler {
	return &UploadsHandler{
		store:  store,
		logger: logger.With().Str("handler", "uploads").Logger(),
		env:    env,
	}
}

// EventImage handles POST /api/v1/uploads/events.
func (h *UploadsHandler) EventImage(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, uploads.CategoryEvents)
}

// SpeakerPhoto handles POST /api/v1/uploads/speakers.
func (h *UploadsHandler) SpeakerPhoto(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, uploads.CategorySpeakers)
}

func (h *UploadsHandler) save(w http.ResponseWriter, r *http.Request, category string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Expected a multipart upload in the \"file\" field", err, h.env)
		return
	}
	defer file.Close()

	relPath, err := h.store.Save(category, header.Filename, file)
	if err != nil {
		if errors.Is(err, uploads.ErrUnsupportedType) || errors.Is(err, uploads.ErrTooLarge) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Upload rejected", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"path": relPath,
		"url":  "/static/" + relPath,
	})
}
