package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/speakers"
)

// SpeakersHandler serves organizer-scoped speaker profiles.
type SpeakersHandler struct {
	speakers *speakers.Service
	logger   zerolog.Logger
	env      string
}

func NewSpeakersHandler(speakersService *speakers.Service, logger zerolog.Logger, env string) *SpeakersHandler {
	return &SpeakersHandler{
		speakers: speakersService,
		logger:   logger.With().Str("handler", "speakers").Logger(),
		env:      env,
	}
}

type speakerRequest struct {
	Name           string `json:"name" validate:"required,max=150"`
	Specialization string `json:"specialization" validate:"max=150"`
	Description    string `json:"description"`
	ContactEmail   string `json:"contact_email" validate:"omitempty,email"`
	PhotoPath      string `json:"photo_path"`
}

// List handles GET /api/v1/speakers.
func (h *SpeakersHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	items, err := h.speakers.List(r.Context(), userID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"speakers": items})
}

// Create handles POST /api/v1/speakers.
func (h *SpeakersHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	req, ok := h.decodeSpeaker(w, r)
	if !ok {
		return
	}

	speaker, err := h.speakers.Create(r.Context(), userID, speakers.SpeakerParams{
		Name:           req.Name,
		Specialization: req.Specialization,
		Description:    req.Description,
		ContactEmail:   req.ContactEmail,
		PhotoPath:      req.PhotoPath,
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, speaker)
}

// Get handles GET /api/v1/speakers/{id}.
func (h *SpeakersHandler) Get(w http.ResponseWriter, r *http.Request) {
	speakerID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	speaker, err := h.speakers.Get(r.Context(), userID, speakerID)
	if err != nil {
		h.writeSpeakerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, speaker)
}

// Update handles PUT /api/v1/speakers/{id}.
func (h *SpeakersHandler) Update(w http.ResponseWriter, r *http.Request) {
	speakerID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	req, ok := h.decodeSpeaker(w, r)
	if !ok {
		return
	}

	speaker, err := h.speakers.Update(r.Context(), userID, speakerID, speakers.SpeakerParams{
		Name:           req.Name,
		Specialization: req.Specialization,
		Description:    req.Description,
		ContactEmail:   req.ContactEmail,
		PhotoPath:      req.PhotoPath,
	})
	if err != nil {
		h.writeSpeakerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, speaker)
}

// Delete handles DELETE /api/v1/speakers/{id}.
func (h *SpeakersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	speakerID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	if err := h.speakers.Delete(r.Context(), userID, speakerID); err != nil {
		h.writeSpeakerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SpeakersHandler) decodeSpeaker(w http.ResponseWriter, r *http.Request) (speakerRequest, bool) {
	var req speakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return req, false
	}
	return req, true
}

func (h *SpeakersHandler) writeSpeakerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, speakers.ErrNotFound), errors.Is(err, speakers.ErrNotOwner):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Speaker not found", err, h.env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
	}
}
