package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/auth"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/feedback"
)

// FeedbackHandler serves the feedback form lifecycle and response
// submission.
type FeedbackHandler struct {
	feedback *feedback.Service
	events   *events.Service
	logger   zerolog.Logger
	env      string
}

func NewFeedbackHandler(feedbackService *feedback.Service, eventsService *events.Service, logger zerolog.Logger, env string) *FeedbackHandler {
	return &FeedbackHandler{
		feedback: feedbackService,
		events:   eventsService,
		logger:   logger.With().Str("handler", "feedback").Logger(),
		env:      env,
	}
}

type saveFormRequest struct {
	Questions feedback.QuestionsConfig `json:"questions"`
}

// SaveForm handles POST /api/v1/events/{id}/feedback-form: the
// organizer upserts the question set, which activates the form.
func (h *FeedbackHandler) SaveForm(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	if _, err := h.events.Get(r.Context(), organizerScope(r, userID), eventID); err != nil {
		h.writeEventError(w, r, err)
		return
	}

	var req saveFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if len(req.Questions.Global) == 0 && len(req.Questions.Speakers) == 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "At least one question is required", nil, h.env)
		return
	}

	form, err := h.feedback.SaveForm(r.Context(), eventID, req.Questions)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, form)
}

// GetForm handles GET /api/v1/events/{id}/feedback-form. Staff see the
// form whether or not it is active; participants get a 404 until it is
// activated.
func (h *FeedbackHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}

	var form *feedback.Form
	var err error
	if auth.IsStaff(callerRole(r)) {
		form, err = h.feedback.GetForm(r.Context(), eventID)
	} else {
		form, err = h.feedback.GetActiveForm(r.Context(), eventID)
	}
	if err != nil {
		switch {
		case errors.Is(err, feedback.ErrFormNotReady), errors.Is(err, feedback.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Form not ready", nil, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		}
		return
	}

	writeJSON(w, http.StatusOK, form)
}

type submitFeedbackRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

// Submit handles POST /api/v1/events/{id}/feedback.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	var req submitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	response, err := h.feedback.Submit(r.Context(), eventID, userID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, feedback.ErrFormNotReady):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Form not ready", nil, h.env)
		case errors.Is(err, feedback.ErrAlreadySubmitted):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Feedback already submitted.", nil, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *FeedbackHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrNotFound), errors.Is(err, events.ErrNotOwner):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
	}
}
