package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/registrations"
)

// AttendanceHandler serves the attendance-request workflow: staff list
// and edit registration details; participants attach payment proof to
// their own ticket.
type AttendanceHandler struct {
	registrations *registrations.Service
	logger        zerolog.Logger
	env           string
}

func NewAttendanceHandler(regService *registrations.Service, logger zerolog.Logger, env string) *AttendanceHandler {
	return &AttendanceHandler{
		registrations: regService,
		logger:        logger.With().Str("handler", "attendance").Logger(),
		env:           env,
	}
}

// List handles GET /api/v1/attendance-requests?event_id=N.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("event_id"))
	eventID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || eventID <= 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", FieldError{Field: "event_id", Message: "must be a positive integer"}, h.env)
		return
	}

	items, err := h.registrations.ListByEvent(r.Context(), eventID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"registrations": items})
}

type submitProofRequest struct {
	RegistrationID int64  `json:"registration_id" validate:"required,gt=0"`
	Position       string `json:"position" validate:"max=100"`
	ProofOfPayment string `json:"proof_of_payment" validate:"required,max=255"`
}

// SubmitProof handles POST /api/v1/attendance-requests: a participant
// attaches proof of payment (and optionally their position) to their
// own registration; payment stays in whatever state staff left it.
func (h *AttendanceHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	if _, err := h.registrations.GetOwnedTicket(r.Context(), userID, req.RegistrationID); err != nil {
		h.writeRegistrationError(w, r, err)
		return
	}

	params := registrations.UpdateDetailsParams{ProofOfPayment: &req.ProofOfPayment}
	if req.Position != "" {
		params.Position = &req.Position
	}
	reg, err := h.registrations.UpdateDetails(r.Context(), req.RegistrationID, params)
	if err != nil {
		h.writeRegistrationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

type updateAttendanceRequest struct {
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"payment_status"`
	Position       *string `json:"position"`
	ProofOfPayment *string `json:"proof_of_payment"`
}

// Update handles PUT /api/v1/attendance-requests/{id}: the staff
// partial update of a registration's status, payment, position and
// proof fields.
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}

	var req updateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}

	reg, err := h.registrations.UpdateDetails(r.Context(), registrationID, registrations.UpdateDetailsParams{
		Status:         req.Status,
		PaymentStatus:  req.PaymentStatus,
		Position:       req.Position,
		ProofOfPayment: req.ProofOfPayment,
	})
	if err != nil {
		h.writeRegistrationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

func (h *AttendanceHandler) writeRegistrationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registrations.ErrNotFound), errors.Is(err, registrations.ErrNotOwner):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Registration not found", err, h.env)
	case errors.Is(err, registrations.ErrBadStatus):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid registration status", err, h.env)
	case errors.Is(err, registrations.ErrBadPayment):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid payment status", err, h.env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
	}
}
