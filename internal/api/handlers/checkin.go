package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/registrations"
	"github.com/qrbase/server/internal/metrics"
)

// CheckinHandler serves the door: QR scans, the manual check-in button
// and walk-in registrations.
type CheckinHandler struct {
	registrations *registrations.Service
	events        *events.Service
	logger        zerolog.Logger
	env           string
}

func NewCheckinHandler(regService *registrations.Service, eventsService *events.Service, logger zerolog.Logger, env string) *CheckinHandler {
	return &CheckinHandler{
		registrations: regService,
		events:        eventsService,
		logger:        logger.With().Str("handler", "checkin").Logger(),
		env:           env,
	}
}

type scanRequest struct {
	Code string `json:"code" validate:"required"`
}

type checkinResponse struct {
	Message      string                      `json:"message"`
	Registration *registrations.Registration `json:"registration"`
}

// Scan handles POST /api/v1/events/{id}/scan. The code is tried as a QR
// token first and as a numeric ticket id second, both scoped to the
// event.
func (h *CheckinHandler) Scan(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}

	// Staff scan at events they do not own, so this is an existence
	// check only.
	if _, err := h.events.Get(r.Context(), 0, eventID); err != nil {
		h.writeEventLookupError(w, r, err)
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	result, err := h.registrations.Scan(r.Context(), eventID, req.Code)
	if err != nil {
		h.writeCheckinError(w, r, err)
		return
	}

	h.respondCheckin(w, result, "scan")
}

// ManualCheckIn handles POST /api/v1/registrations/{id}/checkin.
func (h *CheckinHandler) ManualCheckIn(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}

	result, err := h.registrations.CheckInByID(r.Context(), registrationID)
	if err != nil {
		h.writeCheckinError(w, r, err)
		return
	}

	h.respondCheckin(w, result, "manual")
}

type walkInRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Position  string `json:"position" validate:"max=100"`
}

type walkInResponse struct {
	Registration *registrations.Registration `json:"registration"`
	User         userInfo                    `json:"user"`
	NewUser      bool                        `json:"new_user"`
	TempPassword string                      `json:"temp_password,omitempty"`
}

// WalkIn handles POST /api/v1/events/{id}/walk-in.
func (h *CheckinHandler) WalkIn(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}

	if _, err := h.events.Get(r.Context(), 0, eventID); err != nil {
		h.writeEventLookupError(w, r, err)
		return
	}

	var req walkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	result, err := h.registrations.WalkIn(r.Context(), eventID, registrations.WalkInParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Position:  req.Position,
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("walk_in").Inc()
	writeJSON(w, http.StatusCreated, walkInResponse{
		Registration: result.Registration,
		User:         userInfoFrom(result.User),
		NewUser:      result.NewUser,
		TempPassword: result.TempPassword,
	})
}

func (h *CheckinHandler) respondCheckin(w http.ResponseWriter, result *registrations.ScanResult, method string) {
	message := "Check-in Successful"
	if result.AlreadyPresent {
		message = "Already Checked In"
	} else {
		metrics.CheckInsTotal.WithLabelValues(method).Inc()
	}
	writeJSON(w, http.StatusOK, checkinResponse{
		Message:      message,
		Registration: result.Registration,
	})
}

func (h *CheckinHandler) writeCheckinError(w http.ResponseWriter, r *http.Request, err error) {
	var unconfirmed *registrations.PaymentUnconfirmedError
	switch {
	case errors.Is(err, registrations.ErrInvalidTicket):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Invalid Ticket", nil, h.env)
	case errors.Is(err, registrations.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Registration not found", nil, h.env)
	case errors.As(err, &unconfirmed):
		reg := unconfirmed.Registration
		problem.Write(w, r, http.StatusPaymentRequired, problem.TypePayment, "Payment Not Confirmed!", nil, h.env,
			problem.WithErrors(map[string]interface{}{
				"registration_id":   reg.ID,
				"participant_name":  reg.ParticipantName,
				"participant_email": reg.ParticipantEmail,
				"payment_status":    reg.PaymentStatus,
			}))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
	}
}

func (h *CheckinHandler) writeEventLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, events.ErrNotFound) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
		return
	}
	problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
}
