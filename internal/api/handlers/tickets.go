package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/registrations"
	"github.com/qrbase/server/internal/domain/users"
	"github.com/qrbase/server/internal/metrics"
	"github.com/qrbase/server/internal/ticket"
)

// TicketsHandler serves the participant-facing ticket surface: joining
// an event and retrieving the resulting tickets, QR codes and PDFs.
type TicketsHandler struct {
	registrations *registrations.Service
	events        *events.Service
	users         *users.Service
	logger        zerolog.Logger
	env           string
}

func NewTicketsHandler(regService *registrations.Service, eventsService *events.Service, usersService *users.Service, logger zerolog.Logger, env string) *TicketsHandler {
	return &TicketsHandler{
		registrations: regService,
		events:        eventsService,
		users:         usersService,
		logger:        logger.With().Str("handler", "tickets").Logger(),
		env:           env,
	}
}

type joinRequest struct {
	InviteCode string `json:"invite_code" validate:"required,len=6"`
}

// Join handles POST /api/v1/events/join.
func (h *TicketsHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	reg, err := h.registrations.Join(r.Context(), userID, req.InviteCode)
	if err != nil {
		switch {
		case errors.Is(err, registrations.ErrInvalidInvite):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Invalid invite code", nil, h.env)
		case errors.Is(err, registrations.ErrAlreadyJoined):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "You have already joined this event.", nil, h.env)
		case errors.Is(err, registrations.ErrEventFull):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Event is full.", nil, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("join").Inc()
	writeJSON(w, http.StatusCreated, reg)
}

// MyTickets handles GET /api/v1/tickets.
func (h *TicketsHandler) MyTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	tickets, err := h.registrations.MyTickets(r.Context(), userID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
}

// QR handles GET /api/v1/tickets/{id}/qr, rendering the caller's QR
// code as a PNG.
func (h *TicketsHandler) QR(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.ownedTicket(w, r)
	if !ok {
		return
	}

	png, err := ticket.QRPNG(reg.QRToken, ticket.QRSize)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// PDF handles GET /api/v1/tickets/{id}/pdf.
func (h *TicketsHandler) PDF(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.ownedTicket(w, r)
	if !ok {
		return
	}

	event, err := h.events.Get(r.Context(), 0, reg.EventID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}
	user, err := h.users.Get(r.Context(), reg.UserID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	pdf, err := ticket.PDF(ticket.PDFData{
		TicketID:        reg.ID,
		Token:           reg.QRToken,
		EventTitle:      event.Title,
		EventLocation:   event.Location,
		ScheduleDate:    event.ScheduleDate,
		ParticipantName: user.FullName(),
		Email:           user.Email,
		Status:          reg.Status,
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"ticket-%d.pdf\"", reg.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *TicketsHandler) ownedTicket(w http.ResponseWriter, r *http.Request) (*registrations.Registration, bool) {
	ticketID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return nil, false
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return nil, false
	}

	reg, err := h.registrations.GetOwnedTicket(r.Context(), userID, ticketID)
	if err != nil {
		switch {
		case errors.Is(err, registrations.ErrNotFound), errors.Is(err, registrations.ErrNotOwner):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Ticket not found", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		}
		return nil, false
	}
	return reg, true
}
