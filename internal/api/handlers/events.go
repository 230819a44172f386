package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/feedback"
	"github.com/qrbase/server/internal/domain/registrations"
)

// EventsHandler serves organizer-scoped event CRUD, the event module
// view and the dashboard stats.
type EventsHandler struct {
	events        *events.Service
	registrations *registrations.Service
	feedback      *feedback.Service
	logger        zerolog.Logger
	env           string
}

func NewEventsHandler(eventsService *events.Service, regService *registrations.Service, feedbackService *feedback.Service, logger zerolog.Logger, env string) *EventsHandler {
	return &EventsHandler{
		events:        eventsService,
		registrations: regService,
		feedback:      feedbackService,
		logger:        logger.With().Str("handler", "events").Logger(),
		env:           env,
	}
}

type speakerLinkRequest struct {
	SpeakerID int64  `json:"speaker_id" validate:"required,gt=0"`
	Topic     string `json:"topic" validate:"max=200"`
}

type createEventRequest struct {
	Title           string               `json:"title" validate:"required,max=200"`
	Description     string               `json:"description"`
	Location        string               `json:"location" validate:"max=200"`
	ScheduleDate    time.Time            `json:"schedule_date" validate:"required"`
	MaxParticipants int                  `json:"max_participants" validate:"gte=0"`
	Image           string               `json:"image"`
	Speakers        []speakerLinkRequest `json:"speakers" validate:"dive"`
}

type updateEventRequest struct {
	Title           string                `json:"title" validate:"required,max=200"`
	Description     string                `json:"description"`
	Location        string                `json:"location" validate:"max=200"`
	ScheduleDate    time.Time             `json:"schedule_date" validate:"required"`
	MaxParticipants int                   `json:"max_participants" validate:"gte=0"`
	Image           string                `json:"image"`
	Status          string                `json:"status"`
	Speakers        *[]speakerLinkRequest `json:"speakers" validate:"omitempty,dive"`
}

type eventSpeakerInfo struct {
	SpeakerID      int64  `json:"speaker_id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
	PhotoPath      string `json:"photo_path,omitempty"`
	Topic          string `json:"topic,omitempty"`
}

type eventResponse struct {
	ID              int64              `json:"id"`
	OrganizerID     int64              `json:"organizer_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Location        string             `json:"location,omitempty"`
	ScheduleDate    string             `json:"schedule_date"`
	MaxParticipants int                `json:"max_participants"`
	InviteCode      string             `json:"invite_code,omitempty"`
	Image           string             `json:"image,omitempty"`
	Status          string             `json:"status"`
	Speakers        []eventSpeakerInfo `json:"speakers,omitempty"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
}

func eventResponseFrom(event *events.Event) eventResponse {
	speakers := make([]eventSpeakerInfo, 0, len(event.Speakers))
	for _, sp := range event.Speakers {
		speakers = append(speakers, eventSpeakerInfo{
			SpeakerID:      sp.SpeakerID,
			Name:           sp.Name,
			Specialization: sp.Specialization,
			PhotoPath:      sp.PhotoPath,
			Topic:          sp.Topic,
		})
	}
	return eventResponse{
		ID:              event.ID,
		OrganizerID:     event.OrganizerID,
		Title:           event.Title,
		Description:     event.Description,
		Location:        event.Location,
		ScheduleDate:    event.ScheduleDate.UTC().Format(time.RFC3339),
		MaxParticipants: event.MaxParticipants,
		InviteCode:      event.InviteCode,
		Image:           event.Image,
		Status:          event.Status,
		Speakers:        speakers,
		CreatedAt:       event.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       event.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func speakerLinks(reqs []speakerLinkRequest) []events.SpeakerLink {
	links := make([]events.SpeakerLink, 0, len(reqs))
	for _, sp := range reqs {
		links = append(links, events.SpeakerLink{SpeakerID: sp.SpeakerID, Topic: sp.Topic})
	}
	return links
}

// List handles GET /api/v1/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	items, err := h.events.List(r.Context(), userID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	payload := make([]eventResponse, 0, len(items))
	for i := range items {
		payload = append(payload, eventResponseFrom(&items[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": payload})
}

// Create handles POST /api/v1/events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	event, err := h.events.Create(r.Context(), userID, events.CreateEventParams{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		ScheduleDate:    req.ScheduleDate,
		MaxParticipants: req.MaxParticipants,
		Image:           req.Image,
		Speakers:        speakerLinks(req.Speakers),
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, eventResponseFrom(event))
}

// Get handles GET /api/v1/events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	event, err := h.events.Get(r.Context(), organizerScope(r, userID), eventID)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponseFrom(event))
}

// Update handles PUT /api/v1/events/{id}.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	params := events.UpdateEventParams{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		ScheduleDate:    req.ScheduleDate,
		MaxParticipants: req.MaxParticipants,
		Image:           req.Image,
		Status:          req.Status,
	}
	if req.Speakers != nil {
		params.Speakers = speakerLinks(*req.Speakers)
		params.SyncSpeakers = true
	}

	event, err := h.events.Update(r.Context(), organizerScope(r, userID), eventID, params)
	if err != nil {
		if errors.Is(err, events.ErrBadStatus) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event status", err, h.env)
			return
		}
		h.writeEventError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponseFrom(event))
}

// Delete handles DELETE /api/v1/events/{id}.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	if err := h.events.Delete(r.Context(), organizerScope(r, userID), eventID); err != nil {
		h.writeEventError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type attendeeResponse struct {
	RegistrationID int64  `json:"registration_id"`
	UserID         int64  `json:"user_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"payment_status"`
	Position       string `json:"position,omitempty"`
	ProofOfPayment string `json:"proof_of_payment,omitempty"`
	HasFeedback    bool   `json:"has_feedback"`
	RegisteredAt   string `json:"registered_at"`
}

type statsResponse struct {
	TotalRegistered  int `json:"total_registered"`
	SlotsTaken       int `json:"slots_taken"`
	WaitlistCapacity int `json:"waitlist_capacity"`
	PresentCount     int `json:"present_count"`
	AbsentCount      int `json:"absent_count"`
	WaitlistedCount  int `json:"waitlisted_count"`
	PaidCount        int `json:"paid_count"`
}

// Module handles GET /api/v1/events/{id}/module: the organizer's event
// workspace with attendees, feedback flags and statistics in one
// response.
func (h *EventsHandler) Module(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	event, err := h.events.Get(r.Context(), organizerScope(r, userID), eventID)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	stats, err := h.events.Stats(r.Context(), eventID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	attendees, err := h.registrations.ListByEvent(r.Context(), eventID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	responded := make(map[int64]bool)
	responses, err := h.feedback.ListResponses(r.Context(), eventID)
	if err != nil {
		// Feedback flags are an enrichment; the module view still loads
		// without them.
		h.logger.Error().Err(err).Int64("event_id", eventID).Msg("list feedback responses")
	}
	for _, resp := range responses {
		responded[resp.UserID] = true
	}

	attendeePayload := make([]attendeeResponse, 0, len(attendees))
	for i := range attendees {
		reg := &attendees[i]
		attendeePayload = append(attendeePayload, attendeeResponse{
			RegistrationID: reg.ID,
			UserID:         reg.UserID,
			Name:           reg.ParticipantName,
			Email:          reg.ParticipantEmail,
			Status:         reg.Status,
			PaymentStatus:  reg.PaymentStatus,
			Position:       reg.Position,
			ProofOfPayment: reg.ProofOfPayment,
			HasFeedback:    responded[reg.UserID],
			RegisteredAt:   reg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event":     eventResponseFrom(event),
		"attendees": attendeePayload,
		"stats": statsResponse{
			TotalRegistered:  stats.TotalRegistered,
			SlotsTaken:       stats.SlotsTaken,
			WaitlistCapacity: stats.WaitlistCapacity,
			PresentCount:     stats.PresentCount,
			AbsentCount:      stats.AbsentCount,
			WaitlistedCount:  stats.WaitlistedCount,
			PaidCount:        stats.PaidCount,
		},
	})
}

// DashboardStats handles GET /api/v1/dashboard/stats.
func (h *EventsHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	stats, err := h.events.DashboardStats(r.Context(), userID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"total_events":        stats.TotalEvents,
		"upcoming_events":     stats.UpcomingEvents,
		"total_registrations": stats.TotalRegistrations,
		"total_checked_in":    stats.TotalCheckedIn,
		"total_speakers":      stats.TotalSpeakers,
	})
}

func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrNotFound), errors.Is(err, events.ErrNotOwner):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
	}
}
