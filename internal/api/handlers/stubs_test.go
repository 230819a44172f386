package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/qrbase/server/internal/api/middleware"
	"github.com/qrbase/server/internal/auth"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/feedback"
	"github.com/qrbase/server/internal/domain/registrations"
	"github.com/qrbase/server/internal/domain/users"
)

const testEnv = "test"

// asUser attaches authenticated claims to the request, standing in for
// the Authenticate middleware.
func asUser(r *http.Request, userID int64, role string) *http.Request {
	claims := &auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(userID, 10),
		},
	}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

type stubUsersRepo struct {
	nextID  int64
	byID    map[int64]*users.User
	byEmail map[string]*users.User
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{byID: map[int64]*users.User{}, byEmail: map[string]*users.User{}}
}

func (r *stubUsersRepo) add(user *users.User) {
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user
}

func (r *stubUsersRepo) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	r.nextID++
	user := &users.User{
		ID:           r.nextID,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
	}
	r.add(user)
	return user, nil
}

func (r *stubUsersRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (r *stubUsersRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (r *stubUsersRepo) UpdateProfile(_ context.Context, id int64, params users.UpdateProfileParams) (*users.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	user.FirstName = params.FirstName
	user.LastName = params.LastName
	user.ContactNumber = params.ContactNumber
	return user, nil
}

func (r *stubUsersRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	user, ok := r.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *stubUsersRepo) ListStaff(_ context.Context) ([]users.User, error) {
	var out []users.User
	for _, user := range r.byID {
		if auth.IsStaff(user.Role) {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (r *stubUsersRepo) Delete(_ context.Context, id int64) error {
	user, ok := r.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	delete(r.byEmail, user.Email)
	delete(r.byID, id)
	return nil
}

type stubEventsRepo struct {
	nextID   int64
	byID     map[int64]*events.Event
	byCode   map[string]*events.Event
	speakers map[int64][]events.EventSpeaker
}

func newStubEventsRepo() *stubEventsRepo {
	return &stubEventsRepo{
		byID:     map[int64]*events.Event{},
		byCode:   map[string]*events.Event{},
		speakers: map[int64][]events.EventSpeaker{},
	}
}

func (r *stubEventsRepo) add(event *events.Event) {
	r.byID[event.ID] = event
	if event.InviteCode != "" {
		r.byCode[event.InviteCode] = event
	}
}

func (r *stubEventsRepo) Create(_ context.Context, params events.CreateParams) (*events.Event, error) {
	r.nextID++
	event := &events.Event{
		ID:              r.nextID,
		OrganizerID:     params.OrganizerID,
		Title:           params.Title,
		Description:     params.Description,
		Location:        params.Location,
		ScheduleDate:    params.ScheduleDate,
		MaxParticipants: params.MaxParticipants,
		InviteCode:      params.InviteCode,
		Image:           params.Image,
		Status:          params.Status,
	}
	r.add(event)
	return event, nil
}

func (r *stubEventsRepo) GetByID(_ context.Context, id int64) (*events.Event, error) {
	event, ok := r.byID[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *stubEventsRepo) GetByInviteCode(_ context.Context, code string) (*events.Event, error) {
	event, ok := r.byCode[code]
	if !ok {
		return nil, events.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *stubEventsRepo) ListByOrganizer(_ context.Context, organizerID int64) ([]events.Event, error) {
	var out []events.Event
	for _, event := range r.byID {
		if event.OrganizerID == organizerID {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (r *stubEventsRepo) Update(_ context.Context, id int64, params events.UpdateParams) (*events.Event, error) {
	event, ok := r.byID[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	event.Title = params.Title
	event.Description = params.Description
	event.Location = params.Location
	event.ScheduleDate = params.ScheduleDate
	event.MaxParticipants = params.MaxParticipants
	event.Image = params.Image
	event.Status = params.Status
	copied := *event
	return &copied, nil
}

func (r *stubEventsRepo) Delete(_ context.Context, id int64) error {
	event, ok := r.byID[id]
	if !ok {
		return events.ErrNotFound
	}
	delete(r.byCode, event.InviteCode)
	delete(r.byID, id)
	return nil
}

func (r *stubEventsRepo) SyncSpeakers(_ context.Context, eventID int64, links []events.SpeakerLink) error {
	out := make([]events.EventSpeaker, 0, len(links))
	for _, link := range links {
		out = append(out, events.EventSpeaker{SpeakerID: link.SpeakerID, Topic: link.Topic})
	}
	r.speakers[eventID] = out
	return nil
}

func (r *stubEventsRepo) ListSpeakers(_ context.Context, eventID int64) ([]events.EventSpeaker, error) {
	return r.speakers[eventID], nil
}

func (r *stubEventsRepo) Stats(_ context.Context, _ int64) (*events.Stats, error) {
	return &events.Stats{}, nil
}

func (r *stubEventsRepo) CountEvents(_ context.Context, _ int64) (int, error)         { return 0, nil }
func (r *stubEventsRepo) CountUpcomingEvents(_ context.Context, _ int64) (int, error) { return 0, nil }
func (r *stubEventsRepo) CountRegistrations(_ context.Context, _ int64) (int, error)  { return 0, nil }
func (r *stubEventsRepo) CountCheckedIn(_ context.Context, _ int64) (int, error)      { return 0, nil }
func (r *stubEventsRepo) CountSpeakers(_ context.Context, _ int64) (int, error)       { return 0, nil }

type stubRegsRepo struct {
	nextID int64
	byID   map[int64]*registrations.Registration
}

func newStubRegsRepo() *stubRegsRepo {
	return &stubRegsRepo{byID: map[int64]*registrations.Registration{}}
}

func (r *stubRegsRepo) add(reg *registrations.Registration) {
	r.byID[reg.ID] = reg
}

func (r *stubRegsRepo) Create(_ context.Context, params registrations.CreateParams) (*registrations.Registration, error) {
	r.nextID++
	reg := &registrations.Registration{
		ID:            r.nextID,
		EventID:       params.EventID,
		UserID:        params.UserID,
		Status:        params.Status,
		PaymentStatus: params.PaymentStatus,
		Position:      params.Position,
		QRToken:       params.QRToken,
	}
	r.add(reg)
	return reg, nil
}

func (r *stubRegsRepo) GetByID(_ context.Context, id int64) (*registrations.Registration, error) {
	reg, ok := r.byID[id]
	if !ok {
		return nil, registrations.ErrNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *stubRegsRepo) GetByEventAndUser(_ context.Context, eventID, userID int64) (*registrations.Registration, error) {
	for _, reg := range r.byID {
		if reg.EventID == eventID && reg.UserID == userID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, registrations.ErrNotFound
}

func (r *stubRegsRepo) GetByToken(_ context.Context, eventID int64, token string) (*registrations.Registration, error) {
	for _, reg := range r.byID {
		if reg.EventID == eventID && reg.QRToken == token {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, registrations.ErrNotFound
}

func (r *stubRegsRepo) GetByIDForEvent(_ context.Context, eventID, id int64) (*registrations.Registration, error) {
	reg, ok := r.byID[id]
	if !ok || reg.EventID != eventID {
		return nil, registrations.ErrNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *stubRegsRepo) CountByEvent(_ context.Context, eventID int64) (int, error) {
	count := 0
	for _, reg := range r.byID {
		if reg.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (r *stubRegsRepo) ListByEvent(_ context.Context, eventID int64) ([]registrations.Registration, error) {
	var out []registrations.Registration
	for _, reg := range r.byID {
		if reg.EventID == eventID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (r *stubRegsRepo) ListTicketsByUser(_ context.Context, userID int64) ([]registrations.Ticket, error) {
	var out []registrations.Ticket
	for _, reg := range r.byID {
		if reg.UserID == userID {
			out = append(out, registrations.Ticket{Registration: *reg})
		}
	}
	return out, nil
}

func (r *stubRegsRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	reg, ok := r.byID[id]
	if !ok {
		return registrations.ErrNotFound
	}
	reg.Status = status
	return nil
}

func (r *stubRegsRepo) UpdateDetails(_ context.Context, id int64, params registrations.UpdateDetailsParams) (*registrations.Registration, error) {
	reg, ok := r.byID[id]
	if !ok {
		return nil, registrations.ErrNotFound
	}
	if params.Status != nil {
		reg.Status = *params.Status
	}
	if params.PaymentStatus != nil {
		reg.PaymentStatus = *params.PaymentStatus
	}
	if params.Position != nil {
		reg.Position = *params.Position
	}
	if params.ProofOfPayment != nil {
		reg.ProofOfPayment = *params.ProofOfPayment
	}
	copied := *reg
	return &copied, nil
}

func (r *stubRegsRepo) MarkPresentPaid(_ context.Context, id int64) (*registrations.Registration, error) {
	reg, ok := r.byID[id]
	if !ok {
		return nil, registrations.ErrNotFound
	}
	reg.Status = registrations.StatusPresent
	reg.PaymentStatus = registrations.PaymentPaid
	copied := *reg
	return &copied, nil
}

type stubFeedbackRepo struct {
	nextID    int64
	forms     map[int64]*feedback.Form
	responses map[int64][]feedback.Response
	listErr   error
}

func newStubFeedbackRepo() *stubFeedbackRepo {
	return &stubFeedbackRepo{
		forms:     map[int64]*feedback.Form{},
		responses: map[int64][]feedback.Response{},
	}
}

func (r *stubFeedbackRepo) UpsertForm(_ context.Context, eventID int64, questions feedback.QuestionsConfig, isActive bool) (*feedback.Form, error) {
	form, ok := r.forms[eventID]
	if !ok {
		r.nextID++
		form = &feedback.Form{ID: r.nextID, EventID: eventID}
		r.forms[eventID] = form
	}
	form.Questions = questions
	form.IsActive = isActive
	copied := *form
	return &copied, nil
}

func (r *stubFeedbackRepo) GetForm(_ context.Context, eventID int64) (*feedback.Form, error) {
	form, ok := r.forms[eventID]
	if !ok {
		return nil, feedback.ErrNotFound
	}
	copied := *form
	return &copied, nil
}

func (r *stubFeedbackRepo) GetResponse(_ context.Context, eventID, userID int64) (*feedback.Response, error) {
	for _, resp := range r.responses[eventID] {
		if resp.UserID == userID {
			copied := resp
			return &copied, nil
		}
	}
	return nil, feedback.ErrNotFound
}

func (r *stubFeedbackRepo) CreateResponse(_ context.Context, eventID, userID int64, answers map[string]string) (*feedback.Response, error) {
	r.nextID++
	resp := feedback.Response{ID: r.nextID, EventID: eventID, UserID: userID, Answers: answers}
	r.responses[eventID] = append(r.responses[eventID], resp)
	return &resp, nil
}

func (r *stubFeedbackRepo) ListResponses(_ context.Context, eventID int64) ([]feedback.Response, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.responses[eventID], nil
}
