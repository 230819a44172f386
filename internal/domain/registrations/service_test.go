package registrations

import (
	"context"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/users"
)

type fakeRepo struct {
	nextID  int64
	byID    map[int64]*Registration
	updates int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[int64]*Registration{}}
}

func (r *fakeRepo) Create(_ context.Context, params CreateParams) (*Registration, error) {
	r.nextID++
	reg := &Registration{
		ID:            r.nextID,
		EventID:       params.EventID,
		UserID:        params.UserID,
		Status:        params.Status,
		PaymentStatus: params.PaymentStatus,
		Position:      params.Position,
		QRToken:       params.QRToken,
	}
	r.byID[reg.ID] = reg
	return reg, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*Registration, error) {
	reg, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *fakeRepo) GetByEventAndUser(_ context.Context, eventID, userID int64) (*Registration, error) {
	for _, reg := range r.byID {
		if reg.EventID == eventID && reg.UserID == userID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) GetByToken(_ context.Context, eventID int64, token string) (*Registration, error) {
	for _, reg := range r.byID {
		if reg.EventID == eventID && reg.QRToken == token {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) GetByIDForEvent(_ context.Context, eventID, id int64) (*Registration, error) {
	reg, ok := r.byID[id]
	if !ok || reg.EventID != eventID {
		return nil, ErrNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *fakeRepo) CountByEvent(_ context.Context, eventID int64) (int, error) {
	count := 0
	for _, reg := range r.byID {
		if reg.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) ListByEvent(_ context.Context, eventID int64) ([]Registration, error) {
	var out []Registration
	for _, reg := range r.byID {
		if reg.EventID == eventID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListTicketsByUser(_ context.Context, userID int64) ([]Ticket, error) {
	var out []Ticket
	for _, reg := range r.byID {
		if reg.UserID == userID {
			out = append(out, Ticket{Registration: *reg})
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	reg, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	reg.Status = status
	r.updates++
	return nil
}

func (r *fakeRepo) UpdateDetails(_ context.Context, id int64, params UpdateDetailsParams) (*Registration, error) {
	reg, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
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

func (r *fakeRepo) MarkPresentPaid(_ context.Context, id int64) (*Registration, error) {
	reg, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	reg.Status = StatusPresent
	reg.PaymentStatus = PaymentPaid
	copied := *reg
	return &copied, nil
}

type fakeEvents struct {
	byCode map[string]*events.Event
	byID   map[int64]*events.Event
}

func (f *fakeEvents) GetByInviteCode(_ context.Context, code string) (*events.Event, error) {
	event, ok := f.byCode[code]
	if !ok {
		return nil, events.ErrBadInvite
	}
	return event, nil
}

func (f *fakeEvents) Get(_ context.Context, _, eventID int64) (*events.Event, error) {
	event, ok := f.byID[eventID]
	if !ok {
		return nil, events.ErrNotFound
	}
	return event, nil
}

type fakeUsers struct {
	nextID  int64
	byEmail map[string]*users.User
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*users.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) CreateWalkIn(_ context.Context, firstName, lastName, email, _ string) (*users.User, error) {
	f.nextID++
	user := &users.User{ID: f.nextID, FirstName: firstName, LastName: lastName, Email: email, Role: "participant"}
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*users.User, error) {
	for _, user := range f.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, users.ErrNotFound
}

type fakeJobs struct {
	enqueued []int64
}

func (f *fakeJobs) EnqueueTicketEmail(_ context.Context, registrationID int64) error {
	f.enqueued = append(f.enqueued, registrationID)
	return nil
}

func newTestService(maxParticipants int) (*Service, *fakeRepo, *fakeUsers, *fakeJobs) {
	repo := newFakeRepo()
	eventStore := &fakeEvents{
		byCode: map[string]*events.Event{
			"AB12CD": {ID: 1, OrganizerID: 9, Title: "Tech Summit", MaxParticipants: maxParticipants},
		},
		byID: map[int64]*events.Event{
			1: {ID: 1, OrganizerID: 9, Title: "Tech Summit", MaxParticipants: maxParticipants},
		},
	}
	userDir := &fakeUsers{nextID: 100, byEmail: map[string]*users.User{}}
	jobs := &fakeJobs{}
	svc := NewService(repo, eventStore, userDir, jobs, zerolog.Nop())
	return svc, repo, userDir, jobs
}

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestJoin(t *testing.T) {
	svc, _, _, jobs := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, reg.Status)
	require.Equal(t, PaymentUnpaid, reg.PaymentStatus)
	require.Regexp(t, tokenPattern, reg.QRToken)
	require.Equal(t, []int64{reg.ID}, jobs.enqueued)
}

func TestJoinInvalidInvite(t *testing.T) {
	svc, _, _, _ := newTestService(10)

	_, err := svc.Join(context.Background(), 42, "NOPE99")
	require.ErrorIs(t, err, ErrInvalidInvite)
}

func TestJoinTwiceRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(10)

	_, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), 42, "AB12CD")
	require.ErrorIs(t, err, ErrAlreadyJoined)
	require.Len(t, repo.byID, 1)
}

func TestJoinFullEvent(t *testing.T) {
	svc, _, _, _ := newTestService(2)

	_, err := svc.Join(context.Background(), 1, "AB12CD")
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), 2, "AB12CD")
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), 3, "AB12CD")
	require.ErrorIs(t, err, ErrEventFull)
}

func TestJoinZeroCapacityEvent(t *testing.T) {
	svc, repo, _, _ := newTestService(0)

	_, err := svc.Join(context.Background(), 1, "AB12CD")
	require.ErrorIs(t, err, ErrEventFull)
	require.Empty(t, repo.byID)
}

func TestScanByToken(t *testing.T) {
	svc, _, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)

	paid := PaymentPaid
	_, err = svc.UpdateDetails(context.Background(), reg.ID, UpdateDetailsParams{PaymentStatus: &paid})
	require.NoError(t, err)

	result, err := svc.Scan(context.Background(), 1, reg.QRToken)
	require.NoError(t, err)
	require.False(t, result.AlreadyPresent)
	require.Equal(t, StatusPresent, result.Registration.Status)
}

func TestScanNumericFallback(t *testing.T) {
	svc, repo, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)
	repo.byID[reg.ID].PaymentStatus = PaymentFree

	result, err := svc.Scan(context.Background(), 1, "1")
	require.NoError(t, err)
	require.Equal(t, reg.ID, result.Registration.ID)
	require.Equal(t, StatusPresent, result.Registration.Status)
}

func TestScanWrongEvent(t *testing.T) {
	svc, _, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), 2, reg.QRToken)
	require.ErrorIs(t, err, ErrInvalidTicket)
}

func TestScanUnknownCode(t *testing.T) {
	svc, _, _, _ := newTestService(10)

	_, err := svc.Scan(context.Background(), 1, "not-a-ticket")
	require.ErrorIs(t, err, ErrInvalidTicket)

	_, err = svc.Scan(context.Background(), 1, "")
	require.ErrorIs(t, err, ErrInvalidTicket)
}

func TestScanUnpaidBlocked(t *testing.T) {
	svc, repo, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), 1, reg.QRToken)
	var paymentErr *PaymentUnconfirmedError
	require.ErrorAs(t, err, &paymentErr)
	require.Equal(t, reg.ID, paymentErr.Registration.ID)
	require.Equal(t, StatusConfirmed, repo.byID[reg.ID].Status)
}

func TestScanIdempotent(t *testing.T) {
	svc, repo, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)
	repo.byID[reg.ID].PaymentStatus = PaymentPaid

	_, err = svc.Scan(context.Background(), 1, reg.QRToken)
	require.NoError(t, err)
	writesAfterFirst := repo.updates

	result, err := svc.Scan(context.Background(), 1, reg.QRToken)
	require.NoError(t, err)
	require.True(t, result.AlreadyPresent)
	require.Equal(t, writesAfterFirst, repo.updates, "second scan must not write")
}

func TestCheckInByID(t *testing.T) {
	svc, repo, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)
	repo.byID[reg.ID].PaymentStatus = PaymentFree

	result, err := svc.CheckInByID(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPresent, result.Registration.Status)

	_, err = svc.CheckInByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWalkInNewUser(t *testing.T) {
	svc, _, _, _ := newTestService(10)

	result, err := svc.WalkIn(context.Background(), 1, WalkInParams{
		FirstName: "Dana", LastName: "Cruz", Email: "dana@example.com",
	})
	require.NoError(t, err)
	require.True(t, result.NewUser)
	require.Regexp(t, `^walkin\d{4}$`, result.TempPassword)
	require.Equal(t, StatusPresent, result.Registration.Status)
	require.Equal(t, PaymentPaid, result.Registration.PaymentStatus)
	require.Regexp(t, tokenPattern, result.Registration.QRToken)
}

func TestWalkInExistingRegistrationUpgraded(t *testing.T) {
	svc, repo, userDir, _ := newTestService(10)

	userDir.byEmail["ana@example.com"] = &users.User{ID: 42, FirstName: "Ana", Email: "ana@example.com"}
	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)

	result, err := svc.WalkIn(context.Background(), 1, WalkInParams{
		FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com",
	})
	require.NoError(t, err)
	require.False(t, result.NewUser)
	require.Empty(t, result.TempPassword)
	require.Equal(t, reg.ID, result.Registration.ID)
	require.Equal(t, StatusPresent, result.Registration.Status)
	require.Equal(t, PaymentPaid, result.Registration.PaymentStatus)
	require.Len(t, repo.byID, 1)
}

func TestGetOwnedTicket(t *testing.T) {
	svc, _, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)

	_, err = svc.GetOwnedTicket(context.Background(), 7, reg.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	got, err := svc.GetOwnedTicket(context.Background(), 42, reg.ID)
	require.NoError(t, err)
	require.Equal(t, reg.ID, got.ID)
}

func TestUpdateDetailsValidation(t *testing.T) {
	svc, _, _, _ := newTestService(10)

	reg, err := svc.Join(context.Background(), 42, "AB12CD")
	require.NoError(t, err)

	bad := "Vanished"
	_, err = svc.UpdateDetails(context.Background(), reg.ID, UpdateDetailsParams{Status: &bad})
	require.ErrorIs(t, err, ErrBadStatus)

	badPay := "IOU"
	_, err = svc.UpdateDetails(context.Background(), reg.ID, UpdateDetailsParams{PaymentStatus: &badPay})
	require.ErrorIs(t, err, ErrBadPayment)

	status := StatusWaitlisted
	position := "Student"
	updated, err := svc.UpdateDetails(context.Background(), reg.ID, UpdateDetailsParams{Status: &status, Position: &position})
	require.NoError(t, err)
	require.Equal(t, StatusWaitlisted, updated.Status)
	require.Equal(t, "Student", updated.Position)
	require.Equal(t, PaymentUnpaid, updated.PaymentStatus, "untouched fields stay")
}
