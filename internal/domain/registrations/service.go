package registrations

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/users"
	"github.com/qrbase/server/internal/ticket"
)

// EventResolver is the slice of the events service the registration
// flow needs.
type EventResolver interface {
	GetByInviteCode(ctx context.Context, code string) (*events.Event, error)
	Get(ctx context.Context, organizerID, eventID int64) (*events.Event, error)
}

// UserDirectory supplies participant lookup and walk-in account
// creation.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	CreateWalkIn(ctx context.Context, firstName, lastName, email, tempPassword string) (*users.User, error)
	Get(ctx context.Context, id int64) (*users.User, error)
}

// JobEnqueuer schedules background work; a nil enqueuer disables it.
type JobEnqueuer interface {
	EnqueueTicketEmail(ctx context.Context, registrationID int64) error
}

type Service struct {
	repo   Repository
	events EventResolver
	users  UserDirectory
	jobs   JobEnqueuer
	logger zerolog.Logger
}

func NewService(repo Repository, eventResolver EventResolver, userDirectory UserDirectory, jobs JobEnqueuer, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: eventResolver,
		users:  userDirectory,
		jobs:   jobs,
		logger: logger.With().Str("component", "registrations").Logger(),
	}
}

// Join registers the caller for the event behind an invite code. The
// new ticket starts Confirmed/Unpaid; payment is settled out of band.
// The duplicate check is read-then-write on purpose, matching the rest
// of the system's tolerance for the (tiny) race window.
func (s *Service) Join(ctx context.Context, userID int64, inviteCode string) (*Registration, error) {
	event, err := s.events.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, events.ErrBadInvite) || errors.Is(err, events.ErrNotFound) {
			return nil, ErrInvalidInvite
		}
		return nil, fmt.Errorf("resolve invite code: %w", err)
	}

	if existing, err := s.repo.GetByEventAndUser(ctx, event.ID, userID); err == nil && existing != nil {
		return nil, ErrAlreadyJoined
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}

	count, err := s.repo.CountByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	// A zero-capacity event rejects every join; capacity is not "unlimited".
	if count >= event.MaxParticipants {
		return nil, ErrEventFull
	}

	token, err := ticket.MintToken(userID, event.ID, time.Now())
	if err != nil {
		return nil, err
	}

	reg, err := s.repo.Create(ctx, CreateParams{
		EventID:       event.ID,
		UserID:        userID,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentUnpaid,
		QRToken:       token,
	})
	if err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}

	if s.jobs != nil {
		if err := s.jobs.EnqueueTicketEmail(ctx, reg.ID); err != nil {
			// The ticket exists either way; email delivery is best effort.
			s.logger.Error().Err(err).Int64("registration_id", reg.ID).Msg("enqueue ticket email failed")
		}
	}

	s.logger.Info().Int64("registration_id", reg.ID).Int64("event_id", event.ID).Int64("user_id", userID).Msg("participant joined")
	return reg, nil
}

// ScanResult is the outcome of a successful (or idempotent) scan.
type ScanResult struct {
	Registration   *Registration
	AlreadyPresent bool
}

// Scan resolves a scanned code against one event and checks the holder
// in. Resolution order: exact QR token first, then — if the code is
// purely numeric — the registration row id, both scoped to the event.
// Unsettled payment blocks the check-in; a second scan of a Present
// ticket succeeds without writing.
func (s *Service) Scan(ctx context.Context, eventID int64, code string) (*ScanResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidTicket
	}

	reg, err := s.repo.GetByToken(ctx, eventID, code)
	if errors.Is(err, ErrNotFound) {
		if id, convErr := strconv.ParseInt(code, 10, 64); convErr == nil {
			reg, err = s.repo.GetByIDForEvent(ctx, eventID, id)
		}
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidTicket
	}
	if err != nil {
		return nil, fmt.Errorf("resolve scan code: %w", err)
	}

	return s.checkIn(ctx, reg)
}

// CheckInByID is the manual check-in button on the attendee list. Same
// payment gate and idempotence as Scan.
func (s *Service) CheckInByID(ctx context.Context, registrationID int64) (*ScanResult, error) {
	reg, err := s.repo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, reg)
}

func (s *Service) checkIn(ctx context.Context, reg *Registration) (*ScanResult, error) {
	if !PaymentSettled(reg.PaymentStatus) {
		return nil, &PaymentUnconfirmedError{Registration: reg}
	}
	if reg.Status == StatusPresent {
		return &ScanResult{Registration: reg, AlreadyPresent: true}, nil
	}
	if err := s.repo.UpdateStatus(ctx, reg.ID, StatusPresent); err != nil {
		return nil, fmt.Errorf("mark present: %w", err)
	}
	reg.Status = StatusPresent
	s.logger.Info().Int64("registration_id", reg.ID).Int64("event_id", reg.EventID).Msg("checked in")
	return &ScanResult{Registration: reg}, nil
}

type WalkInParams struct {
	FirstName string
	LastName  string
	Email     string
	Position  string
}

// WalkInResult reports the registration plus, when a new account had to
// be created, the temporary password to hand the participant.
type WalkInResult struct {
	Registration *Registration
	User         *users.User
	TempPassword string
	NewUser      bool
}

// WalkIn registers someone at the door: find or create the account,
// then insert (or upgrade) a registration that is immediately
// Present/Paid.
func (s *Service) WalkIn(ctx context.Context, eventID int64, params WalkInParams) (*WalkInResult, error) {
	result := &WalkInResult{}

	user, err := s.users.FindByEmail(ctx, params.Email)
	if errors.Is(err, users.ErrNotFound) {
		tempPassword, pwErr := walkInPassword()
		if pwErr != nil {
			return nil, pwErr
		}
		user, err = s.users.CreateWalkIn(ctx, params.FirstName, params.LastName, params.Email, tempPassword)
		if err != nil {
			return nil, fmt.Errorf("create walk-in user: %w", err)
		}
		result.TempPassword = tempPassword
		result.NewUser = true
	} else if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	result.User = user

	if existing, err := s.repo.GetByEventAndUser(ctx, eventID, user.ID); err == nil && existing != nil {
		reg, upErr := s.repo.MarkPresentPaid(ctx, existing.ID)
		if upErr != nil {
			return nil, fmt.Errorf("upgrade registration: %w", upErr)
		}
		result.Registration = reg
		return result, nil
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}

	token, err := ticket.MintToken(user.ID, eventID, time.Now())
	if err != nil {
		return nil, err
	}
	reg, err := s.repo.Create(ctx, CreateParams{
		EventID:       eventID,
		UserID:        user.ID,
		Status:        StatusPresent,
		PaymentStatus: PaymentPaid,
		Position:      params.Position,
		QRToken:       token,
	})
	if err != nil {
		return nil, fmt.Errorf("create walk-in registration: %w", err)
	}
	result.Registration = reg

	s.logger.Info().Int64("registration_id", reg.ID).Int64("event_id", eventID).Bool("new_user", result.NewUser).Msg("walk-in registered")
	return result, nil
}

// MyTickets lists the caller's registrations with event details.
func (s *Service) MyTickets(ctx context.Context, userID int64) ([]Ticket, error) {
	return s.repo.ListTicketsByUser(ctx, userID)
}

// GetOwnedTicket loads a registration only if it belongs to the caller.
func (s *Service) GetOwnedTicket(ctx context.Context, userID, registrationID int64) (*Registration, error) {
	reg, err := s.repo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != userID {
		return nil, ErrNotOwner
	}
	return reg, nil
}

func (s *Service) Get(ctx context.Context, registrationID int64) (*Registration, error) {
	return s.repo.GetByID(ctx, registrationID)
}

func (s *Service) ListByEvent(ctx context.Context, eventID int64) ([]Registration, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

// UpdateDetails applies the staff partial update used by attendance
// requests: status, payment, position and proof of payment, each
// optional.
func (s *Service) UpdateDetails(ctx context.Context, registrationID int64, params UpdateDetailsParams) (*Registration, error) {
	if params.Status != nil && !validRegStatuses[*params.Status] {
		return nil, ErrBadStatus
	}
	if params.PaymentStatus != nil && !validPayments[*params.PaymentStatus] {
		return nil, ErrBadPayment
	}
	reg, err := s.repo.UpdateDetails(ctx, registrationID, params)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("registration_id", reg.ID).Msg("registration updated")
	return reg, nil
}

func walkInPassword() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("walk-in password: %w", err)
	}
	return fmt.Sprintf("walkin%04d", n.Int64()), nil
}
