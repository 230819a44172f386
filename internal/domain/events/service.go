package events

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength   = 6
	inviteCodeAttempts = 5
)

type Service struct {
	repo      Repository
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "events").Logger(),
	}
}

type CreateEventParams struct {
	Title           string
	Description     string
	Location        string
	ScheduleDate    time.Time
	MaxParticipants int
	Image           string
	Speakers        []SpeakerLink
}

// Create inserts a new event for the organizer, minting a fresh invite
// code. Invite codes are retried on collision since the space is small
// enough that collisions, while rare, do happen.
func (s *Service) Create(ctx context.Context, organizerID int64, params CreateEventParams) (*Event, error) {
	var event *Event
	var lastErr error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := mintInviteCode()
		if err != nil {
			return nil, fmt.Errorf("mint invite code: %w", err)
		}
		event, lastErr = s.repo.Create(ctx, CreateParams{
			OrganizerID:     organizerID,
			Title:           strings.TrimSpace(params.Title),
			Description:     s.sanitizer.Sanitize(params.Description),
			Location:        strings.TrimSpace(params.Location),
			ScheduleDate:    params.ScheduleDate,
			MaxParticipants: params.MaxParticipants,
			InviteCode:      code,
			Image:           params.Image,
			Status:          StatusUpcoming,
		})
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("create event: %w", lastErr)
	}

	if len(params.Speakers) > 0 {
		if err := s.repo.SyncSpeakers(ctx, event.ID, params.Speakers); err != nil {
			return nil, fmt.Errorf("attach speakers: %w", err)
		}
		speakers, err := s.repo.ListSpeakers(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("list speakers: %w", err)
		}
		event.Speakers = speakers
	}

	s.logger.Info().Int64("event_id", event.ID).Str("invite_code", event.InviteCode).Msg("event created")
	return event, nil
}

func (s *Service) List(ctx context.Context, organizerID int64) ([]Event, error) {
	return s.repo.ListByOrganizer(ctx, organizerID)
}

// Get returns the event if it belongs to the organizer; a zero
// organizerID skips the ownership check (used by staff lookups).
func (s *Service) Get(ctx context.Context, organizerID, eventID int64) (*Event, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if organizerID != 0 && event.OrganizerID != organizerID {
		return nil, ErrNotOwner
	}
	speakers, err := s.repo.ListSpeakers(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	event.Speakers = speakers
	return event, nil
}

func (s *Service) GetByInviteCode(ctx context.Context, code string) (*Event, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != inviteCodeLength {
		return nil, ErrBadInvite
	}
	event, err := s.repo.GetByInviteCode(ctx, code)
	if err == ErrNotFound {
		return nil, ErrBadInvite
	}
	return event, err
}

type UpdateEventParams struct {
	Title           string
	Description     string
	Location        string
	ScheduleDate    time.Time
	MaxParticipants int
	Image           string
	Status          string
	Speakers        []SpeakerLink
	SyncSpeakers    bool
}

func (s *Service) Update(ctx context.Context, organizerID, eventID int64, params UpdateEventParams) (*Event, error) {
	existing, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if organizerID != 0 && existing.OrganizerID != organizerID {
		return nil, ErrNotOwner
	}

	status := existing.Status
	if params.Status != "" {
		if !validStatuses[params.Status] {
			return nil, ErrBadStatus
		}
		status = params.Status
	}
	image := existing.Image
	if params.Image != "" {
		image = params.Image
	}

	event, err := s.repo.Update(ctx, eventID, UpdateParams{
		Title:           strings.TrimSpace(params.Title),
		Description:     s.sanitizer.Sanitize(params.Description),
		Location:        strings.TrimSpace(params.Location),
		ScheduleDate:    params.ScheduleDate,
		MaxParticipants: params.MaxParticipants,
		Image:           image,
		Status:          status,
	})
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if params.SyncSpeakers {
		if err := s.repo.SyncSpeakers(ctx, eventID, params.Speakers); err != nil {
			return nil, fmt.Errorf("sync speakers: %w", err)
		}
	}
	speakers, err := s.repo.ListSpeakers(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	event.Speakers = speakers
	return event, nil
}

// Delete removes the event; registrations, speaker links and feedback
// go with it via cascade.
func (s *Service) Delete(ctx context.Context, organizerID, eventID int64) error {
	existing, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if organizerID != 0 && existing.OrganizerID != organizerID {
		return ErrNotOwner
	}
	if err := s.repo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.Info().Int64("event_id", eventID).Msg("event deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context, eventID int64) (*Stats, error) {
	return s.repo.Stats(ctx, eventID)
}

// DashboardStats fans the per-organizer counts out in parallel; each
// count is an independent query.
func (s *Service) DashboardStats(ctx context.Context, organizerID int64) (*DashboardStats, error) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountEvents(ctx, organizerID)
		stats.TotalEvents = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountUpcomingEvents(ctx, organizerID)
		stats.UpcomingEvents = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountRegistrations(ctx, organizerID)
		stats.TotalRegistrations = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountCheckedIn(ctx, organizerID)
		stats.TotalCheckedIn = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountSpeakers(ctx, organizerID)
		stats.TotalSpeakers = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}

// WaitlistCapacity is floor(10% of max participants). Display only, the
// join path does not waitlist automatically.
func WaitlistCapacity(maxParticipants int) int {
	return maxParticipants / 10
}

func mintInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
