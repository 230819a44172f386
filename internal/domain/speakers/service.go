package speakers

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
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
		logger:    logger.With().Str("component", "speakers").Logger(),
	}
}

type SpeakerParams struct {
	Name           string
	Specialization string
	Description    string
	ContactEmail   string
	PhotoPath      string
}

func (s *Service) Create(ctx context.Context, organizerID int64, params SpeakerParams) (*Speaker, error) {
	speaker, err := s.repo.Create(ctx, CreateParams{
		OrganizerID:    organizerID,
		Name:           strings.TrimSpace(params.Name),
		Specialization: strings.TrimSpace(params.Specialization),
		Description:    s.sanitizer.Sanitize(params.Description),
		ContactEmail:   strings.ToLower(strings.TrimSpace(params.ContactEmail)),
		PhotoPath:      params.PhotoPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create speaker: %w", err)
	}
	s.logger.Info().Int64("speaker_id", speaker.ID).Msg("speaker created")
	return speaker, nil
}

func (s *Service) List(ctx context.Context, organizerID int64) ([]Speaker, error) {
	return s.repo.ListByOrganizer(ctx, organizerID)
}

func (s *Service) Get(ctx context.Context, organizerID, speakerID int64) (*Speaker, error) {
	speaker, err := s.repo.GetByID(ctx, speakerID)
	if err != nil {
		return nil, err
	}
	if speaker.OrganizerID != organizerID {
		return nil, ErrNotOwner
	}
	return speaker, nil
}

func (s *Service) Update(ctx context.Context, organizerID, speakerID int64, params SpeakerParams) (*Speaker, error) {
	existing, err := s.repo.GetByID(ctx, speakerID)
	if err != nil {
		return nil, err
	}
	if existing.OrganizerID != organizerID {
		return nil, ErrNotOwner
	}

	photo := existing.PhotoPath
	if params.PhotoPath != "" {
		photo = params.PhotoPath
	}
	return s.repo.Update(ctx, speakerID, UpdateParams{
		Name:           strings.TrimSpace(params.Name),
		Specialization: strings.TrimSpace(params.Specialization),
		Description:    s.sanitizer.Sanitize(params.Description),
		ContactEmail:   strings.ToLower(strings.TrimSpace(params.ContactEmail)),
		PhotoPath:      photo,
	})
}

// Delete removes the speaker profile; event links cascade away.
func (s *Service) Delete(ctx context.Context, organizerID, speakerID int64) error {
	existing, err := s.repo.GetByID(ctx, speakerID)
	if err != nil {
		return err
	}
	if existing.OrganizerID != organizerID {
		return ErrNotOwner
	}
	if err := s.repo.Delete(ctx, speakerID); err != nil {
		return fmt.Errorf("delete speaker: %w", err)
	}
	s.logger.Info().Int64("speaker_id", speakerID).Msg("speaker deleted")
	return nil
}
