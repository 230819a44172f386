package feedback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
)

const FinalCommentsKey = "final_comments"

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "feedback").Logger(),
	}
}

// SaveForm upserts the event's question set and activates it.
func (s *Service) SaveForm(ctx context.Context, eventID int64, questions QuestionsConfig) (*Form, error) {
	form, err := s.repo.UpsertForm(ctx, eventID, questions, true)
	if err != nil {
		return nil, fmt.Errorf("save feedback form: %w", err)
	}
	s.logger.Info().Int64("event_id", eventID).Int("global_questions", len(questions.Global)).Msg("feedback form saved")
	return form, nil
}

// GetActiveForm returns the form participants fill in; an absent or
// deactivated form reads the same to them.
func (s *Service) GetActiveForm(ctx context.Context, eventID int64) (*Form, error) {
	form, err := s.repo.GetForm(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrFormNotReady
	}
	if err != nil {
		return nil, err
	}
	if !form.IsActive {
		return nil, ErrFormNotReady
	}
	return form, nil
}

// GetForm is the organizer view: returns the form whether or not it is
// active.
func (s *Service) GetForm(ctx context.Context, eventID int64) (*Form, error) {
	return s.repo.GetForm(ctx, eventID)
}

// Submit records one response per (event, user). Answers are stored as
// given; keys that later fall out of the form config simply stop being
// exported.
func (s *Service) Submit(ctx context.Context, eventID, userID int64, answers map[string]string) (*Response, error) {
	if _, err := s.GetActiveForm(ctx, eventID); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetResponse(ctx, eventID, userID); err == nil && existing != nil {
		return nil, ErrAlreadySubmitted
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing response: %w", err)
	}

	response, err := s.repo.CreateResponse(ctx, eventID, userID, answers)
	if err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}
	s.logger.Info().Int64("event_id", eventID).Int64("user_id", userID).Msg("feedback submitted")
	return response, nil
}

// HasSubmitted reports whether the user already responded for the event.
func (s *Service) HasSubmitted(ctx context.Context, eventID, userID int64) (bool, error) {
	_, err := s.repo.GetResponse(ctx, eventID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListResponses(ctx context.Context, eventID int64) ([]Response, error) {
	return s.repo.ListResponses(ctx, eventID)
}

// Header is one exported answer column: the stable answer key plus the
// human label shown in the CSV header row.
type Header struct {
	Key   string
	Label string
}

// Headers flattens the config into export column order: global
// questions first in index order, then each speaker block with speaker
// ids sorted numerically, then the final comments column.
func (c QuestionsConfig) Headers() []Header {
	headers := make([]Header, 0, len(c.Global)+1)
	for i, question := range c.Global {
		headers = append(headers, Header{
			Key:   fmt.Sprintf("global_%d", i),
			Label: question,
		})
	}

	speakerIDs := make([]int64, 0, len(c.Speakers))
	for raw := range c.Speakers {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			speakerIDs = append(speakerIDs, id)
		}
	}
	sort.Slice(speakerIDs, func(i, j int) bool { return speakerIDs[i] < speakerIDs[j] })

	for _, id := range speakerIDs {
		key := strconv.FormatInt(id, 10)
		for i, question := range c.Speakers[key] {
			headers = append(headers, Header{
				Key:   fmt.Sprintf("speaker_%s_%d", key, i),
				Label: question,
			})
		}
	}

	headers = append(headers, Header{Key: FinalCommentsKey, Label: "Final Comments"})
	return headers
}
