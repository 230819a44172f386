package feedback

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("feedback form not found")
	ErrFormNotReady     = errors.New("form not ready")
	ErrAlreadySubmitted = errors.New("feedback already submitted")
)

// QuestionsConfig is the question set for one event: a global block
// asked of everyone plus optional per-speaker blocks keyed by the
// speaker's id as a decimal string (it lives in JSON).
type QuestionsConfig struct {
	Global   []string            `json:"global"`
	Speakers map[string][]string `json:"speakers,omitempty"`
}

// Form is the per-event feedback configuration; at most one exists and
// participants only see it while active.
type Form struct {
	ID        int64           `json:"id"`
	EventID   int64           `json:"event_id"`
	Questions QuestionsConfig `json:"questions"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Response holds one participant's answers keyed by answer key
// ("global_<idx>", "speaker_<id>_<idx>", "final_comments").
type Response struct {
	ID        int64             `json:"id"`
	EventID   int64             `json:"event_id"`
	UserID    int64             `json:"user_id"`
	Answers   map[string]string `json:"answers"`
	CreatedAt time.Time         `json:"created_at"`
}

type Repository interface {
	UpsertForm(ctx context.Context, eventID int64, questions QuestionsConfig, isActive bool) (*Form, error)
	GetForm(ctx context.Context, eventID int64) (*Form, error)
	GetResponse(ctx context.Context, eventID, userID int64) (*Response, error)
	CreateResponse(ctx context.Context, eventID, userID int64, answers map[string]string) (*Response, error)
	ListResponses(ctx context.Context, eventID int64) ([]Response, error)
}
