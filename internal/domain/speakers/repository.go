package speakers

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("speaker not found")
	ErrNotOwner = errors.New("speaker belongs to another organizer")
)

// Speaker is an organizer-owned profile reusable across events; the
// per-event topic lives on the event link, not here.
type Speaker struct {
	ID             int64     `json:"id"`
	OrganizerID    int64     `json:"organizer_id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization,omitempty"`
	Description    string    `json:"description,omitempty"`
	ContactEmail   string    `json:"contact_email,omitempty"`
	PhotoPath      string    `json:"photo_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateParams struct {
	OrganizerID    int64
	Name           string
	Specialization string
	Description    string
	ContactEmail   string
	PhotoPath      string
}

type UpdateParams struct {
	Name           string
	Specialization string
	Description    string
	ContactEmail   string
	PhotoPath      string
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Speaker, error)
	GetByID(ctx context.Context, id int64) (*Speaker, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]Speaker, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*Speaker, error)
	Delete(ctx context.Context, id int64) error
}
