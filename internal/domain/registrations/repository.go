package registrations

import (
	"context"
	"time"
)

// Registration ties a user to an event. The row id doubles as the
// human-readable ticket number; the QR token is the scannable secret.
type Registration struct {
	ID             int64     `json:"id"`
	EventID        int64     `json:"event_id"`
	UserID         int64     `json:"user_id"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	Position       string    `json:"position,omitempty"`
	ProofOfPayment string    `json:"proof_of_payment,omitempty"`
	QRToken        string    `json:"qr_token,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Joined from users for listings; empty on bare rows.
	ParticipantName  string `json:"participant_name,omitempty"`
	ParticipantEmail string `json:"participant_email,omitempty"`
}

// Ticket is a registration from the participant's point of view, with
// the event attached and whether they already submitted feedback.
type Ticket struct {
	Registration
	EventTitle    string    `json:"event_title"`
	EventLocation string    `json:"event_location"`
	ScheduleDate  time.Time `json:"schedule_date"`
	EventStatus   string    `json:"event_status"`
	HasFeedback   bool      `json:"has_feedback"`
}

type CreateParams struct {
	EventID       int64
	UserID        int64
	Status        string
	PaymentStatus string
	Position      string
	QRToken       string
}

// UpdateDetailsParams is a partial update; nil fields are left alone.
type UpdateDetailsParams struct {
	Status         *string
	PaymentStatus  *string
	Position       *string
	ProofOfPayment *string
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Registration, error)
	GetByID(ctx context.Context, id int64) (*Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID int64) (*Registration, error)

	// GetByToken matches the exact QR token scoped to the event.
	GetByToken(ctx context.Context, eventID int64, token string) (*Registration, error)
	// GetByIDForEvent matches a registration row id scoped to the event.
	GetByIDForEvent(ctx context.Context, eventID, id int64) (*Registration, error)

	CountByEvent(ctx context.Context, eventID int64) (int, error)
	ListByEvent(ctx context.Context, eventID int64) ([]Registration, error)
	ListTicketsByUser(ctx context.Context, userID int64) ([]Ticket, error)

	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateDetails(ctx context.Context, id int64, params UpdateDetailsParams) (*Registration, error)
	// MarkPresentPaid upgrades a registration in one write, used by
	// walk-ins that turn out to already hold a ticket.
	MarkPresentPaid(ctx context.Context, id int64) (*Registration, error)
}
