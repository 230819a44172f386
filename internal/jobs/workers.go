package jobs

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/registrations"
	"github.com/qrbase/server/internal/domain/users"
	"github.com/qrbase/server/internal/email"
	"github.com/qrbase/server/internal/ticket"
)

type TicketEmailArgs struct {
	RegistrationID int64 `json:"registration_id"`
}

func (TicketEmailArgs) Kind() string { return JobKindTicketEmail }

// TicketEmailWorker emails the participant their QR ticket after a
// successful join.
type TicketEmailWorker struct {
	river.WorkerDefaults[TicketEmailArgs]
	Registrations *registrations.Service
	Events        *events.Service
	Users         *users.Service
	Email         *email.Service
	Logger        *slog.Logger
}

func (TicketEmailWorker) Kind() string { return JobKindTicketEmail }

func (w TicketEmailWorker) Work(ctx context.Context, job *river.Job[TicketEmailArgs]) error {
	if w.Registrations == nil || w.Events == nil || w.Users == nil || w.Email == nil {
		return fmt.Errorf("ticket email worker not fully configured")
	}

	reg, err := w.Registrations.Get(ctx, job.Args.RegistrationID)
	if errors.Is(err, registrations.ErrNotFound) {
		// The registration was removed before the email went out.
		return river.JobCancel(err)
	}
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}

	event, err := w.Events.Get(ctx, 0, reg.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	user, err := w.Users.Get(ctx, reg.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	qrURI, err := ticket.QRDataURI(reg.QRToken, ticket.QRSize)
	if err != nil {
		return fmt.Errorf("render qr: %w", err)
	}

	data := email.TicketData{
		ParticipantName: user.FullName(),
		EventTitle:      event.Title,
		EventLocation:   event.Location,
		ScheduleDate:    event.ScheduleDate.Format("Monday, 2 January 2006 15:04"),
		TicketID:        reg.ID,
		QRDataURI:       template.URL(qrURI),
	}
	if err := w.Email.SendTicket(ctx, user.Email, data); err != nil {
		return fmt.Errorf("send ticket email: %w", err)
	}
	return nil
}

// StaleRegistrationCleanupArgs defines the nightly sweep of abandoned
// pending registrations.
type StaleRegistrationCleanupArgs struct{}

func (StaleRegistrationCleanupArgs) Kind() string { return JobKindStaleRegistrationCleanup }

// StaleRegistrationCleanupWorker deletes Pending registrations that
// never settled payment within the retention window. Checked-in and
// confirmed rows are never touched.
type StaleRegistrationCleanupWorker struct {
	river.WorkerDefaults[StaleRegistrationCleanupArgs]
	Pool          *pgxpool.Pool
	RetentionDays int
	Logger        *slog.Logger
}

func (StaleRegistrationCleanupWorker) Kind() string { return JobKindStaleRegistrationCleanup }

func (w StaleRegistrationCleanupWorker) Work(ctx context.Context, job *river.Job[StaleRegistrationCleanupArgs]) error {
	if w.Pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	retention := w.RetentionDays
	if retention <= 0 {
		retention = 30
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tag, err := w.Pool.Exec(ctx, `
DELETE FROM registrations
 WHERE status = 'Pending'
   AND payment_status IN ('Unpaid', 'Pending')
   AND created_at < now() - make_interval(days => $1)`, retention)
	if err != nil {
		return fmt.Errorf("delete stale registrations: %w", err)
	}

	logger.Info("stale registration cleanup finished",
		"deleted_count", tag.RowsAffected(),
		"retention_days", retention,
		"attempt", job.Attempt,
	)
	return nil
}
