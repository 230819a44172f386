// Package jobs runs background work on River, sharing the server's
// Postgres pool: ticket email delivery and stale registration cleanup.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindTicketEmail              = "ticket_email"
	JobKindStaleRegistrationCleanup = "stale_registration_cleanup"
)

const (
	TicketEmailMaxAttempts = 5
	CleanupMaxAttempts     = 3
)

// RetryPolicy backs off exponentially from 30s, capped at 30 minutes.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		BaseDelay: 30 * time.Second,
		MaxDelay:  30 * time.Minute,
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// NewClientConfig builds the River client configuration.
func NewClientConfig(workers *river.Workers, logger *slog.Logger, periodicJobs []*river.PeriodicJob) *river.Config {
	config := &river.Config{
		Workers:      workers,
		RetryPolicy:  NewRetryPolicy(),
		MaxAttempts:  TicketEmailMaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
	}
	if logger != nil {
		config.Logger = logger
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, workers *river.Workers, logger *slog.Logger, periodicJobs []*river.PeriodicJob) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(workers, logger, periodicJobs))
}

// NewPeriodicJobs schedules the nightly stale registration sweep.
func NewPeriodicJobs() []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return StaleRegistrationCleanupArgs{}, &river.InsertOpts{MaxAttempts: CleanupMaxAttempts}
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Enqueuer inserts jobs through a River client; it satisfies the
// domain-side enqueuer interfaces.
type Enqueuer struct {
	client *river.Client[pgx.Tx]
}

func NewEnqueuer(client *river.Client[pgx.Tx]) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueTicketEmail(ctx context.Context, registrationID int64) error {
	_, err := e.client.Insert(ctx, TicketEmailArgs{RegistrationID: registrationID}, &river.InsertOpts{
		MaxAttempts: TicketEmailMaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("enqueue ticket email: %w", err)
	}
	return nil
}

// JobQueueHealthy reports whether the job queue tables are reachable;
// the health endpoint calls this.
func JobQueueHealthy(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM river_job WHERE state = 'available'`).Scan(&count); err != nil {
		return fmt.Errorf("job queue check: %w", err)
	}
	return nil
}

