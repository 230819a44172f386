package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyBacksOffExponentially(t *testing.T) {
	policy := NewRetryPolicy()
	attemptedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{6, 16 * time.Minute},
		{7, 30 * time.Minute}, // capped
		{12, 30 * time.Minute},
	}

	for _, tt := range tests {
		job := &rivertype.JobRow{Attempt: tt.attempt, AttemptedAt: &attemptedAt}
		next := policy.NextRetry(job)
		assert.Equal(t, attemptedAt.Add(tt.want), next, "attempt %d", tt.attempt)
	}
}

func TestRetryPolicyHandlesZeroAttempt(t *testing.T) {
	policy := NewRetryPolicy()
	attemptedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	job := &rivertype.JobRow{Attempt: 0, AttemptedAt: &attemptedAt}
	next := policy.NextRetry(job)
	assert.Equal(t, attemptedAt.Add(30*time.Second), next)
}

func TestRetryPolicyWithoutAttemptedAt(t *testing.T) {
	policy := NewRetryPolicy()

	before := time.Now()
	next := policy.NextRetry(&rivertype.JobRow{Attempt: 1})
	after := time.Now()

	assert.False(t, next.Before(before.Add(30*time.Second)))
	assert.False(t, next.After(after.Add(30*time.Second)))
}

func TestJobKinds(t *testing.T) {
	assert.Equal(t, JobKindTicketEmail, TicketEmailArgs{}.Kind())
	assert.Equal(t, JobKindStaleRegistrationCleanup, StaleRegistrationCleanupArgs{}.Kind())
}

func TestNewPeriodicJobs(t *testing.T) {
	assert.Len(t, NewPeriodicJobs(), 1)
}
