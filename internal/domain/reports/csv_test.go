package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/qrbase/server/internal/domain/feedback"
	"github.com/qrbase/server/internal/domain/registrations"
)

type fakeAttendees struct {
	rows []registrations.Registration
}

func (f *fakeAttendees) ListByEvent(_ context.Context, _ int64) ([]registrations.Registration, error) {
	return f.rows, nil
}

type fakeFeedback struct {
	form      *feedback.Form
	formErr   error
	responses []feedback.Response
}

func (f *fakeFeedback) GetForm(_ context.Context, _ int64) (*feedback.Form, error) {
	if f.formErr != nil {
		return nil, f.formErr
	}
	if f.form == nil {
		return nil, feedback.ErrNotFound
	}
	return f.form, nil
}

func (f *fakeFeedback) ListResponses(_ context.Context, _ int64) ([]feedback.Response, error) {
	return f.responses, nil
}

func exportRows(t *testing.T, attendees *fakeAttendees, fb *fakeFeedback) [][]string {
	t.Helper()
	svc := NewService(attendees, fb, zerolog.Nop())
	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(context.Background(), 1, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV(t *testing.T) {
	checkedInAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	attendees := &fakeAttendees{rows: []registrations.Registration{
		{
			ID: 2, UserID: 42, Status: registrations.StatusPresent,
			PaymentStatus: registrations.PaymentPaid, Position: "Student",
			ParticipantName: "Ana Reyes", ParticipantEmail: "ana@example.com",
			UpdatedAt: checkedInAt,
		},
		{
			ID: 1, UserID: 43, Status: registrations.StatusConfirmed,
			ParticipantName: "Ben Cho", ParticipantEmail: "ben@example.com",
		},
	}}
	fb := &fakeFeedback{
		form: &feedback.Form{Questions: feedback.QuestionsConfig{
			Global:   []string{"Overall rating?"},
			Speakers: map[string][]string{"7": {"Rate the keynote"}},
		}},
		responses: []feedback.Response{
			{UserID: 42, Answers: map[string]string{
				"global_0":       "5",
				"speaker_7_0":    "4",
				"final_comments": "Great event",
				"speaker_9_0":    "orphaned answer",
			}},
		},
	}

	rows := exportRows(t, attendees, fb)
	require.Len(t, rows, 3)

	require.Equal(t, []string{
		"Ticket ID", "Name", "Email", "Position",
		"Status", "Payment", "Proof of Trans.", "Check-in Time",
		"Overall rating?", "Rate the keynote", "Final Comments",
	}, rows[0])

	// Rows come out in ticket id order.
	require.Equal(t, []string{
		"1", "Ben Cho", "ben@example.com", "-",
		"Confirmed", "Unpaid", "N/A", "-",
		"-", "-", "-",
	}, rows[1])
	require.Equal(t, []string{
		"2", "Ana Reyes", "ana@example.com", "Student",
		"CHECKED IN", "Paid", "N/A", "2026-03-14 09:30:00",
		"5", "4", "Great event",
	}, rows[2])
}

func TestWriteCSVNoForm(t *testing.T) {
	attendees := &fakeAttendees{rows: []registrations.Registration{
		{ID: 1, UserID: 43, Status: registrations.StatusConfirmed, ParticipantName: "Ben Cho", ParticipantEmail: "ben@example.com"},
	}}

	rows := exportRows(t, attendees, &fakeFeedback{})
	require.Len(t, rows, 2)
	require.Len(t, rows[0], 8, "base columns only when no form is configured")
}

func TestWriteCSVWrappedNoForm(t *testing.T) {
	attendees := &fakeAttendees{rows: []registrations.Registration{
		{ID: 1, UserID: 43, Status: registrations.StatusConfirmed, ParticipantName: "Ben Cho", ParticipantEmail: "ben@example.com"},
	}}
	fb := &fakeFeedback{formErr: fmt.Errorf("load form: %w", feedback.ErrNotFound)}

	rows := exportRows(t, attendees, fb)
	require.Len(t, rows, 2)
	require.Len(t, rows[0], 8, "a wrapped missing-form error still means no form")
}
