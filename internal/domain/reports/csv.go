// Package reports builds the attendance CSV export: one row per
// registration, joined with the participant's feedback answers.
package reports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/domain/feedback"
	"github.com/qrbase/server/internal/domain/registrations"
)

type AttendeeSource interface {
	ListByEvent(ctx context.Context, eventID int64) ([]registrations.Registration, error)
}

type FeedbackSource interface {
	GetForm(ctx context.Context, eventID int64) (*feedback.Form, error)
	ListResponses(ctx context.Context, eventID int64) ([]feedback.Response, error)
}

type Service struct {
	attendees AttendeeSource
	feedback  FeedbackSource
	logger    zerolog.Logger
}

func NewService(attendees AttendeeSource, feedbackSource FeedbackSource, logger zerolog.Logger) *Service {
	return &Service{
		attendees: attendees,
		feedback:  feedbackSource,
		logger:    logger.With().Str("component", "reports").Logger(),
	}
}

const (
	missingCell   = "-"
	defaultProof  = "N/A"
	checkedInCell = "CHECKED IN"
	timeLayout    = "2006-01-02 15:04:05"
)

var baseColumns = []string{
	"Ticket ID", "Name", "Email", "Position",
	"Status", "Payment", "Proof of Trans.", "Check-in Time",
}

// WriteCSV streams the attendance report for one event. Question
// columns follow the event's current form config; answers recorded
// under keys no longer in the config are not exported.
func (s *Service) WriteCSV(ctx context.Context, eventID int64, w io.Writer) error {
	attendees, err := s.attendees.ListByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("list attendees: %w", err)
	}
	sort.Slice(attendees, func(i, j int) bool { return attendees[i].ID < attendees[j].ID })

	var headers []feedback.Header
	form, err := s.feedback.GetForm(ctx, eventID)
	switch {
	case err == nil:
		headers = form.Questions.Headers()
	case errors.Is(err, feedback.ErrNotFound):
		// No form configured; export the base columns only.
	default:
		return fmt.Errorf("load feedback form: %w", err)
	}

	answersByUser := map[int64]map[string]string{}
	if len(headers) > 0 {
		responses, err := s.feedback.ListResponses(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list feedback responses: %w", err)
		}
		for _, response := range responses {
			answersByUser[response.UserID] = response.Answers
		}
	}

	writer := csv.NewWriter(w)

	row := append([]string{}, baseColumns...)
	for _, header := range headers {
		row = append(row, header.Label)
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, reg := range attendees {
		row = row[:0]
		row = append(row,
			fmt.Sprintf("%d", reg.ID),
			orDash(reg.ParticipantName),
			orDash(reg.ParticipantEmail),
			orDash(reg.Position),
			statusCell(reg.Status),
			paymentCell(reg.PaymentStatus),
			proofCell(reg.ProofOfPayment),
			checkInTimeCell(reg),
		)
		answers := answersByUser[reg.UserID]
		for _, header := range headers {
			if answer, ok := answers[header.Key]; ok && answer != "" {
				row = append(row, answer)
			} else {
				row = append(row, missingCell)
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	s.logger.Info().Int64("event_id", eventID).Int("rows", len(attendees)).Msg("attendance exported")
	return nil
}

func statusCell(status string) string {
	if status == registrations.StatusPresent {
		return checkedInCell
	}
	if status == "" {
		return missingCell
	}
	return status
}

func paymentCell(payment string) string {
	if payment == "" {
		return registrations.PaymentUnpaid
	}
	return payment
}

func proofCell(proof string) string {
	if proof == "" {
		return defaultProof
	}
	return proof
}

// checkInTimeCell renders the last update time for checked-in rows;
// updated_at is the closest thing to a check-in timestamp the schema
// keeps.
func checkInTimeCell(reg registrations.Registration) string {
	if reg.Status != registrations.StatusPresent || reg.UpdatedAt.IsZero() {
		return missingCell
	}
	return reg.UpdatedAt.Format(timeLayout)
}

func orDash(value string) string {
	if value == "" {
		return missingCell
	}
	return value
}
