package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qrbase/server/internal/domain/feedback"
)

func (r *FeedbackRepository) UpsertForm(ctx context.Context, eventID int64, questions feedback.QuestionsConfig, isActive bool) (*feedback.Form, error) {
	payload, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}

	row := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO event_feedback_forms (event_id, questions, is_active)
VALUES ($1, $2, $3)
ON CONFLICT (event_id) DO UPDATE
   SET questions = EXCLUDED.questions, is_active = EXCLUDED.is_active, updated_at = now()
RETURNING id, event_id, questions, is_active, created_at, updated_at`,
		eventID, payload, isActive)

	form, err := scanForm(row)
	if err != nil {
		return nil, fmt.Errorf("upsert feedback form: %w", err)
	}
	return form, nil
}

func (r *FeedbackRepository) GetForm(ctx context.Context, eventID int64) (*feedback.Form, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
SELECT id, event_id, questions, is_active, created_at, updated_at
  FROM event_feedback_forms
 WHERE event_id = $1`, eventID)

	form, err := scanForm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, feedback.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback form: %w", err)
	}
	return form, nil
}

func (r *FeedbackRepository) GetResponse(ctx context.Context, eventID, userID int64) (*feedback.Response, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
SELECT id, event_id, user_id, responses, created_at
  FROM feedback_responses
 WHERE event_id = $1 AND user_id = $2`, eventID, userID)

	response, err := scanResponse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, feedback.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback response: %w", err)
	}
	return response, nil
}

func (r *FeedbackRepository) CreateResponse(ctx context.Context, eventID, userID int64, answers map[string]string) (*feedback.Response, error) {
	payload, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}

	row := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO feedback_responses (event_id, user_id, responses)
VALUES ($1, $2, $3)
RETURNING id, event_id, user_id, responses, created_at`,
		eventID, userID, payload)

	response, err := scanResponse(row)
	if err != nil {
		return nil, fmt.Errorf("insert feedback response: %w", err)
	}
	return response, nil
}

func (r *FeedbackRepository) ListResponses(ctx context.Context, eventID int64) ([]feedback.Response, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT id, event_id, user_id, responses, created_at
  FROM feedback_responses
 WHERE event_id = $1
 ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list feedback responses: %w", err)
	}
	defer rows.Close()

	var out []feedback.Response
	for rows.Next() {
		response, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response row: %w", err)
		}
		out = append(out, *response)
	}
	return out, rows.Err()
}

func scanForm(row pgx.Row) (*feedback.Form, error) {
	var form feedback.Form
	var questions []byte
	if err := row.Scan(
		&form.ID,
		&form.EventID,
		&questions,
		&form.IsActive,
		&form.CreatedAt,
		&form.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &form.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &form, nil
}

func scanResponse(row pgx.Row) (*feedback.Response, error) {
	var response feedback.Response
	var answers []byte
	if err := row.Scan(
		&response.ID,
		&response.EventID,
		&response.UserID,
		&answers,
		&response.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &response.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &response, nil
}
