package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qrbase/server/internal/domain/registrations"
)

const regColumns = `
r.id, r.event_id, r.user_id, r.status, r.payment_status, r.position,
r.proof_of_payment, r.qr_token, r.created_at, r.updated_at,
u.first_name || ' ' || u.last_name, u.email`

const regSelect = `
SELECT ` + regColumns + `
  FROM registrations r
  JOIN users u ON u.id = r.user_id`

func (r *RegistrationRepository) Create(ctx context.Context, params registrations.CreateParams) (*registrations.Registration, error) {
	var id int64
	err := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO registrations (event_id, user_id, status, payment_status, position, qr_token)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		params.EventID, params.UserID, params.Status, params.PaymentStatus,
		nullIfEmpty(params.Position), params.QRToken).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*registrations.Registration, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, regSelect+` WHERE r.id = $1`, id)
	return r.one(row, "get registration")
}

func (r *RegistrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID int64) (*registrations.Registration, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, regSelect+` WHERE r.event_id = $1 AND r.user_id = $2`, eventID, userID)
	return r.one(row, "get registration by event and user")
}

func (r *RegistrationRepository) GetByToken(ctx context.Context, eventID int64, token string) (*registrations.Registration, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, regSelect+` WHERE r.event_id = $1 AND r.qr_token = $2`, eventID, token)
	return r.one(row, "get registration by token")
}

func (r *RegistrationRepository) GetByIDForEvent(ctx context.Context, eventID, id int64) (*registrations.Registration, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, regSelect+` WHERE r.event_id = $1 AND r.id = $2`, eventID, id)
	return r.one(row, "get registration by id for event")
}

func (r *RegistrationRepository) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := pick(r.pool, r.tx).QueryRow(ctx, `SELECT count(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64) ([]registrations.Registration, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, regSelect+` WHERE r.event_id = $1 ORDER BY r.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []registrations.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration row: %w", err)
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

func (r *RegistrationRepository) ListTicketsByUser(ctx context.Context, userID int64) ([]registrations.Ticket, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT `+regColumns+`,
       e.title, e.location, e.schedule_date, e.status,
       EXISTS (
           SELECT 1 FROM feedback_responses fr
            WHERE fr.event_id = r.event_id AND fr.user_id = r.user_id
       )
  FROM registrations r
  JOIN users u ON u.id = r.user_id
  JOIN events e ON e.id = r.event_id
 WHERE r.user_id = $1
 ORDER BY e.schedule_date DESC, r.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []registrations.Ticket
	for rows.Next() {
		var ticket registrations.Ticket
		var position, proof, token *string
		var location *string
		if err := rows.Scan(
			&ticket.ID,
			&ticket.EventID,
			&ticket.UserID,
			&ticket.Status,
			&ticket.PaymentStatus,
			&position,
			&proof,
			&token,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ParticipantName,
			&ticket.ParticipantEmail,
			&ticket.EventTitle,
			&location,
			&ticket.ScheduleDate,
			&ticket.EventStatus,
			&ticket.HasFeedback,
		); err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		ticket.Position = derefString(position)
		ticket.ProofOfPayment = derefString(proof)
		ticket.QRToken = derefString(token)
		ticket.EventLocation = derefString(location)
		out = append(out, ticket)
	}
	return out, rows.Err()
}

func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `
UPDATE registrations SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registrations.ErrNotFound
	}
	return nil
}

func (r *RegistrationRepository) UpdateDetails(ctx context.Context, id int64, params registrations.UpdateDetailsParams) (*registrations.Registration, error) {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `
UPDATE registrations
   SET status           = COALESCE($2, status),
       payment_status   = COALESCE($3, payment_status),
       position         = COALESCE($4, position),
       proof_of_payment = COALESCE($5, proof_of_payment),
       updated_at       = now()
 WHERE id = $1`,
		id, params.Status, params.PaymentStatus, params.Position, params.ProofOfPayment)
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, registrations.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *RegistrationRepository) MarkPresentPaid(ctx context.Context, id int64) (*registrations.Registration, error) {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `
UPDATE registrations SET status = 'Present', payment_status = 'Paid', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("mark present paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, registrations.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *RegistrationRepository) one(row pgx.Row, op string) (*registrations.Registration, error) {
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reg, nil
}

func scanRegistration(row pgx.Row) (*registrations.Registration, error) {
	var reg registrations.Registration
	var position, proof, token *string
	if err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.Status,
		&reg.PaymentStatus,
		&position,
		&proof,
		&token,
		&reg.CreatedAt,
		&reg.UpdatedAt,
		&reg.ParticipantName,
		&reg.ParticipantEmail,
	); err != nil {
		return nil, err
	}
	reg.Position = derefString(position)
	reg.ProofOfPayment = derefString(proof)
	reg.QRToken = derefString(token)
	return &reg, nil
}
