package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qrbase/server/internal/domain/speakers"
)

const speakerColumns = `id, organizer_id, name, specialization, description, contact_email, photo_path, created_at, updated_at`

func (r *SpeakerRepository) Create(ctx context.Context, params speakers.CreateParams) (*speakers.Speaker, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO speakers (organizer_id, name, specialization, description, contact_email, photo_path)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+speakerColumns,
		params.OrganizerID, params.Name, nullIfEmpty(params.Specialization),
		nullIfEmpty(params.Description), nullIfEmpty(params.ContactEmail), nullIfEmpty(params.PhotoPath))

	speaker, err := scanSpeaker(row)
	if err != nil {
		return nil, fmt.Errorf("insert speaker: %w", err)
	}
	return speaker, nil
}

func (r *SpeakerRepository) GetByID(ctx context.Context, id int64) (*speakers.Speaker, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+speakerColumns+` FROM speakers WHERE id = $1`, id)
	speaker, err := scanSpeaker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, speakers.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get speaker: %w", err)
	}
	return speaker, nil
}

func (r *SpeakerRepository) ListByOrganizer(ctx context.Context, organizerID int64) ([]speakers.Speaker, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT `+speakerColumns+` FROM speakers WHERE organizer_id = $1 ORDER BY name, id`, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	defer rows.Close()

	var out []speakers.Speaker
	for rows.Next() {
		speaker, err := scanSpeaker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan speaker row: %w", err)
		}
		out = append(out, *speaker)
	}
	return out, rows.Err()
}

func (r *SpeakerRepository) Update(ctx context.Context, id int64, params speakers.UpdateParams) (*speakers.Speaker, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
UPDATE speakers
   SET name = $2, specialization = $3, description = $4, contact_email = $5,
       photo_path = $6, updated_at = now()
 WHERE id = $1
RETURNING `+speakerColumns,
		id, params.Name, nullIfEmpty(params.Specialization), nullIfEmpty(params.Description),
		nullIfEmpty(params.ContactEmail), nullIfEmpty(params.PhotoPath))

	speaker, err := scanSpeaker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, speakers.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update speaker: %w", err)
	}
	return speaker, nil
}

func (r *SpeakerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM speakers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete speaker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return speakers.ErrNotFound
	}
	return nil
}

func scanSpeaker(row pgx.Row) (*speakers.Speaker, error) {
	var speaker speakers.Speaker
	var specialization, description, email, photo *string
	if err := row.Scan(
		&speaker.ID,
		&speaker.OrganizerID,
		&speaker.Name,
		&specialization,
		&description,
		&email,
		&photo,
		&speaker.CreatedAt,
		&speaker.UpdatedAt,
	); err != nil {
		return nil, err
	}
	speaker.Specialization = derefString(specialization)
	speaker.Description = derefString(description)
	speaker.ContactEmail = derefString(email)
	speaker.PhotoPath = derefString(photo)
	return &speaker, nil
}
