package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qrbase/server/internal/domain/events"
)

const eventColumns = `id, organizer_id, title, description, location, schedule_date, max_participants, invite_code, image, status, created_at, updated_at`

func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO events (organizer_id, title, description, location, schedule_date, max_participants, invite_code, image, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+eventColumns,
		params.OrganizerID, params.Title, params.Description, params.Location,
		params.ScheduleDate, params.MaxParticipants, params.InviteCode,
		nullIfEmpty(params.Image), params.Status)

	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*events.Event, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetByInviteCode(ctx context.Context, code string) (*events.Event, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE invite_code = $1`, code)
	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event by invite code: %w", err)
	}
	return event, nil
}

func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID int64) ([]events.Event, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY schedule_date DESC, id DESC`, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		out = append(out, *event)
	}
	return out, rows.Err()
}

func (r *EventRepository) Update(ctx context.Context, id int64, params events.UpdateParams) (*events.Event, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
UPDATE events
   SET title = $2, description = $3, location = $4, schedule_date = $5,
       max_participants = $6, image = $7, status = $8, updated_at = now()
 WHERE id = $1
RETURNING `+eventColumns,
		id, params.Title, params.Description, params.Location, params.ScheduleDate,
		params.MaxParticipants, nullIfEmpty(params.Image), params.Status)

	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// SyncSpeakers replaces the event's speaker links in one transaction so
// readers never see a half-applied set.
func (r *EventRepository) SyncSpeakers(ctx context.Context, eventID int64, links []events.SpeakerLink) error {
	q := pick(r.pool, r.tx)
	if _, err := q.Exec(ctx, `DELETE FROM event_speakers WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("clear speaker links: %w", err)
	}
	for _, link := range links {
		if _, err := q.Exec(ctx, `
INSERT INTO event_speakers (event_id, speaker_id, topic)
VALUES ($1, $2, $3)
ON CONFLICT (event_id, speaker_id) DO UPDATE SET topic = EXCLUDED.topic`,
			eventID, link.SpeakerID, nullIfEmpty(link.Topic)); err != nil {
			return fmt.Errorf("link speaker %d: %w", link.SpeakerID, err)
		}
	}
	return nil
}

func (r *EventRepository) ListSpeakers(ctx context.Context, eventID int64) ([]events.EventSpeaker, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT s.id, s.name, s.specialization, s.photo_path, es.topic
  FROM event_speakers es
  JOIN speakers s ON s.id = es.speaker_id
 WHERE es.event_id = $1
 ORDER BY s.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event speakers: %w", err)
	}
	defer rows.Close()

	var out []events.EventSpeaker
	for rows.Next() {
		var speaker events.EventSpeaker
		var specialization, photo, topic *string
		if err := rows.Scan(&speaker.SpeakerID, &speaker.Name, &specialization, &photo, &topic); err != nil {
			return nil, fmt.Errorf("scan speaker link: %w", err)
		}
		speaker.Specialization = derefString(specialization)
		speaker.PhotoPath = derefString(photo)
		speaker.Topic = derefString(topic)
		out = append(out, speaker)
	}
	return out, rows.Err()
}

func (r *EventRepository) Stats(ctx context.Context, eventID int64) (*events.Stats, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
SELECT
	count(*),
	count(*) FILTER (WHERE payment_status IN ('Paid', 'Free')),
	count(*) FILTER (WHERE status = 'Present'),
	count(*) FILTER (WHERE status = 'Absent'),
	count(*) FILTER (WHERE status = 'Waitlisted'),
	count(*) FILTER (WHERE payment_status = 'Paid')
  FROM registrations
 WHERE event_id = $1`, eventID)

	var stats events.Stats
	if err := row.Scan(
		&stats.TotalRegistered,
		&stats.SlotsTaken,
		&stats.PresentCount,
		&stats.AbsentCount,
		&stats.WaitlistedCount,
		&stats.PaidCount,
	); err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}

	var maxParticipants int
	if err := pick(r.pool, r.tx).QueryRow(ctx, `SELECT max_participants FROM events WHERE id = $1`, eventID).Scan(&maxParticipants); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("event capacity: %w", err)
	}
	stats.WaitlistCapacity = events.WaitlistCapacity(maxParticipants)
	return &stats, nil
}

func (r *EventRepository) CountEvents(ctx context.Context, organizerID int64) (int, error) {
	return r.scalarCount(ctx, `SELECT count(*) FROM events WHERE organizer_id = $1`, organizerID)
}

func (r *EventRepository) CountUpcomingEvents(ctx context.Context, organizerID int64) (int, error) {
	return r.scalarCount(ctx, `SELECT count(*) FROM events WHERE organizer_id = $1 AND status = 'Upcoming'`, organizerID)
}

func (r *EventRepository) CountRegistrations(ctx context.Context, organizerID int64) (int, error) {
	return r.scalarCount(ctx, `
SELECT count(*) FROM registrations r JOIN events e ON e.id = r.event_id WHERE e.organizer_id = $1`, organizerID)
}

func (r *EventRepository) CountCheckedIn(ctx context.Context, organizerID int64) (int, error) {
	return r.scalarCount(ctx, `
SELECT count(*) FROM registrations r JOIN events e ON e.id = r.event_id
 WHERE e.organizer_id = $1 AND r.status = 'Present'`, organizerID)
}

func (r *EventRepository) CountSpeakers(ctx context.Context, organizerID int64) (int, error) {
	return r.scalarCount(ctx, `SELECT count(*) FROM speakers WHERE organizer_id = $1`, organizerID)
}

func (r *EventRepository) scalarCount(ctx context.Context, sql string, args ...any) (int, error) {
	var count int
	if err := pick(r.pool, r.tx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var event events.Event
	var description, location, image *string
	if err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&description,
		&location,
		&event.ScheduleDate,
		&event.MaxParticipants,
		&event.InviteCode,
		&image,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	event.Description = derefString(description)
	event.Location = derefString(location)
	event.Image = derefString(image)
	return &event, nil
}
