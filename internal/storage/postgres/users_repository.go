package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/qrbase/server/internal/domain/users"
)

const userColumns = `id, first_name, last_name, email, password_hash, role, contact_number, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO users (first_name, last_name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns,
		params.FirstName, params.LastName, params.Email, params.PasswordHash, params.Role)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*users.User, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, params users.UpdateProfileParams) (*users.User, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
UPDATE users
   SET first_name = $2, last_name = $3, contact_number = $4, updated_at = now()
 WHERE id = $1
RETURNING `+userColumns,
		id, params.FirstName, params.LastName, params.ContactNumber)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `
UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListStaff(ctx context.Context) ([]users.User, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT `+userColumns+` FROM users WHERE role <> 'participant' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []users.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff row: %w", err)
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var user users.User
	var contact *string
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&contact,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.ContactNumber = derefString(contact)
	return &user, nil
}
