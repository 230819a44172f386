package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email is already taken")
	ErrBadCredential = errors.New("invalid credentials")
)

type User struct {
	ID            int64
	FirstName     string
	LastName      string
	Email         string
	PasswordHash  string
	Role          string
	ContactNumber string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type CreateParams struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
}

type UpdateProfileParams struct {
	FirstName     string
	LastName      string
	ContactNumber string
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	ListStaff(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id int64) error
}
