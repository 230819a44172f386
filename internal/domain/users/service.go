package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/qrbase/server/internal/auth"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt password hashing.
const BcryptCost = 12

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

// Register creates a new account. Self-signup only hands out the
// organizer and participant roles; volunteer and admin accounts are
// created through team management.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	role := auth.NormalizeRole(params.Role)
	if role != auth.RoleOrganizer && role != auth.RoleParticipant {
		role = auth.RoleParticipant
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && err != ErrNotFound {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(role),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user registered")
	return user, nil
}

// Authenticate verifies credentials and returns the matching user.
// Lookup misses and password mismatches both map to ErrBadCredential so
// callers cannot distinguish which half failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrBadCredential
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredential
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*User, error) {
	params.FirstName = strings.TrimSpace(params.FirstName)
	params.LastName = strings.TrimSpace(params.LastName)
	return s.repo.UpdateProfile(ctx, id, params)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrBadCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// Team returns users who hold a staff role (everyone but participants).
func (s *Service) Team(ctx context.Context) ([]User, error) {
	return s.repo.ListStaff(ctx)
}

type AddTeamMemberParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

func (s *Service) AddTeamMember(ctx context.Context, params AddTeamMemberParams) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && err != ErrNotFound {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(auth.NormalizeRole(params.Role)),
	})
	if err != nil {
		return nil, fmt.Errorf("create team member: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("team member added")
	return user, nil
}

func (s *Service) RemoveTeamMember(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// FindByEmail looks a user up by exact email match.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// CreateWalkIn creates a participant account with a staff-supplied
// temporary password, used for at-the-door registrations.
func (s *Service) CreateWalkIn(ctx context.Context, firstName, lastName, email, tempPassword string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, CreateParams{
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         string(auth.RoleParticipant),
	})
}
