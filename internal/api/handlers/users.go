package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/users"
)

// UsersHandler serves the caller's own profile plus the staff roster.
type UsersHandler struct {
	users  *users.Service
	logger zerolog.Logger
	env    string
}

func NewUsersHandler(usersService *users.Service, logger zerolog.Logger, env string) *UsersHandler {
	return &UsersHandler{
		users:  usersService,
		logger: logger.With().Str("handler", "users").Logger(),
		env:    env,
	}
}

// Me handles GET /api/v1/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, userInfoFrom(user))
}

type updateProfileRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	ContactNumber string `json:"contact_number" validate:"max=30"`
}

// UpdateMe handles PUT /api/v1/me.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, users.UpdateProfileParams{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, userInfoFrom(user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePassword handles PUT /api/v1/me/password.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	if err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, users.ErrBadCredential):
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Current password is incorrect", nil, h.env)
		case errors.Is(err, users.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// Team handles GET /api/v1/team.
func (h *UsersHandler) Team(w http.ResponseWriter, r *http.Request) {
	staff, err := h.users.Team(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	members := make([]userInfo, 0, len(staff))
	for i := range staff {
		members = append(members, userInfoFrom(&staff[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

type addTeamMemberRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Role      string `json:"role" validate:"required"`
}

// AddTeamMember handles POST /api/v1/team.
func (h *UsersHandler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	var req addTeamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	user, err := h.users.AddTeamMember(r.Context(), users.AddTeamMemberParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Email is already taken", nil, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, userInfoFrom(user))
}

// RemoveTeamMember handles DELETE /api/v1/team/{id}.
func (h *UsersHandler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}

	selfID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}
	if memberID == selfID {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Cannot remove your own account", nil, h.env)
		return
	}

	if err := h.users.RemoveTeamMember(r.Context(), memberID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
