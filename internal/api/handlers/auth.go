package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/auth"
	"github.com/qrbase/server/internal/domain/users"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	users  *users.Service
	jwt    *auth.JWTManager
	logger zerolog.Logger
	env    string
}

func NewAuthHandler(usersService *users.Service, jwtManager *auth.JWTManager, logger zerolog.Logger, env string) *AuthHandler {
	return &AuthHandler{
		users:  usersService,
		jwt:    jwtManager,
		logger: logger.With().Str("handler", "auth").Logger(),
		env:    env,
	}
}

type registerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Role      string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      userInfo `json:"user"`
}

type userInfo struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	ContactNumber string `json:"contact_number,omitempty"`
}

func userInfoFrom(u *users.User) userInfo {
	return userInfo{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		Role:          u.Role,
		ContactNumber: u.ContactNumber,
	}
}

// Register handles POST /api/v1/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	user, err := h.users.Register(r.Context(), users.RegisterParams{
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

	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles POST /api/v1/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.env)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrBadCredential) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", nil, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *users.User) {
	token, err := h.jwt.Generate(user.ID, user.Role)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("token generation failed")
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		return
	}

	writeJSON(w, status, authResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwt.Expiry()).UTC().Format(time.RFC3339),
		User:      userInfoFrom(user),
	})
}
