package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/auth"
	"github.com/qrbase/server/internal/domain/users"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *stubUsersRepo, *auth.JWTManager) {
	t.Helper()
	repo := newStubUsersRepo()
	svc := users.NewService(repo, zerolog.Nop())
	manager := auth.NewJWTManager("test-secret", time.Hour, "qrbase-test")
	return NewAuthHandler(svc, manager, zerolog.Nop(), testEnv), repo, manager
}

func TestRegisterSuccess(t *testing.T) {
	handler, _, manager := newAuthHandler(t)

	body := `{"first_name":"Ana","last_name":"Reyes","email":"ana@example.com","password":"s3cret-pass","role":"organizer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.Register(res, req)

	require.Equal(t, http.StatusCreated, res.Code)

	var payload authResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)
	require.Equal(t, "ana@example.com", payload.User.Email)
	require.Equal(t, "organizer", payload.User.Role)

	claims, err := manager.Validate(payload.Token)
	require.NoError(t, err)
	require.Equal(t, "organizer", claims.Role)
}

func TestRegisterValidationErrors(t *testing.T) {
	handler, _, _ := newAuthHandler(t)

	body := `{"first_name":"Ana","last_name":"Reyes","email":"not-an-email","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.Register(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))

	var details problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
	require.Equal(t, problem.TypeValidation, details.Type)
	require.Contains(t, details.Errors, "email")
	require.Contains(t, details.Errors, "password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	handler, repo, _ := newAuthHandler(t)
	repo.add(&users.User{ID: 1, Email: "ana@example.com", Role: "participant"})

	body := `{"first_name":"Ana","last_name":"Reyes","email":"ana@example.com","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.Register(res, req)

	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))

	var details problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
	require.Equal(t, problem.TypeConflict, details.Type)
}

func TestRegisterMalformedBody(t *testing.T) {
	handler, _, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader("{not json"))
	res := httptest.NewRecorder()
	handler.Register(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginSuccess(t *testing.T) {
	handler, repo, _ := newAuthHandler(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.add(&users.User{ID: 7, FirstName: "Ana", Email: "ana@example.com", PasswordHash: string(hash), Role: "organizer"})

	body := `{"email":"ana@example.com","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.Login(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var payload authResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)
	require.Equal(t, int64(7), payload.User.ID)
}

func TestLoginBadCredentials(t *testing.T) {
	handler, repo, _ := newAuthHandler(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.add(&users.User{ID: 7, Email: "ana@example.com", PasswordHash: string(hash), Role: "organizer"})

	for _, body := range []string{
		`{"email":"ana@example.com","password":"wrong-pass"}`,
		`{"email":"nobody@example.com","password":"s3cret-pass"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(body))
		res := httptest.NewRecorder()
		handler.Login(res, req)

		require.Equal(t, http.StatusUnauthorized, res.Code)

		var details problem.ProblemDetails
		require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
		require.Equal(t, "Invalid credentials", details.Title)
	}
}
