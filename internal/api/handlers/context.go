package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/qrbase/server/internal/api/middleware"
	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

// pathID parses a numeric path parameter, writing a validation problem
// on failure.
func pathID(w http.ResponseWriter, r *http.Request, key, env string) (int64, bool) {
	raw := strings.TrimSpace(pathParam(r, key))
	if raw == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", FieldError{Field: key, Message: "missing"}, env)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", FieldError{Field: key, Message: "must be a positive integer"}, env)
		return 0, false
	}
	return id, true
}

// callerID extracts the authenticated user id from the request context.
// Routes behind the auth middleware always have claims; a miss here
// means the route was wired without it.
func callerID(w http.ResponseWriter, r *http.Request, env string) (int64, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication required", nil, env)
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token subject", err, env)
		return 0, false
	}
	return id, true
}

func callerRole(r *http.Request) string {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	return claims.Role
}

// organizerScope returns the id used for ownership checks: admins see
// every organizer's resources, so their scope is the unchecked zero id.
func organizerScope(r *http.Request, userID int64) int64 {
	if auth.NormalizeRole(callerRole(r)) == auth.RoleAdmin {
		return 0
	}
	return userID
}
