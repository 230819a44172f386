package middleware

import (
	"context"
	"net/http"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/auth"
)

const claimsContextKey contextKey = "auth_claims"

// Authenticate validates the bearer token and stores its claims in the
// request context. Staff tokens are bumped to the staff rate tier.
func Authenticate(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication required", err, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid or expired token", err, env)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			if auth.IsStaff(claims.Role) {
				ctx = WithRateLimitTier(ctx, TierStaff)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a handler on the caller's role holding the
// permission. Must sit inside Authenticate.
func RequirePermission(perm auth.Permission, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication required", nil, env)
				return
			}
			if !auth.Can(claims.Role, perm) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims returns a context carrying the given claims. Authenticate
// uses it after token validation.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil outside
// the Authenticate middleware.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}
