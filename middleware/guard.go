package middleware

import (
	"context"
	"net/http"
	"strings"

	triauth "github.com/triauth/triauth"
	"github.com/triauth/triauth/jwt"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the validated access claims injected by [Guard],
// if the request passed through one of this package's guards.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// Guard returns middleware that rejects requests without a valid bearer
// access token and injects the claims for [ClaimsFromContext].
//
//	Docs: docs/middleware.md
func Guard(engine *triauth.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(*jwt.Claims) bool { return true })
}

// RequireStaff wraps [Guard] and additionally rejects tokens whose staff
// claim is unset.
func RequireStaff(engine *triauth.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(c *jwt.Claims) bool { return c.Staff || c.Superuser })
}

// RequireSuperuser wraps [Guard] and additionally rejects tokens whose
// superuser claim is unset.
func RequireSuperuser(engine *triauth.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(c *jwt.Claims) bool { return c.Superuser })
}

func guard(engine *triauth.Engine, allow func(*jwt.Claims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !allow(claims) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
