package auth

import (
	"context"
	"net/http"

	"family-media/internal/metrics"

	"github.com/goccy/go-json"
)

type contextKey struct{}

// WithDecision returns a copy of ctx carrying d.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

// FromContext returns the decision stored by Middleware. Requests that
// never passed through it are unauthorized.
func FromContext(ctx context.Context) Decision {
	d, _ := ctx.Value(contextKey{}).(Decision)
	return d
}

// Middleware authorizes every request once and stores the decision in the
// request context. It never rejects; use Require for that.
func Middleware(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := a.Authorize(r)
			next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), d)))
		})
	}
}

// Require wraps next so it only runs for callers holding at least role.
// Unauthenticated callers get 401, authenticated ones without the role 403.
func Require(role Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := FromContext(r.Context())
		switch {
		case !d.Authorized:
			metrics.AuthDecisionsTotal.WithLabelValues("unauthorized").Inc()
			deny(w, http.StatusUnauthorized, "authentication required")
		case !d.Role.Allows(role):
			metrics.AuthDecisionsTotal.WithLabelValues("forbidden").Inc()
			deny(w, http.StatusForbidden, "insufficient permissions: requires "+role.String()+", have "+d.Role.String())
		default:
			metrics.AuthDecisionsTotal.WithLabelValues("allowed").Inc()
			next(w, r)
		}
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
