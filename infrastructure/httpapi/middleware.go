package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pulse/auth"
	"pulse/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// requireIdentity verifies the bearer token and injects the certified
// identity into the request context. The handlers trust it completely.
func requireIdentity(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "authorization token is missing", http.StatusUnauthorized)
				return
			}
			identity, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

// identityFrom returns the identity placed by requireIdentity.
func identityFrom(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(identityKey).(domain.Identity)
	return identity
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}
