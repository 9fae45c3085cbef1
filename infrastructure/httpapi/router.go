// Package httpapi mounts the HTTP surface: the realtime upgrade
// endpoint, the conversation retrieval API consumed at session start,
// health, and metrics.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/auth"
	"pulse/services"
)

func NewRouter(log *slog.Logger, verifier *auth.Verifier,
	service services.ILifecycleService, realtime http.Handler,
	registry *prometheus.Registry) http.Handler {

	handler := &ConversationHandler{log: log, service: service}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Handle("/ws", realtime)

	r.Group(func(r chi.Router) {
		r.Use(requireIdentity(verifier))
		r.Get("/api/messages/{peer}", handler.GetConversation)
	})

	return r
}
