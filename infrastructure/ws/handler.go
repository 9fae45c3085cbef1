package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"pulse/auth"
	"pulse/contract"
	"pulse/observability"
	"pulse/services"
	"pulse/sink"
)

// Handler upgrades an HTTP request to the realtime protocol. The
// identity of the connection comes from the verified token, never from
// a client-chosen field — the join is implicit in a successful
// upgrade.
type Handler struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	verifier   *auth.Verifier
	service    services.ILifecycleService
	presence   contract.IPresence
	relay      contract.IRelay
	metrics    *observability.Metrics
	bufferSize int
}

func NewHandler(log *slog.Logger, verifier *auth.Verifier,
	service services.ILifecycleService, presence contract.IPresence,
	relay contract.IRelay, metrics *observability.Metrics, bufferSize int) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy belongs to the deployment proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		service:    service,
		presence:   presence,
		relay:      relay,
		metrics:    metrics,
		bufferSize: bufferSize,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Verify(bearerToken(r))
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	inbox := sink.NewSessionSink(h.bufferSize)
	inbox.OnDrop = h.metrics.DroppedEvents.Inc

	s := &session{
		log:      h.log,
		conn:     conn,
		identity: identity,
		sink:     inbox,
		service:  h.service,
		presence: h.presence,
		relay:    h.relay,
		metrics:  h.metrics,
	}
	h.log.Info("connection attached", "identity", identity)
	s.run(r.Context())
	h.log.Info("connection detached", "identity", identity)
}

// bearerToken accepts the token either as an Authorization header or
// as a query parameter, the latter because browser WebSocket clients
// cannot set headers on the upgrade request.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
