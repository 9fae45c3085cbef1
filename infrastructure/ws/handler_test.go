package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"pulse/auth"
	"pulse/domain"
	"pulse/observability"
	"pulse/repositories"
	"pulse/runtime"
	"pulse/services"
)

const testSecret = "unit_test_signing_secret_2026"

func newRealtimeServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	store := repositories.NewMessageRepository(db, log)
	relay := runtime.NewRelay(log)
	presence := runtime.NewPresence(log)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	service := services.NewLifecycleService(log, store, relay, metrics)
	verifier := auth.NewVerifier(testSecret)

	server := httptest.NewServer(NewHandler(log, verifier, service, presence, relay, metrics, 64))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, identity domain.Identity) *websocket.Conn {
	t.Helper()
	token, err := auth.GenerateToken(identity, testSecret, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitFor reads frames until one carries the wanted event name.
// Other events (presence broadcasts in particular) are skipped.
func waitFor(t *testing.T, conn *websocket.Conn, eventName string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var env envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", eventName)
		if env.Event == eventName {
			return env.Data
		}
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, eventName string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(envelope{Event: eventName, Data: data}))
}

func TestHandler_Rejects_Missing_Token(t *testing.T) {
	req := require.New(t)
	server := newRealtimeServer(t)

	response, err := http.Get(server.URL)
	req.NoError(err)
	defer response.Body.Close()
	req.Equal(http.StatusUnauthorized, response.StatusCode)
}

func TestHandler_Announces_Online_Users(t *testing.T) {
	req := require.New(t)
	server := newRealtimeServer(t)

	alice := dial(t, server, "alice")
	data := waitFor(t, alice, "online-users")

	var online []string
	req.NoError(json.Unmarshal(data, &online))
	req.Contains(online, "alice")
}

func TestHandler_Full_Message_Round_Trip(t *testing.T) {
	req := require.New(t)
	server := newRealtimeServer(t)

	alice := dial(t, server, "alice")
	bob := dial(t, server, "bob")

	// A sends with a provisional identifier
	sendFrame(t, alice, "send-message", map[string]any{
		"_id":     "p1",
		"to":      "bob",
		"content": "hi",
	})

	// A gets the provisional -> durable confirmation
	var confirmation struct {
		TempID string `json:"tempId"`
		RealID string `json:"realId"`
	}
	req.NoError(json.Unmarshal(waitFor(t, alice, "message-sent-confirmation"), &confirmation))
	req.Equal("p1", confirmation.TempID)
	req.NotEmpty(confirmation.RealID)

	// B gets the live message, undelivered and unseen
	var received map[string]any
	req.NoError(json.Unmarshal(waitFor(t, bob, "receive-message"), &received))
	req.Equal(confirmation.RealID, received["_id"])
	req.Equal("alice", received["from"])
	req.Equal("hi", received["content"])
	req.Equal(false, received["delivered"])

	// B acks delivery; A watches the status flip
	sendFrame(t, bob, "message-delivered", map[string]any{"messageId": confirmation.RealID})
	var status map[string]any
	req.NoError(json.Unmarshal(waitFor(t, alice, "message-status-updated"), &status))
	req.Equal(confirmation.RealID, status["messageId"])
	req.Equal(true, status["delivered"])

	// B views it; A receives the seen set
	sendFrame(t, bob, "message-seen", map[string]any{"messageId": confirmation.RealID})
	req.NoError(json.Unmarshal(waitFor(t, alice, "message-status-updated"), &status))
	req.Equal([]any{"bob"}, status["seenBy"])
}

func TestHandler_Rejection_Reaches_Only_The_Offender(t *testing.T) {
	req := require.New(t)
	server := newRealtimeServer(t)

	alice := dial(t, server, "alice")

	// An unknown event name earns an explicit error frame
	sendFrame(t, alice, "no-such-event", map[string]any{})

	var rejection struct {
		Code   string `json:"code"`
		Reason string `json:"reason"`
	}
	req.NoError(json.Unmarshal(waitFor(t, alice, "error"), &rejection))
	req.Equal("VALIDATION", rejection.Code)
}

func TestHandler_Typing_Forwarded_To_Peer(t *testing.T) {
	req := require.New(t)
	server := newRealtimeServer(t)

	alice := dial(t, server, "alice")
	bob := dial(t, server, "bob")

	sendFrame(t, alice, "typing", map[string]any{"to": "bob"})

	var payload struct {
		From string `json:"from"`
	}
	req.NoError(json.Unmarshal(waitFor(t, bob, "typing"), &payload))
	req.Equal("alice", payload.From)
}

func TestHandler_Group_Join_And_Send(t *testing.T) {
	req := require.New(t)
	server := newRealtimeServer(t)

	alice := dial(t, server, "alice")
	bob := dial(t, server, "bob")

	sendFrame(t, alice, "join-group", map[string]any{"groupId": "group-42"})
	sendFrame(t, bob, "join-group", map[string]any{"groupId": "group-42"})

	// The join has no acknowledgement; give the server a beat before
	// publishing into the group.
	time.Sleep(100 * time.Millisecond)

	sendFrame(t, alice, "send-group-message", map[string]any{
		"_id":     "p1",
		"groupId": "group-42",
		"content": "hello group",
	})

	var received map[string]any
	req.NoError(json.Unmarshal(waitFor(t, bob, "receive-group-message"), &received))
	req.Equal("group-42", received["to"])
	req.Equal("hello group", received["content"])
}
