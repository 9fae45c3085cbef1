package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"pulse/auth"
	"pulse/domain"
)

const testSecret = "unit_test_signing_secret_2026"

// fakeLifecycle serves canned conversations; the realtime operations
// are never reached from the REST surface.
type fakeLifecycle struct {
	messages []domain.Message
	err      error
}

func (f *fakeLifecycle) Send(context.Context, domain.SendCommand) (domain.Message, error) {
	return domain.Message{}, nil
}
func (f *fakeLifecycle) MarkDelivered(context.Context, domain.DeliverCommand) error { return nil }
func (f *fakeLifecycle) MarkSeen(context.Context, domain.SeenCommand) error         { return nil }
func (f *fakeLifecycle) Edit(context.Context, domain.EditCommand) (domain.Message, error) {
	return domain.Message{}, nil
}
func (f *fakeLifecycle) Delete(context.Context, domain.DeleteCommand) error { return nil }
func (f *fakeLifecycle) React(context.Context, domain.ReactCommand) error   { return nil }
func (f *fakeLifecycle) Typing(context.Context, domain.TypingCommand)       {}
func (f *fakeLifecycle) Conversation(_ context.Context, a, b domain.Identity) ([]domain.Message, error) {
	return f.messages, f.err
}

func newTestRouter(t *testing.T, service *fakeLifecycle) http.Handler {
	t.Helper()
	verifier := auth.NewVerifier(testSecret)
	return NewRouter(slog.Default(), verifier, service,
		http.NotFoundHandler(), prometheus.NewRegistry())
}

func TestGetConversation_Returns_Wire_Shape(t *testing.T) {
	req := require.New(t)
	id := uuid.New()
	service := &fakeLifecycle{messages: []domain.Message{{
		ID:        id,
		From:      "alice",
		To:        "bob",
		Content:   "hi",
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Delivered: true,
		SeenBy:    []domain.Identity{"bob"},
	}}}
	router := newTestRouter(t, service)

	token, err := auth.GenerateToken("alice", testSecret, time.Hour)
	req.NoError(err)

	request := httptest.NewRequest(http.MethodGet, "/api/messages/bob", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	req.Equal(http.StatusOK, recorder.Code)

	var body []map[string]any
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &body))
	req.Len(body, 1)
	req.Equal(id.String(), body[0]["_id"])
	req.Equal("alice", body[0]["from"])
	req.Equal(true, body[0]["delivered"])
	req.Equal([]any{"bob"}, body[0]["seenBy"])
}

func TestGetConversation_Requires_Token(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t, &fakeLifecycle{})

	request := httptest.NewRequest(http.MethodGet, "/api/messages/bob", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestGetConversation_Rejects_Bad_Token(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t, &fakeLifecycle{})

	request := httptest.NewRequest(http.MethodGet, "/api/messages/bob", nil)
	request.Header.Set("Authorization", "Bearer not-a-token")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestHealthz(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t, &fakeLifecycle{})

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	req.Equal(http.StatusOK, recorder.Code)
}
