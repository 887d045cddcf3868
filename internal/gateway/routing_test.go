// ABOUTME: End-to-end routing tests through the fully wired gateway
// ABOUTME: Drives customer ingress -> bus -> router -> real dedupe cache -> store

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caliber/livechat/internal/assistant"
	"github.com/caliber/livechat/internal/auth"
	"github.com/caliber/livechat/internal/bus"
	"github.com/caliber/livechat/internal/dedupe"
	"github.com/caliber/livechat/internal/presence"
	"github.com/caliber/livechat/internal/router"
	"github.com/caliber/livechat/internal/store"
)

// newWiredGateway assembles a gateway with every production collaborator real
// except the Gemini endpoint, which is served by httptest.
func newWiredGateway(t *testing.T, geminiURL string) (*Gateway, *http.ServeMux) {
	t.Helper()

	sqlStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	verifier, err := auth.NewJWTVerifier([]byte("test-secret"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := bus.NewBroadcaster(logger)
	t.Cleanup(events.Close)
	cache := dedupe.New(time.Minute, 100)
	t.Cleanup(cache.Close)
	tracker := presence.NewTracker()

	generator := assistant.NewClient(assistant.Config{
		APIKey:  "test-key",
		BaseURL: geminiURL,
		Model:   "gemini-pro",
		Timeout: 5 * time.Second,
	})

	gw := &Gateway{
		store:    sqlStore,
		presence: tracker,
		events:   events,
		dedupe:   cache,
		router:   router.New(sqlStore, tracker, generator, cache, events, logger),
		verifier: verifier,
		logger:   logger,
	}

	mux := http.NewServeMux()
	gw.registerRoutes(mux)
	return gw, mux
}

// startRouting subscribes before any message is posted, so delivery of
// subsequent publishes is guaranteed, then feeds events to the router.
func startRouting(t *testing.T, gw *Gateway) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	events, _ := gw.events.Subscribe(ctx)
	go func() {
		for event := range events {
			gw.router.Handle(ctx, event)
		}
	}()
}

func fakeGeminiServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"` + reply + `"}]}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}

func postCustomerMessage(t *testing.T, mux *http.ServeMux, customerID, text string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/"+customerID+"/messages", jsonBody(t, PostMessageRequest{Text: text}))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func countBySender(t *testing.T, s store.Store, conversationID string, sender store.Sender) int {
	t.Helper()
	messages, err := s.ListMessages(context.Background(), conversationID, 0)
	require.NoError(t, err)
	n := 0
	for _, m := range messages {
		if m.Sender == sender {
			n++
		}
	}
	return n
}

func TestRouting_FirstCustomerMessageGetsOneReply(t *testing.T) {
	gemini := fakeGeminiServer(t, "Yes, we stock size 42!")
	gw, mux := newWiredGateway(t, gemini.URL)
	startRouting(t, gw)

	// No operator heartbeat: the assistant must answer.
	postCustomerMessage(t, mux, "cust-1", "Do you have size 42?")

	require.Eventually(t, func() bool {
		return countBySender(t, gw.store, "cust-1", store.SenderAssistant) == 1
	}, 3*time.Second, 20*time.Millisecond, "first delivery must produce exactly one assistant reply")

	assert.Equal(t, 1, countBySender(t, gw.store, "cust-1", store.SenderCustomer))

	conv, err := gw.store.GetConversation(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, store.SenderAssistant, conv.LastSender)
	assert.False(t, conv.HumanActive)
}

func TestRouting_LiveOperatorSuppressesAssistant(t *testing.T) {
	gemini := fakeGeminiServer(t, "should stay silent")
	gw, mux := newWiredGateway(t, gemini.URL)
	startRouting(t, gw)

	gw.presence.Set("op-1", true)
	postCustomerMessage(t, mux, "cust-1", "I need a human")

	require.Eventually(t, func() bool {
		conv, err := gw.store.GetConversation(context.Background(), "cust-1")
		return err == nil && conv.HumanActive
	}, 3*time.Second, 20*time.Millisecond, "a live operator must claim the conversation")

	assert.Equal(t, 0, countBySender(t, gw.store, "cust-1", store.SenderAssistant))
}

func TestRouting_RedeliveredEventProducesNoSecondReply(t *testing.T) {
	gemini := fakeGeminiServer(t, "Only once.")
	gw, mux := newWiredGateway(t, gemini.URL)
	startRouting(t, gw)

	postCustomerMessage(t, mux, "cust-1", "hello?")

	require.Eventually(t, func() bool {
		return countBySender(t, gw.store, "cust-1", store.SenderAssistant) == 1
	}, 3*time.Second, 20*time.Millisecond)

	// Redeliver the same append event straight onto the bus.
	messages, err := gw.store.ListMessages(context.Background(), "cust-1", 0)
	require.NoError(t, err)
	customer := messages[0]
	gw.events.Publish(bus.MessageEvent{
		MessageID:      customer.ID,
		ConversationID: customer.ConversationID,
		Sender:         customer.Sender,
		Text:           customer.Text,
		AppendedAt:     customer.CreatedAt,
	})

	// The duplicate must be absorbed, not answered again.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, countBySender(t, gw.store, "cust-1", store.SenderAssistant))
}
