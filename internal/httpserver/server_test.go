package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramudyog/assist/internal/assistant"
	"github.com/gramudyog/assist/internal/backend"
	"github.com/gramudyog/assist/internal/events"
)

type echoQuerier struct{}

func (echoQuerier) Query(ctx context.Context, text, lang string) (assistant.Response, error) {
	if text == "fail" {
		return assistant.Response{}, errors.New("backend down")
	}
	if text == "visual" {
		return assistant.Response{
			Output:      "visual",
			FeatureType: "visual_summary",
			StructuredData: map[string]json.RawMessage{
				"visual_summary": json.RawMessage(`{"topic":"t","summary_data":{"sections":[{"title":"a"},{"title":"b"}]}}`),
			},
		}, nil
	}
	return assistant.Response{Output: "you said: " + text}, nil
}

type fakeEventsBackend struct{}

func (fakeEventsBackend) GenerateEvent(ctx context.Context, p backend.EventPrompt) (json.RawMessage, error) {
	if p.Prompt == "fail" {
		return nil, errors.New("upstream")
	}
	return json.RawMessage(`{"title":"Drafted ` + p.EventType + `"}`), nil
}

func (fakeEventsBackend) Transcribe(ctx context.Context, audio io.Reader, filename, lang string) (string, error) {
	return "spoken prompt", nil
}

func newTestServer() *Server {
	return New([]string{"*"}, Deps{
		NewSession: func(opts ...assistant.Option) *assistant.Session {
			return assistant.NewSession(echoQuerier{}, append([]assistant.Option{assistant.WithTTS(false)}, opts...)...)
		},
		Events: events.NewGenerator(fakeEventsBackend{}, nil, nil),
	})
}

func do(t *testing.T, srv *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestServer_Healthz(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestQuery_CreatesSessionAndReturnsState(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	w := do(t, srv, http.MethodPost, "/api/assistant/query", `{"text":"hello"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := w.Header().Get(HeaderSessionID)
	require.NotEmpty(t, id)

	var snap assistant.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "you said: hello", snap.Output)
	assert.Equal(t, id, snap.SessionID)

	w = do(t, srv, http.MethodGet, "/api/assistant/state", "", map[string]string{HeaderSessionID: id})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "hello", snap.Input)

	w = do(t, srv, http.MethodPost, "/api/assistant/query", `{"text":"fail"}`, map[string]string{HeaderSessionID: id})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, assistant.FeatureError, snap.FeatureType)
}

func TestQuery_Validation(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	w := do(t, srv, http.MethodPost, "/api/assistant/query", `{"text":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/assistant/query", `not-json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/api/assistant/state", "", map[string]string{HeaderSessionID: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, http.MethodGet, "/api/assistant/state", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_CreateKeyAndDelete(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	w := do(t, srv, http.MethodPost, "/api/assistant/session", `{"lang":"hi"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := w.Header().Get(HeaderSessionID)
	h := map[string]string{HeaderSessionID: id}

	w = do(t, srv, http.MethodPost, "/api/assistant/visual/key", `{"key":"ArrowRight"}`, h)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodPost, "/api/assistant/query", `{"text":"visual","lang":"en"}`, h)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/api/assistant/visual/key", `{"key":"ArrowRight"}`, h)
	require.Equal(t, http.StatusOK, w.Code)
	var snap assistant.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotNil(t, snap.Visual)
	assert.Equal(t, 1, snap.Visual.Index)

	w = do(t, srv, http.MethodDelete, "/api/assistant/session", "", h)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, srv, http.MethodGet, "/api/assistant/state", "", h)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvents_Generate(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, http.MethodPost, "/api/events/generate", `{"form":{"title":"Old","event_type":"hackathon"},"prompt":"make it fun","lang":"en"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Form  events.Form `json:"form"`
		Error string      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Drafted hackathon", out.Form.Title)

	w = do(t, srv, http.MethodPost, "/api/events/generate", `{"form":{"title":"Old"},"prompt":"fail"}`, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Old", out.Form.Title)
	assert.NotEmpty(t, out.Error)

	w = do(t, srv, http.MethodPost, "/api/events/translate", `{"form":{"title":"Old"},"lang":"hi"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebSocket_QueryPushesState(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/assistant"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil := func(match func(wsEvent) bool) wsEvent {
		t.Helper()
		for {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			var ev wsEvent
			require.NoError(t, conn.ReadJSON(&ev))
			if match(ev) {
				return ev
			}
		}
	}

	first := readUntil(func(ev wsEvent) bool { return ev.Type == "state" })
	require.NotNil(t, first.State)
	assert.NotEmpty(t, first.State.SessionID)

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "query", Text: "namaste"}))
	ev := readUntil(func(ev wsEvent) bool { return ev.State != nil && ev.State.Output != "" })
	assert.Equal(t, "you said: namaste", ev.State.Output)

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "bogus"}))
	ev = readUntil(func(ev wsEvent) bool { return ev.Type == "error" })
	assert.Contains(t, ev.Error, "unknown command")

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "listen"}))
	ev = readUntil(func(ev wsEvent) bool { return ev.State != nil && ev.State.Notice != "" })
	assert.Contains(t, ev.State.Notice, "not supported")
}

func TestOriginAllowed(t *testing.T) {
	s := &Server{origins: []string{"https://gramudyog.in"}}
	assert.True(t, s.originAllowed(""))
	assert.True(t, s.originAllowed("https://GramUdyog.in"))
	assert.False(t, s.originAllowed("https://evil.example"))
}

func TestSessions_IdleRESTSessionsAreEvicted(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return clock }

	stale := do(t, srv, http.MethodPost, "/api/assistant/query", `{"text":"one"}`, nil).Header().Get(HeaderSessionID)
	active := do(t, srv, http.MethodPost, "/api/assistant/query", `{"text":"two"}`, nil).Header().Get(HeaderSessionID)
	require.NotEmpty(t, stale)
	require.NotEmpty(t, active)

	clock = clock.Add(DefaultIdleTTL - time.Minute)
	w := do(t, srv, http.MethodGet, "/api/assistant/state", "", map[string]string{HeaderSessionID: active})
	require.Equal(t, http.StatusOK, w.Code)

	clock = clock.Add(2 * time.Minute)
	fresh := do(t, srv, http.MethodPost, "/api/assistant/query", `{"text":"three"}`, nil).Header().Get(HeaderSessionID)
	require.NotEmpty(t, fresh)

	w = do(t, srv, http.MethodGet, "/api/assistant/state", "", map[string]string{HeaderSessionID: stale})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, srv, http.MethodGet, "/api/assistant/state", "", map[string]string{HeaderSessionID: active})
	assert.Equal(t, http.StatusOK, w.Code)

	srv.mu.Lock()
	assert.Len(t, srv.sessions, 2)
	srv.mu.Unlock()
}
