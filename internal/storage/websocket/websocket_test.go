package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firereach/ladderreach/pkg/core"
	"github.com/firereach/ladderreach/pkg/streaming"
)

var acked = map[string]bool{
	streaming.TypeStartSession:    true,
	streaming.TypeEndSession:      true,
	streaming.TypeClearStatistics: true,
}

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages and the secret header, and acks the message
// types that expect one.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.Header.Get(secretHeader))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if acked[env.Type] {
				data, _ := json.Marshal(AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []Envelope
	secret   string
}

func (m *messageLog) add(env Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newBackend(t *testing.T, srv *httptest.Server) *Backend {
	t.Helper()
	b := New(Config{URL: wsURL(srv), Secret: "hunter2"}, nil)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	require.NoError(t, b.StartSession(&core.Session{ID: "s1", TruckID: "Aerial_Ladder"}))
	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[len(msgs)-1].Type)

	var start streaming.StartSessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "s1", start.Session.ID)
	assert.Equal(t, "hunter2", ml.secret)
}

func TestFireAndForgetMessages(t *testing.T) {
	ctx := context.Background()
	srv, ml := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	require.NoError(t, b.StartSession(&core.Session{ID: "s1"}))
	require.NoError(t, b.AddStatistic(ctx, &core.VisibilityStatistic{ID: 1, SessionID: "s1", VisibleCount: 3}))
	require.NoError(t, b.RecordResult(ctx, &core.AnalysisResult{SequenceID: 2}))
	require.NoError(t, b.Add(ctx, core.Graphic{Role: core.RoleVisible, Kind: core.KindLine}))
	require.NoError(t, b.RemoveAll(ctx, core.ResultRoles...))
	require.NoError(t, b.PublishEvent(core.Event{Type: core.EventResultsCleared}))
	require.NoError(t, b.ClearStatistics(ctx, "s1"))
	require.NoError(t, b.EndSession())

	assert.Eventually(t, func() bool { return ml.count(streaming.TypeEvent) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, ml.count(streaming.TypeStartSession))
	assert.Equal(t, 1, ml.count(streaming.TypeEndSession))
	assert.Equal(t, 1, ml.count(streaming.TypeAddStatistic))
	assert.Equal(t, 1, ml.count(streaming.TypeAnalysisResult))
	assert.Equal(t, 1, ml.count(streaming.TypeAddGraphics))
	assert.Equal(t, 1, ml.count(streaming.TypeRemoveGraphics))
	assert.Equal(t, 1, ml.count(streaming.TypeClearStatistics))
}

func TestEmptyGraphicsCallsSendNothing(t *testing.T) {
	ctx := context.Background()
	srv, ml := testServer(t)
	defer srv.Close()
	b := newBackend(t, srv)

	require.NoError(t, b.Add(ctx))
	require.NoError(t, b.RemoveAll(ctx))
	require.NoError(t, b.StartSession(&core.Session{ID: "s"}))

	assert.Zero(t, ml.count(streaming.TypeAddGraphics))
	assert.Zero(t, ml.count(streaming.TypeRemoveGraphics))
}

func TestClearStatistics_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := ws.Upgrader{}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		// never ack
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	b := newBackend(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := b.ClearStatistics(ctx, "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/stream"}, nil)
	assert.Error(t, b.Init())
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeRemoveGraphics, streaming.RemoveGraphicsPayload{
		Roles: []core.StyleRole{core.RoleJackSpread},
	})
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeRemoveGraphics, decoded.Type)

	var p streaming.RemoveGraphicsPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &p))
	assert.Equal(t, []core.StyleRole{core.RoleJackSpread}, p.Roles)
}
