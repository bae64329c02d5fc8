package venueconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krobus00/clob-gateway/internal/entity"
)

type stubCreds struct {
	mu    sync.Mutex
	creds entity.Credentials
	ok    bool
}

func (s *stubCreds) Get() (entity.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.creds, s.ok
}

func (s *stubCreds) set(creds entity.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = creds
	s.ok = true
}

type venueStreamServer struct {
	srv        *httptest.Server
	authFrames chan []byte
	conns      chan *websocket.Conn
}

func newVenueStreamServer(t *testing.T) *venueStreamServer {
	t.Helper()

	vs := &venueStreamServer{
		authFrames: make(chan []byte, 8),
		conns:      make(chan *websocket.Conn, 8),
	}

	upgrader := websocket.Upgrader{}
	vs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		_, auth, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return
		}

		vs.authFrames <- auth
		vs.conns <- conn
	}))

	t.Cleanup(vs.srv.Close)

	return vs
}

func (vs *venueStreamServer) url() string {
	return "ws" + strings.TrimPrefix(vs.srv.URL, "http")
}

type stateRecorder struct {
	mu     sync.Mutex
	states []entity.ConnStatus
}

func (r *stateRecorder) record(state entity.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.states) == 0 || r.states[len(r.states)-1] != state.Status {
		r.states = append(r.states, state.Status)
	}
}

func (r *stateRecorder) snapshot() []entity.ConnStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]entity.ConnStatus(nil), r.states...)
}

func startConnection(t *testing.T, conn *Connection) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		conn.Run(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("connection did not stop after cancellation")
		}
	})

	return cancel
}

func TestWaitsUntilCredentialsAvailable(t *testing.T) {
	vs := newVenueStreamServer(t)
	creds := &stubCreds{}

	conn := NewConnection(Config{
		URL:             vs.url(),
		PollInterval:    10 * time.Millisecond,
		BackoffInterval: 10 * time.Millisecond,
	}, creds)

	startConnection(t, conn)

	require.Eventually(t, func() bool {
		return conn.Status() == entity.ConnStatusWaitingForCredentials
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, entity.ConnStatusWaitingForCredentials, conn.Status())
	assert.False(t, conn.Connected())

	creds.set(entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"})

	require.Eventually(t, conn.Connected, time.Second, 5*time.Millisecond)

	var auth struct {
		Type    string             `json:"type"`
		Channel string             `json:"channel"`
		Auth    entity.Credentials `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(<-vs.authFrames, &auth))
	assert.Equal(t, "subscribe", auth.Type)
	assert.Equal(t, "user", auth.Channel)
	assert.Equal(t, entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"}, auth.Auth)
}

func TestMalformedFrameKeepsStreaming(t *testing.T) {
	vs := newVenueStreamServer(t)
	creds := &stubCreds{}
	creds.set(entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"})

	conn := NewConnection(Config{
		URL:             vs.url(),
		PollInterval:    10 * time.Millisecond,
		BackoffInterval: 10 * time.Millisecond,
	}, creds)

	received := make(chan json.RawMessage, 8)
	conn.SetFrameHandler(func(payload json.RawMessage) {
		received <- payload
	})

	startConnection(t, conn)

	require.Eventually(t, conn.Connected, time.Second, 5*time.Millisecond)
	upstream := <-vs.conns

	require.NoError(t, upstream.WriteMessage(websocket.TextMessage, []byte("not json at all")))
	require.NoError(t, upstream.WriteMessage(websocket.TextMessage, []byte(`{"type":"order","id":"1"}`)))

	select {
	case frame := <-received:
		assert.JSONEq(t, `{"type":"order","id":"1"}`, string(frame))
	case <-time.After(time.Second):
		t.Fatal("expected the well-formed frame to be forwarded")
	}

	assert.Empty(t, received)
	assert.Equal(t, entity.ConnStatusStreaming, conn.Status())
}

func TestReconnectsAfterTransportClosure(t *testing.T) {
	vs := newVenueStreamServer(t)
	creds := &stubCreds{}
	creds.set(entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"})

	recorder := &stateRecorder{}
	conn := NewConnection(Config{
		URL:             vs.url(),
		PollInterval:    10 * time.Millisecond,
		BackoffInterval: 20 * time.Millisecond,
		OnTransition:    recorder.record,
	}, creds)

	startConnection(t, conn)

	require.Eventually(t, conn.Connected, time.Second, 5*time.Millisecond)

	upstream := <-vs.conns
	require.NoError(t, upstream.Close())

	require.Eventually(t, func() bool {
		return len(vs.conns) > 0 && conn.Connected()
	}, time.Second, 5*time.Millisecond)

	states := recorder.snapshot()
	idx := -1
	for i, s := range states {
		if s == entity.ConnStatusBackoff {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 1, "expected a backoff transition, got %v", states)
	assert.Equal(t, entity.ConnStatusStreaming, states[idx-1])
	require.Greater(t, len(states), idx+2, "expected recovery after backoff, got %v", states)
	assert.Equal(t, entity.ConnStatusConnecting, states[idx+1])
	assert.Contains(t, states[idx+1:], entity.ConnStatusStreaming)

	state := conn.State()
	assert.Empty(t, state.LastError)
	assert.True(t, state.Streaming())
}

func TestRunStopsOnCancellation(t *testing.T) {
	vs := newVenueStreamServer(t)
	creds := &stubCreds{}
	creds.set(entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"})

	conn := NewConnection(Config{
		URL:             vs.url(),
		PollInterval:    10 * time.Millisecond,
		BackoffInterval: 10 * time.Millisecond,
	}, creds)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		conn.Run(ctx)
		close(done)
	}()

	require.Eventually(t, conn.Connected, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
