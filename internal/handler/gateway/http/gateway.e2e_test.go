package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krobus00/clob-gateway/internal/entity"
	"github.com/krobus00/clob-gateway/internal/repository"
	"github.com/krobus00/clob-gateway/internal/service/credential"
	"github.com/krobus00/clob-gateway/internal/service/hub"
	"github.com/krobus00/clob-gateway/internal/service/order"
	"github.com/krobus00/clob-gateway/internal/service/venueconn"
	"github.com/krobus00/clob-gateway/internal/util"
)

// Exercises the whole path the way the gateway wires it at startup:
// credential rotation persists the triplet, the venue connection
// authenticates against a stub venue stream, and a subscriber joining after
// that point immediately observes connected=true and then live frames.
func TestEndToEndStreamingToSubscriber(t *testing.T) {
	upstreamConns := make(chan *websocket.Conn, 4)
	upgrader := websocket.Upgrader{}
	venueWS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
		upstreamConns <- conn
	}))
	defer venueWS.Close()

	venue := &stubVenue{creds: entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"}}

	envPath := filepath.Join(t.TempDir(), ".env")
	repo := repository.NewEnvFileRepository(envPath)
	credStore := credential.NewStore(venue, repo)

	_, err := credStore.Acquire(context.Background())
	require.NoError(t, err)

	entries, err := repo.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "k", entries["POLY_API_KEY"])

	venueConnection := venueconn.NewConnection(venueconn.Config{
		URL:             "ws" + strings.TrimPrefix(venueWS.URL, "http"),
		PollInterval:    10 * time.Millisecond,
		BackoffInterval: 10 * time.Millisecond,
	}, credStore)

	eventHub := hub.NewHub(venueConnection, 8)
	venueConnection.SetFrameHandler(func(payload json.RawMessage) {
		eventHub.Broadcast(util.NewUserUpdateMessage(payload))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go venueConnection.Run(ctx)

	require.Eventually(t, venueConnection.Connected, 2*time.Second, 5*time.Millisecond)

	handler := NewGatewayHTTPHandler(credStore, order.NewGateway(venue), venue, eventHub, venueConnection, nil)
	mux := http.NewServeMux()
	handler.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer eventHub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, first, err := client.ReadMessage()
	require.NoError(t, err)

	var msg entity.PushMessage
	require.NoError(t, json.Unmarshal(first, &msg))
	assert.Equal(t, "connection_status", msg.Event)
	assert.JSONEq(t, `{"connected":true}`, string(msg.Data))

	upstream := <-upstreamConns
	require.NoError(t, upstream.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"order","status":"MATCHED"}`)))

	_, second, err := client.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(second, &msg))
	assert.Equal(t, "user_update", msg.Event)
	assert.JSONEq(t, `{"event_type":"order","status":"MATCHED"}`, string(msg.Data))
}
