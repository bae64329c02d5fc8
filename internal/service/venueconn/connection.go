package venueconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/krobus00/clob-gateway/internal/constant"
	"github.com/krobus00/clob-gateway/internal/entity"
)

const pingInterval = 10 * time.Second

// CredentialSource exposes the live credential triplet.
// Satisfied by *credential.Store.
type CredentialSource interface {
	Get() (entity.Credentials, bool)
}

// FrameHandler receives every well-formed inbound venue frame.
type FrameHandler func(payload json.RawMessage)

type Config struct {
	URL             string
	PollInterval    time.Duration
	BackoffInterval time.Duration

	// OnTransition observes every state change, used for status reporting
	// and by tests asserting the reconnect sequence. May be nil.
	OnTransition func(state entity.ConnectionState)
}

type authFrame struct {
	Type    string             `json:"type"`
	Channel string             `json:"channel"`
	Auth    entity.Credentials `json:"auth"`
}

// Connection owns the single upstream streaming session. It is the only
// writer of the connection state; everything else reads snapshots.
type Connection struct {
	cfg     Config
	creds   CredentialSource
	handler FrameHandler
	dialer  *websocket.Dialer

	mu    sync.RWMutex
	state entity.ConnectionState
}

func NewConnection(cfg Config, creds CredentialSource) *Connection {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BackoffInterval <= 0 {
		cfg.BackoffInterval = 5 * time.Second
	}

	return &Connection{
		cfg:    cfg,
		creds:  creds,
		dialer: websocket.DefaultDialer,
		state:  entity.ConnectionState{Status: entity.ConnStatusUninitialized},
	}
}

// SetFrameHandler wires the downstream consumer. Must be called before Run.
func (c *Connection) SetFrameHandler(handler FrameHandler) {
	c.handler = handler
}

// State snapshots the connection state.
func (c *Connection) State() entity.ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Status snapshots the current lifecycle status.
func (c *Connection) Status() entity.ConnStatus {
	return c.State().Status
}

// Connected reports whether the session is live and authenticated.
func (c *Connection) Connected() bool {
	return c.State().Streaming()
}

// Run drives the reconnect loop until ctx is cancelled. Connection errors
// are never fatal: every failure lands in Backoff and is retried after the
// fixed interval.
func (c *Connection) Run(ctx context.Context) {
	c.setState(entity.ConnStatusWaitingForCredentials, nil)

	for {
		if ctx.Err() != nil {
			return
		}

		creds, ok := c.creds.Get()
		if !ok {
			logrus.Debug("no credentials available, waiting")
			c.setState(entity.ConnStatusWaitingForCredentials, nil)
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return
			}
			continue
		}

		err := c.streamOnce(ctx, creds)
		if ctx.Err() != nil {
			return
		}

		logrus.Warnf("venue stream closed: %v", err)
		c.setState(entity.ConnStatusBackoff, err)
		if !sleepCtx(ctx, c.cfg.BackoffInterval) {
			return
		}
	}
}

// streamOnce runs a single session: dial, authenticate, then read until the
// transport fails. Malformed frames are logged and skipped, only transport
// errors end the session.
func (c *Connection) streamOnce(ctx context.Context, creds entity.Credentials) error {
	c.setState(entity.ConnStatusConnecting, nil)
	logrus.Infof("connecting to %s", c.cfg.URL)

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial venue stream: %w", err)
	}

	c.setState(entity.ConnStatusAuthenticating, nil)

	payload, err := json.Marshal(authFrame{
		Type:    "subscribe",
		Channel: constant.UserStreamChannel,
		Auth:    creds,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("encode auth frame: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		conn.Close()
		return fmt.Errorf("send auth frame: %w", err)
	}

	// the venue sends no explicit auth ack, the first inbound frame is
	// assumed authenticated
	c.setState(entity.ConnStatusStreaming, nil)
	logrus.Info("venue stream established")

	conn.SetPongHandler(func(string) error {
		return nil
	})

	stopPing := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					logrus.Error(err)
					return
				}
			case <-ctx.Done():
				return
			case <-stopPing:
				return
			}
		}
	}()

	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-ctxDone:
		}
	}()

	defer func() {
		close(stopPing)
		close(ctxDone)
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read venue stream: %w", err)
		}

		if !json.Valid(message) {
			logrus.Warnf("discarding malformed venue frame: %.128s", message)
			continue
		}

		if c.handler != nil {
			c.handler(message)
		}
	}
}

func (c *Connection) setState(status entity.ConnStatus, err error) {
	state := entity.ConnectionState{Status: status}
	if err != nil {
		state.LastError = err.Error()
	}

	c.mu.Lock()
	prev := c.state.Status
	c.state = state
	c.mu.Unlock()

	if prev != status {
		logrus.WithFields(logrus.Fields{
			"from": prev,
			"to":   status,
		}).Info("venue connection state changed")
	}

	if c.cfg.OnTransition != nil {
		c.cfg.OnTransition(state)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
