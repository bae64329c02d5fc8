package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/krobus00/clob-gateway/internal/util"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 50 * time.Second
)

type wsUpgrader struct {
	upgrader websocket.Upgrader
}

func newWSUpgrader(allowedOrigins []string) wsUpgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return wsUpgrader{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}

				_, ok := allowed[strings.TrimRight(origin, "/")]
				return ok
			},
		},
	}
}

// Subscribe upgrades the request and joins the broadcast hub. The first
// message the client receives is the connection_status snapshot; afterwards
// it gets every venue frame until it disconnects or falls behind.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.wsUpgrader.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("websocket upgrade failed: %v", err)
		return
	}

	sub := h.hub.Register()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer func() {
			ticker.Stop()
			conn.Close()
		}()

		for {
			select {
			case msg, ok := <-sub.Receive():
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}

				payload, err := util.EncodePushMessage(msg)
				if err != nil {
					logrus.Errorf("encode push message: %v", err)
					continue
				}

				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// subscribers only listen; the read loop just detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Unregister(sub)
	conn.Close()
}
