package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsMaxFrame     = 4 << 10
	streamDefault  = time.Second
	streamMaxEvery = 10 * time.Second
)

// wsEnvelope is the frame written to status subscribers.
type wsEnvelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// The API is served on the brewery LAN; any origin may subscribe.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Status stream
// @Description  Upgrades to a websocket and pushes {"type":"status","data":Status} every interval (?interval=2s or ?interval_ms=2000, max 10s). A failed refresh sends {"type":"error"} and the stream goes on.
// @Tags         controller
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	every := streamInterval(c.Query("interval"), c.Query("interval_ms"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(wsMaxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	closed := make(chan struct{})
	go h.discardIncoming(conn, closed)

	ctx := c.Request.Context()
	// a subscriber that cannot get a first snapshot is dropped
	if err := h.pushStatus(ctx, conn, false); err != nil {
		h.log.Infow("ws_initial_status_failed", "err", err)
		return
	}

	updates := time.NewTicker(every)
	defer updates.Stop()
	pings := time.NewTicker(wsPingPeriod)
	defer pings.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-pings.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case <-updates.C:
			if err := h.pushStatus(ctx, conn, true); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		}
	}
}

// streamInterval picks the push period from ?interval (a Go duration) or
// ?interval_ms. Values outside (0, 10s] fall back to one second.
func streamInterval(interval, intervalMS string) time.Duration {
	if d, err := time.ParseDuration(interval); err == nil && d > 0 && d <= streamMaxEvery {
		return d
	}
	if ms, err := strconv.Atoi(intervalMS); err == nil {
		if d := time.Duration(ms) * time.Millisecond; d > 0 && d <= streamMaxEvery {
			return d
		}
	}
	return streamDefault
}

// discardIncoming keeps control frames flowing and reports when the peer goes away.
func (h *Handler) discardIncoming(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

// pushStatus writes the current status. With tolerateErr a lookup failure is
// reported to the subscriber as an error frame instead of ending the stream.
func (h *Handler) pushStatus(ctx context.Context, conn *websocket.Conn, tolerateErr bool) error {
	frame := wsEnvelope{Type: "status"}
	st, err := h.services.Monitoring.GetStatus(ctx)
	if err != nil {
		h.log.Errorw("ws_get_status_failed", "err", err)
		if !tolerateErr {
			return err
		}
		frame = wsEnvelope{Type: "error", Error: errGetStatus}
	} else {
		frame.Data = st
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(frame)
}
