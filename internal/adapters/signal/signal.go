package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller bridges WebSocket seats to the room: one read pump per
// connection, strict per-kind payload validation, disconnect notification.
type Controller struct {
	Room    *app.Room
	cfg     *config.Config
	limiter *rateLimiter
}

func NewController(room *app.Room, cfg *config.Config) *Controller {
	return &Controller{
		Room:    room,
		cfg:     cfg,
		limiter: newRateLimiter(30, time.Second),
	}
}

// wsSignalConn implements core.SignalConnection over gorilla/websocket.
type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSSignalConn(conn *websocket.Conn) *wsSignalConn {
	return &wsSignalConn{
		conn: conn,
		send: make(chan core.Frame, 32),
	}
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// CloseWithReason sends a close control frame carrying the reason so the
// client can tell an eviction from a network drop, then closes.
func (c *wsSignalConn) CloseWithReason(reason core.CloseReason) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, string(reason))
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.Close()
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// credentialFrom extracts the signed credential from the request: "token"
// query parameter first, then a "token" cookie, then an Authorization
// bearer header. Empty when the seat carries none.
func credentialFrom(c *gin.Context) string {
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	if tok, err := c.Cookie("token"); err == nil && tok != "" {
		return tok
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// HandleSignal upgrades the seat to a WebSocket and admits the participant.
// A missing or bad credential means anonymous admission, never a refused
// upgrade.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := domain.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := newWSSignalConn(ws)
	ctl.Room.Admit(sid, conn, credentialFrom(c))

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
		ctl.Room.Disconnect(sid, conn)
	}()
}
