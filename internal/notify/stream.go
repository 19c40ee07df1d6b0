package notify

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/httputil"
	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
	"github.com/allisson/resourcegateway/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one frame sent on the stream.
type Message struct {
	Type         string         `json:"type"`
	Notification map[string]any `json:"notification"`
}

// StreamHandler serves the notifications WebSocket.
type StreamHandler struct {
	store    *store.Store
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(s *store.Store, hub *Hub, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		store:  s,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Stream upgrades the request, sends the principal's stored notifications and then
// pushes new ones until the client disconnects.
//
// GET /ws/notifications?auth_token=<ws token>
func (h *StreamHandler) Stream(c *gin.Context) {
	principal, ok := identityHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer func() { _ = conn.Close() }()

	updates, cancel := h.hub.Subscribe(principal.UserID)
	defer cancel()

	logger := h.logger.With(slog.String("user_id", principal.UserID))
	logger.Debug("notifications stream opened")

	stored := h.store.Filter(Collection, func(e domain.Entity) bool {
		return e.String("user_id") == principal.UserID
	})
	for _, n := range stored {
		if err := h.write(conn, n); err != nil {
			return
		}
	}

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			logger.Debug("notifications stream closed")
			return
		case n, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, n); err != nil {
				logger.Debug("notifications stream write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, n domain.Entity) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Message{Type: "notification", Notification: n.Fields()})
}

// readPump discards client frames and reports when the connection goes away.
func (h *StreamHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// CheckOrigin replaces the same-origin check of the upgrader. It is used when CORS
// origins are configured for browser clients.
func (h *StreamHandler) CheckOrigin(allowed []string) {
	if len(allowed) == 0 {
		return
	}
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}
