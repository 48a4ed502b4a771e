package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/hub"
	"github.com/lautaromei/wpbb10/internal/session"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The BB10 client connects from a file:// origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSubscriber adapts a websocket connection to the hub. The mutex
// serializes writes between the broadcast path and pong replies.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSubscriber) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) handleWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	sub := &wsSubscriber{conn: conn}
	s.hub.Register(sub)
	s.logger.Info("websocket client connected",
		zap.String("subscriber", id),
		zap.String("remote", conn.RemoteAddr().String()))
	defer func() {
		s.hub.Unregister(sub)
		conn.Close()
		s.logger.Info("websocket client disconnected", zap.String("subscriber", id))
	}()

	// New subscribers get the current lifecycle state right away.
	if frame, err := hub.Marshal("status", session.StatusUpdate{State: string(s.manager.State())}); err == nil {
		_ = sub.Send(frame)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var req struct {
			Type string `json:"type"`
		}
		// Malformed frames are dropped, the connection stays up.
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		if req.Type == "ping" {
			frame, err := json.Marshal(map[string]any{
				"type":      "pong",
				"timestamp": time.Now().Unix(),
			})
			if err == nil {
				_ = sub.Send(frame)
			}
		}
	}
}
