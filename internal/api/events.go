package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/logger"
)

const (
	// Time allowed to write a message to the client
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client
	pongWait = 60 * time.Second

	// Send pings to client with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from client
	maxMessageSize = 512

	subscriberBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamEvents handles GET /events. The connection receives every event of
// the caller's partition as JSON until either side closes it.
func (s *Server) StreamEvents(ctx echo.Context) error {
	if s.cfg.Events == nil {
		return s.HandleError(ctx, nil, "Event stream is not available", http.StatusServiceUnavailable)
	}
	partition := workspaceFrom(ctx).Partition()

	// subscribe first so nothing committed after the handshake is missed
	feed, unsubscribe := s.cfg.Events.Subscribe(subscriberBuffer)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logger.Error(err))
		return nil
	}
	defer conn.Close()

	// The read loop only handles control frames and detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("event stream opened", logger.String("partition", partition))
	defer s.logger.Debug("event stream closed", logger.String("partition", partition))

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil
		case <-ctx.Request().Context().Done():
			return nil
		case event, ok := <-feed:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return nil
			}
			if !visibleTo(event, partition) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

func visibleTo(event events.Event, partition string) bool {
	return event.Partition == partition
}
