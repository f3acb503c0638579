package events

import (
	"context"
	"sync"
	"time"

	"xquest/internal/model"
	"xquest/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan model.QuestEvent
}

// Hub fans quest events out to the WebSocket connections of the user they
// belong to. A slow connection loses events rather than blocking Publish.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) register(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userID])
}

func (h *Hub) Publish(_ context.Context, event model.QuestEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[event.UserID] {
		select {
		case c.send <- event:
		default:
			logger.Logger().Warn("dropping quest event for slow websocket client",
				zap.String("user_id", event.UserID),
				zap.String("type", string(event.Type)))
		}
	}

	return nil
}

// Serve pumps events for userID into conn until the peer goes away or ctx is
// done. It closes conn before returning.
func (h *Hub) Serve(ctx context.Context, userID string, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan model.QuestEvent, sendBuffer),
	}
	h.register(userID, c)
	defer h.unregister(userID, c)
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		readLoop(conn)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			conn.Close()
			<-closed
			return
		case <-closed:
			return
		case event := <-c.send:
			out, err := json.Marshal(event)
			if err != nil {
				logger.Logger().Error("failed to marshal quest event", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				logger.Logger().Info("websocket write failed", zap.String("user_id", userID), zap.Error(err))
				conn.Close()
				<-closed
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				<-closed
				return
			}
		}
	}
}

// readLoop discards client messages; it exists to process control frames and
// notice when the peer disconnects.
func readLoop(conn *websocket.Conn) {
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
