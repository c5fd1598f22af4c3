package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/deepfake-battle/internal/engine"
)

const (
	maxWSClients = 16
	sendBuffer   = 32
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

// StepMessage is pushed to websocket clients after every step.
type StepMessage struct {
	Model      string         `json:"model"`
	Step       int            `json:"step"`
	Values     map[string]int `json:"values"`
	Running    bool           `json:"running"`
	StopReason string         `json:"stop_reason,omitempty"`
}

// NewStepMessage snapshots m. The caller must hold the engine lock.
func NewStepMessage(m engine.Model) StepMessage {
	return StepMessage{
		Model:      m.Name(),
		Step:       m.StepCount(),
		Values:     m.Series().Latest(),
		Running:    m.Running(),
		StopReason: m.StopReason(),
	}
}

// Hub fans step messages out to websocket subscribers. Slow clients whose
// buffer fills are dropped rather than stalling the step loop.
type Hub struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	pending  int // upgrades in flight, counted against the limit
	limit    int
	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		limit:   maxWSClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends the current state of m to every subscriber. It never
// blocks, so it is safe to call from the engine's step callback.
func (h *Hub) Broadcast(m engine.Model) {
	data, err := json.Marshal(NewStepMessage(m))
	if err != nil {
		slog.Error("encode step message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
			slog.Warn("websocket client dropped", "reason", "send buffer full")
		}
	}
}

// Serve upgrades the request, sends hello, then streams broadcasts until the
// client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, hello StepMessage) {
	if !h.reserve() {
		http.Error(w, "too many websocket connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(nil)
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	if data, err := json.Marshal(hello); err == nil {
		c.send <- data
	}
	h.release(c)
	slog.Info("websocket client connected", "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump()

	h.remove(c)
	slog.Info("websocket client disconnected", "remote", r.RemoteAddr)
}

// reserve claims a client slot before the upgrade so concurrent handshakes
// cannot overshoot the limit.
func (h *Hub) reserve() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients)+h.pending >= h.limit {
		return false
	}
	h.pending++
	return true
}

// release turns a reservation into a registered client, or gives it back
// when c is nil.
func (h *Hub) release(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending--
	if c != nil {
		h.clients[c] = struct{}{}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and returns when the connection closes.
func (c *wsClient) readPump() {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
	}
}
