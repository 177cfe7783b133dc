package sim

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blackout-sim/internal/telemetry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Viewers only send control frames.
	maxMessageSize = 512
	sendBuffer     = 256
)

// Envelope is one live-feed message.
type Envelope struct {
	Kind string `json:"kind"`
	Row  any    `json:"row"`
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks live-feed viewers and broadcasts to them. Slow viewers whose
// buffer fills are dropped rather than blocking the simulation.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	closed   bool
	log      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
		log:     logger.With("component", "hub"),
	}
}

// ServeHTTP upgrades the request and registers the viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("viewer connected", "viewers", n)
	go c.writePump()
	go c.readPump()
}

// Clients reports the connected viewer count.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every viewer without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
			h.log.Warn("dropped slow viewer")
		}
	}
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.Info("viewer disconnected", "viewers", len(h.clients))
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("viewer read failed", "err", err)
			}
			return
		}
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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

// BroadcastWriter publishes rows to a Hub as JSON envelopes.
type BroadcastWriter struct {
	hub *Hub
}

// NewBroadcastWriter writes to hub.
func NewBroadcastWriter(hub *Hub) *BroadcastWriter { return &BroadcastWriter{hub: hub} }

// Hub returns the underlying hub.
func (w *BroadcastWriter) Hub() *Hub { return w.hub }

func (w *BroadcastWriter) publish(kind string, row any) error {
	data, err := json.Marshal(Envelope{Kind: kind, Row: row})
	if err != nil {
		return err
	}
	w.hub.Broadcast(data)
	return nil
}

func (w *BroadcastWriter) WriteBlackout(row telemetry.BlackoutRow) error {
	return w.publish("blackout", row)
}

func (w *BroadcastWriter) WriteDamage(row telemetry.DamageRow) error {
	return w.publish("damage", row)
}

func (w *BroadcastWriter) WriteSanity(row telemetry.SanityRow) error {
	return w.publish("sanity", row)
}

// WriteSanityBatch sends one tick's samples as a single message.
func (w *BroadcastWriter) WriteSanityBatch(rows []telemetry.SanityRow) error {
	return w.publish("sanity", rows)
}

func (w *BroadcastWriter) WriteState(row telemetry.SessionStateRow) error {
	return w.publish("state", row)
}
