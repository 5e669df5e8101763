// Package ws serves the spectator feed: every decision the bot makes is pushed
// as JSON to all connected websocket clients.
package ws

import (
	"encoding/json"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/overfly42/found-gems/internal/telemetry"
)

const (
	writeWait    = 2 * time.Second
	sendBacklog  = 64
	metricSent   = "spectator_messages_total"
	metricDrops  = "spectator_dropped_total"
	metricJoined = "spectator_connections_total"
)

type HubConfig struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// Hub fans messages out to spectators. A spectator that falls behind loses
// messages rather than slowing the bot.
type Hub struct {
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Hub{
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribers reports the number of connected spectators.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast encodes v once and queues it for every spectator.
func (h *Hub) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- data:
			h.metrics.Add(metricSent, 1)
		default:
			h.metrics.Add(metricDrops, 1)
		}
	}
	return nil
}

// Handle upgrades the request and keeps the spectator subscribed until it
// disconnects.
func (h *Hub) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("spectator upgrade failed: %v", err)
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBacklog)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	h.metrics.Add(metricJoined, 1)

	go h.writeLoop(sub)

	// Spectators never send anything meaningful; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(sub)
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	for data := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(sub)
			sub.conn.Close()
			return
		}
	}
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	sub.conn.Close()
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		sub.once.Do(func() { close(sub.send) })
	}
}

// Close disconnects every spectator and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()
	for sub := range subs {
		sub.once.Do(func() { close(sub.send) })
	}
}
