package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/scopebind/pkg/metrics"
)

const writeWait = 5 * time.Second

// Message is a frame exchanged with a browser client.
//
// Clients send "click" and "input" messages addressed by element path.
// The server sends "render" messages carrying the whole document.
type Message struct {
	Type  string `json:"type"`
	Path  []int  `json:"path,omitempty"`
	Value string `json:"value,omitempty"`
	HTML  string `json:"html,omitempty"`
}

// Message types.
const (
	MessageClick  = "click"
	MessageInput  = "input"
	MessageRender = "render"
)

// Hub tracks connected websocket clients.
type Hub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Collector
	origins  []string
}

// NewHub creates an empty hub. Websocket upgrades are accepted from the
// server's own origin and from the listed extra origins.
func NewHub(logger *slog.Logger, m *metrics.Collector, origins []string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
		metrics: m,
		origins: origins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts requests without an Origin header, requests whose
// origin host matches the request host, and allowlisted origins. Entries
// may be a full origin ("https://app.example") or a host ("app.example").
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if r.Host != "" && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.origins {
		if strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	h.logger.Warn("websocket origin rejected", "origin", origin, "host", r.Host)
	return false
}

// Serve upgrades the request and passes every decoded client message to
// handle until the connection closes. handle runs on the reader goroutine.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, handle func(Message)) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.metrics.ClientConnected(1)

	defer h.drop(conn)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		handle(msg)
	}
}

// Broadcast sends msg to every client. Clients that fail to receive it are
// dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	h.writeMu.Lock()
	var failed []*websocket.Conn
	for _, client := range clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			failed = append(failed, client)
		}
	}
	h.writeMu.Unlock()

	for _, client := range failed {
		h.drop(client)
	}
	h.metrics.Broadcast()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		h.metrics.ClientConnected(-1)
	}
	conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()

	for client := range clients {
		h.metrics.ClientConnected(-1)
		client.Close()
	}
}
