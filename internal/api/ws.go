package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/curvelab/yieldstress/pkg/logger"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsPongWait     = 60 * time.Second
	wsSendBuffer   = 8
)

// RefreshEvent is pushed to connected clients when new curve data lands.
type RefreshEvent struct {
	Type       string    `json:"type"`
	LatestDate time.Time `json:"latest_date"`
	At         time.Time `json:"at"`
}

// Hub fans refresh notifications out to WebSocket subscribers.
type Hub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan RefreshEvent
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Notifications carry no client-specific data.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]bool),
	}
}

// ServeWS upgrades the connection and keeps it subscribed until it drops.
// GET /api/ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan RefreshEvent, wsSendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Debug("WebSocket client connected")

	go h.writeLoop(client)
	go h.readLoop(client)
}

// Broadcast sends an event to every connected client. Slow clients whose
// buffers are full are disconnected rather than blocking the broadcast.
func (h *Hub) Broadcast(event RefreshEvent) {
	h.mu.RLock()
	stale := make([]*wsClient, 0)
	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.remove(client)
	}
}

// Clients returns the number of active subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	client.conn.Close()
}

// readLoop drains client frames so pongs are processed and close frames
// are noticed promptly.
func (h *Hub) readLoop(client *wsClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteJSON(event); err != nil {
				h.remove(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(client)
				return
			}
		}
	}
}
