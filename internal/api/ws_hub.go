// Package api exposes the execution core over HTTP and WebSocket. The hub
// in this file pushes account events to clients: the engine publishes an
// event after every committed state transition and the hub fans it out to
// the owning account's connections.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/baharbilginay/execution-engine/internal/engine"
	"github.com/baharbilginay/execution-engine/internal/metrics"
)

type wsClient struct {
	conn      *websocket.Conn
	accountID string // empty subscribes to all accounts (admin/monitoring)
}

type broadcastMsg struct {
	accountID string
	data      []byte
}

// Hub manages WebSocket connections keyed by account. Implements
// engine.Publisher.
type Hub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan broadcastMsg
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.conn] = c
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.mu.Unlock()
			slog.Info("ws client connected", "account", c.accountID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn, c := range h.clients {
				if c.accountID != "" && c.accountID != msg.accountID {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish implements engine.Publisher. Non-blocking: events are dropped if
// the buffer is full rather than stalling trade execution.
func (h *Hub) Publish(ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- broadcastMsg{accountID: ev.AccountID, data: data}:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrades at GET /api/v1/ws?account_id=…
// Omitting account_id subscribes to every account's events.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- &wsClient{conn: conn, accountID: r.URL.Query().Get("account_id")}

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
