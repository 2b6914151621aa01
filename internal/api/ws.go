package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"steam-sentinel/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// liveUpdate is the message pushed to websocket clients after each committed
// cycle.
type liveUpdate struct {
	Type            string      `json:"type"`
	TakenAt         interface{} `json:"taken_at"`
	TotalCents      int64       `json:"total_cents"`
	Recommendations interface{} `json:"recommendations"`
	Events          interface{} `json:"events"`
}

// Hub fans committed cycle results out to connected websocket clients. It
// implements the monitor's Notifier.
type Hub struct {
	clients  map[*websocket.Conn]struct{}
	mu       sync.Mutex
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Notify(result *store.CycleResult) {
	msg, err := json.Marshal(liveUpdate{
		Type:            "cycle",
		TakenAt:         result.TakenAt,
		TotalCents:      result.Valuation.TotalCents,
		Recommendations: result.Recommendations,
		Events:          result.Events,
	})
	if err != nil {
		log.Printf("[ws] failed to marshal update: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("[ws] write error: %v", err)
			c.Close()
			delete(h.clients, c)
		}
	}
}

// Handler accepts websocket connections. Clients are write-only; the read
// loop exists to detect disconnects.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}
		h.mu.Lock()
		h.clients[conn] = struct{}{}
		h.mu.Unlock()

		go func() {
			defer func() {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}
}
