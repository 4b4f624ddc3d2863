package jobs

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans job output lines out to every connected websocket client. A
// client that fails a write is dropped; slow dashboards never stall a job.
type Hub struct {
	logger    *zap.Logger
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
}

// NewHub creates an empty hub. Run must be started for messages to flow.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:    logger,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
	}
}

// Run delivers broadcast messages to all clients until the channel drains
// forever. Intended to be started once as a goroutine.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.lock.Lock()
		for client := range h.clients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				client.Close()
				delete(h.clients, client)
			}
		}
		h.lock.Unlock()
	}
}

// Broadcast queues a message for every connected client. Drops the message
// if the queue is full rather than blocking the producing job.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Job stream backlogged, dropping message")
	}
}

// Attach registers an upgraded websocket connection with the hub and starts
// its read pump.
func (h *Hub) Attach(conn *websocket.Conn) {
	h.lock.Lock()
	h.clients[conn] = true
	h.lock.Unlock()
	h.logger.Info("Job stream client connected", zap.String("remote", conn.RemoteAddr().String()))
	go h.readPump(conn)
}

// readPump discards inbound frames until the connection errors, then
// detaches it. Without it a client-initiated close would only surface on the
// next broadcast write, leaking the connection across quiet periods.
func (h *Hub) readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.detach(conn)
			return
		}
	}
}

func (h *Hub) detach(conn *websocket.Conn) {
	conn.Close()
	h.lock.Lock()
	delete(h.clients, conn)
	h.lock.Unlock()
	h.logger.Info("Job stream client disconnected", zap.String("remote", conn.RemoteAddr().String()))
}
