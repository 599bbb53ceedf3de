package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"modelhub-backend/internal/models"
)

// writeWait bounds a single write to one client.
const writeWait = 10 * time.Second

// Channel carries catalog events between processes when Redis is configured.
const Channel = "catalog_updates"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes catalog events to connected browsers.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*websocket.Conn
	redisClient *redis.Client
	cancel      context.CancelFunc
}

// NewHub creates a hub. With a nil redisClient events are broadcast
// in-process only.
func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		connections: make(map[uuid.UUID]*websocket.Conn),
		redisClient: redisClient,
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.subscribeToPubSub(ctx)
	}

	return h
}

// Publish implements services.EventPublisher.
func (h *Hub) Publish(ctx context.Context, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if h.redisClient != nil {
		return h.redisClient.Publish(ctx, Channel, string(data)).Err()
	}

	h.broadcast(data)
	return nil
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	id := uuid.New()
	h.registerConnection(id, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(id uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[id] = conn
	log.Printf("WebSocket connected: %s (total: %d)", id, len(h.connections))
}

func (h *Hub) unregisterConnection(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.connections[id]; ok {
		conn.Close()
		delete(h.connections, id)
	}

	log.Printf("WebSocket disconnected: %s", id)
}

func (h *Hub) subscribeToPubSub(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, Channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

// broadcast holds the write lock because gorilla connections allow only one
// concurrent writer. A client that cannot take the message within writeWait
// is disconnected. It returns how many clients were dropped.
func (h *Hub) broadcast(data []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for id, conn := range h.connections {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write to %s failed, dropping: %v", id, err)
			conn.Close()
			delete(h.connections, id)
			dropped++
		}
	}
	return dropped
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close stops the Redis subscription and disconnects every client.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		conn.Close()
		delete(h.connections, id)
	}
}
