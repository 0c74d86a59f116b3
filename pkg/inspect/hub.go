package inspect

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/cascade/pkg/cascade"
)

// MessageType tags a message on the live stream.
type MessageType string

const (
	MessageEvent   MessageType = "event"
	MessageWarning MessageType = "warning"
	MessageRun     MessageType = "run"
)

// Message is sent to websocket clients.
type Message struct {
	Type    MessageType    `json:"type"`
	Event   *cascade.Event `json:"event,omitempty"`
	Warning *WarningView   `json:"warning,omitempty"`
	Run     *RunView       `json:"run,omitempty"`
}

// Hub fans messages out to websocket clients. Publishing never blocks:
// messages are queued and dropped when the queue is full.
type Hub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	h := &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
	go h.loop()
	return h
}

// HandleWebSocket upgrades the connection and keeps it registered until
// the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Publish queues msg for every client.
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case <-h.done:
	case h.queue <- data:
	default:
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.done:
			return
		case data := <-h.queue:
			h.broadcast(data)
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.mu.Lock()
			delete(h.clients, client)
			h.mu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop and closes every client connection.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
