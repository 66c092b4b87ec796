package communication

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/core"
)

type WSEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	EventChatMessage   = "CHAT_MESSAGE"
	EventAgentResponse = "AGENT_RESPONSE"
	EventAgentsMoved   = "AGENTS_MOVED"
	EventAgentSpawned  = "AGENT_SPAWNED"
	EventAgentRemoved  = "AGENT_REMOVED"
	EventCommentary    = "COMMENTARY"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans events out to every connected websocket client. All writes happen
// on the Run goroutine.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan WSEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan WSEvent),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
		timers:     make(map[*time.Timer]struct{}),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client and cancels pending deliveries.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(event); err != nil {
					h.logger.Warn("WebSocket write failed", zap.Error(err))
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.timersMu.Lock()
	for t := range h.timers {
		t.Stop()
	}
	h.timers = make(map[*time.Timer]struct{})
	h.timersMu.Unlock()

	h.mu.Lock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.mu.Unlock()
	close(h.done)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all clients. It is dropped once the hub has
// stopped.
func (h *Hub) Broadcast(eventType string, payload any) {
	select {
	case h.broadcast <- WSEvent{Type: eventType, Payload: payload}:
	case <-h.done:
	}
}

// Deliver broadcasts each response once its delay has elapsed, so clients
// see replies arrive in travel-time order.
func (h *Hub) Deliver(responses []core.AgentResponse) {
	for _, r := range responses {
		h.schedule(r.Delay, func() { h.Broadcast(EventAgentResponse, r) })
	}
}

func (h *Hub) schedule(d time.Duration, fn func()) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()

	select {
	case <-h.done:
		return
	default:
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		h.timersMu.Lock()
		delete(h.timers, t)
		h.timersMu.Unlock()
		fn()
	})
	h.timers[t] = struct{}{}
}

// Pending returns the number of scheduled deliveries not yet sent.
func (h *Hub) Pending() int {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	return len(h.timers)
}

// ServeWS upgrades the request and registers the connection. Incoming frames
// are discarded; a read error unregisters the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}
