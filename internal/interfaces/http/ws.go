package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/domain/scoring"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans scan signals out to websocket subscribers. Slow clients are
// dropped rather than allowed to back-pressure the scanner.
type Hub struct {
	metrics *MetricsRegistry

	mu      sync.Mutex
	clients map[*websocket.Conn]chan scoring.Signal
}

// NewHub creates an empty hub.
func NewHub(metrics *MetricsRegistry) *Hub {
	return &Hub{
		metrics: metrics,
		clients: make(map[*websocket.Conn]chan scoring.Signal),
	}
}

// Broadcast queues the signal for every connected client.
func (h *Hub) Broadcast(sig scoring.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- sig:
		default:
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("dropping slow websocket client")
			h.removeLocked(conn)
		}
	}
}

// ServeHTTP upgrades the connection and streams signals until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ch := make(chan scoring.Signal, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSClients.Inc()
	}

	// Reader goroutine only notices disconnects; inbound frames are ignored.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	for sig := range ch {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(sig); err != nil {
			h.remove(conn)
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		h.removeLocked(conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
		conn.Close()
		if h.metrics != nil {
			h.metrics.WSClients.Dec()
		}
	}
}
