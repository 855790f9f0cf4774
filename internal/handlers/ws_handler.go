package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tooling connects cross-origin
	},
}

const wsWriteTimeout = 10 * time.Second

// WSHandler mirrors every analysis stream frame to connected websocket
// clients. One broadcast goroutine per handler; per-connection write
// locks because gorilla connections allow a single concurrent writer.
type WSHandler struct {
	events interfaces.EventService
	logger arbor.ILogger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func NewWSHandler(events interfaces.EventService, logger arbor.ILogger) *WSHandler {
	h := &WSHandler{
		events:  events,
		logger:  logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
		done:    make(chan struct{}),
	}
	go h.broadcastLoop()
	return h
}

// HandleWebSocket upgrades the connection and registers it for frames.
// GET /ws
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().
		Str("remote", r.RemoteAddr).
		Int("clients", count).
		Msg("WebSocket client connected")

	// the read loop only exists to notice the peer going away
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastLoop fans the all-threads subscription out to every client.
func (h *WSHandler) broadcastLoop() {
	sub := h.events.Subscribe(interfaces.AllThreads)
	defer sub.Cancel()

	for {
		select {
		case <-h.done:
			return
		case event, open := <-sub.C:
			if !open {
				return
			}
			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.mu.RUnlock()

			for _, conn := range conns {
				if err := h.write(conn, event); err != nil {
					h.drop(conn)
				}
			}
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, payload interface{}) error {
	h.mu.RLock()
	lock, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	lock.Lock()
	defer lock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(payload)
}

func (h *WSHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// Close stops the broadcast loop and disconnects every client.
func (h *WSHandler) Close() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
