package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gradbook-dev/gradbook/pkg/route"
	"github.com/gradbook-dev/gradbook/pkg/store"
)

// EventType tags a live event sent to browsers.
type EventType string

const (
	// EventUpdate carries the current graduation snapshot.
	EventUpdate EventType = "update"

	// EventDeleted signals the graduation no longer exists.
	EventDeleted EventType = "deleted"
)

// Event is the JSON wire format for one live push.
type Event struct {
	Type       EventType         `json:"type"`
	Graduation *store.Graduation `json:"graduation,omitempty"`
}

// UpdateSource is the slice of the store the hub needs: a per-graduation
// watch with an immediate initial fire. store.Store satisfies it.
type UpdateSource interface {
	OnUpdate(id string, fn store.UpdateFunc) func()
}

const (
	writeTimeout  = 10 * time.Second
	clientBacklog = 16
)

var clientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "gradbook",
	Name:      "live_clients",
	Help:      "Connected live-update WebSocket clients",
})

// Hub fans graduation updates out to WebSocket clients grouped by
// graduation id.
type Hub struct {
	source   UpdateSource
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

// room is the client set for one graduation plus its store watch.
type room struct {
	cancel  func()
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// close makes the writer goroutine drain and exit. Safe to call from both
// the read loop and a broadcast that found the client stalled.
func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a Hub reading from source.
func NewHub(source UpdateSource, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		rooms:  make(map[string]*room),
	}
}

// Routes returns the hub's router: GET /{gradId} upgrades to WebSocket.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{"+route.ParamGradID+"}", h.handleWS)
	return r
}

func (h *Hub) handleWS(w http.ResponseWriter, req *http.Request) {
	gradID := chi.URLParam(req, route.ParamGradID)
	if gradID == "" {
		http.Error(w, "missing graduation id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "entity_id", gradID, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBacklog)}
	h.join(gradID, c)
	clientsGauge.Inc()
	defer clientsGauge.Dec()
	go c.writeLoop()

	// The read loop exists to observe disconnects; inbound frames carry
	// no meaning on this endpoint.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.leave(gradID, c)
	c.close()
	conn.Close()
}

// join adds a client to a room, creating the room and its store watch on
// first join. The watch's immediate initial fire delivers the current
// snapshot to the new room's first client.
func (h *Hub) join(gradID string, c *client) {
	h.mu.Lock()
	rm, ok := h.rooms[gradID]
	if ok {
		rm.clients[c] = struct{}{}
		h.mu.Unlock()
		return
	}

	rm = &room{clients: map[*client]struct{}{c: {}}}
	h.rooms[gradID] = rm
	h.mu.Unlock()

	// Subscribe outside the hub lock: the initial fire is synchronous and
	// broadcast retakes it.
	cancel := h.source.OnUpdate(gradID, func(g *store.Graduation) {
		h.broadcast(gradID, g)
	})

	h.mu.Lock()
	if current, ok := h.rooms[gradID]; ok && current == rm {
		rm.cancel = cancel
		h.mu.Unlock()
		return
	}
	// The room emptied while subscribing.
	h.mu.Unlock()
	cancel()
}

// leave removes a client; the last one out cancels the store watch and
// deletes the room.
func (h *Hub) leave(gradID string, c *client) {
	h.mu.Lock()
	rm, ok := h.rooms[gradID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(rm.clients, c)
	if len(rm.clients) > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.rooms, gradID)
	cancel := rm.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// broadcast sends one update to every client in a room. A client whose
// backlog is full is dropped; it will reconnect and resync from the
// initial fire.
func (h *Hub) broadcast(gradID string, g *store.Graduation) {
	ev := Event{Type: EventUpdate, Graduation: g}
	if g == nil {
		ev = Event{Type: EventDeleted}
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("live event marshal failed", "entity_id", gradID, "error", err)
		return
	}

	h.mu.Lock()
	rm, ok := h.rooms[gradID]
	if !ok {
		h.mu.Unlock()
		return
	}
	var stalled []*client
	for c := range rm.clients {
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
			delete(rm.clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stalled {
		h.logger.Warn("dropping stalled live client", "entity_id", gradID)
		c.close()
	}
}

// writeLoop drains the send channel onto the connection until it closes.
func (c *client) writeLoop() {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	c.conn.Close()
}

// Rooms reports the number of graduations with at least one connected
// client.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
