// Package sse streams turn events to web clients as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/triad-ai/triad/internal/events"
)

const (
	defaultHeartbeat = 30 * time.Second
	noticeBuffer     = 16
)

// Handler subscribes each connected client to the event bus and writes
// matching events to it.
type Handler struct {
	bus       *events.EventBus
	heartbeat time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	id      string
	filter  events.Filter
	notices chan notice
	done    chan struct{}
	once    sync.Once
}

func (c *client) disconnect() {
	c.once.Do(func() { close(c.done) })
}

// notice is an out-of-band message not carried by the bus.
type notice struct {
	event string
	data  []byte
}

// turnScoped is implemented by events that belong to a turn.
type turnScoped interface {
	TurnID() string
}

// NewHandler creates a handler streaming from bus.
func NewHandler(bus *events.EventBus) *Handler {
	return &Handler{
		bus:       bus,
		heartbeat: defaultHeartbeat,
		clients:   make(map[*client]struct{}),
	}
}

// SetHeartbeatFrequency sets the interval between keep-alive comments.
func (h *Handler) SetHeartbeatFrequency(d time.Duration) {
	h.heartbeat = d
}

// ServeHTTP streams events until the client goes away or Shutdown is
// called. The query parameters session and types (comma separated) narrow
// the stream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	q := r.URL.Query()
	c := &client{
		id:      uuid.NewString(),
		filter:  events.Filter{SessionID: q.Get("session"), Types: parseTypes(q.Get("types"))},
		notices: make(chan notice, noticeBuffer),
		done:    make(chan struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	feed := h.bus.SubscribeFilter(c.filter)
	defer h.bus.Unsubscribe(feed)

	s := stream{w: w, f: flusher}
	s.json("", "connected", map[string]string{"client_id": c.id, "session": c.filter.SessionID})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			s.comment("heartbeat")
		case n := <-c.notices:
			s.write("", n.event, n.data)
		case e, ok := <-feed:
			if !ok {
				return
			}
			id := ""
			if ts, ok := e.(turnScoped); ok {
				id = ts.TurnID()
			}
			s.json(id, e.EventType(), e)
		}
	}
}

// stream writes SSE frames and flushes after each one.
type stream struct {
	w http.ResponseWriter
	f http.Flusher
}

func (s stream) json(id, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.write(id, event, data)
}

func (s stream) write(id, event string, data []byte) {
	if id != "" {
		fmt.Fprintf(s.w, "id: %s\n", id)
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.f.Flush()
}

func (s stream) comment(text string) {
	fmt.Fprintf(s.w, ": %s\n\n", text)
	s.f.Flush()
}

func parseTypes(raw string) []string {
	var types []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func (h *Handler) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Handler) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.disconnect()
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a named event to every client. Clients with a full
// notice buffer miss it.
func (h *Handler) Broadcast(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	n := notice{event: event, data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.notices <- n:
		default:
		}
	}
}

// Shutdown disconnects every client.
func (h *Handler) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.disconnect()
	}
	h.clients = make(map[*client]struct{})
	return nil
}
