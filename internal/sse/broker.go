// Package sse implements a Server-Sent Events broker for real-time journal updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/daybook/internal/parser"
)

// Event types broadcast to clients.
const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
	EventEntryDeleted = "entry.deleted"
	EventIndexUpdated = "index.updated"
	EventTagRenamed   = "tag.renamed"
	EventCompiled     = "entries.compiled"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`

	// entry marks events that also trigger a throttled index.updated.
	entry bool
}

// entryEventTypes maps watcher change kinds to event types.
var entryEventTypes = map[string]string{
	"created": EventEntryCreated,
	"updated": EventEntryUpdated,
	"deleted": EventEntryDeleted,
}

// Broker manages SSE client connections and broadcasts events.
//
// A single goroutine owns the client set, the message sequence and the
// index.updated throttle; public methods talk to it over channels.
type Broker struct {
	indexMin  time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the interval of the comment lines written to idle
// streams. Non-positive values keep the default.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// NewBroker creates a new SSE broker with the given index.updated throttle interval.
func NewBroker(indexThrottle time.Duration, opts ...Option) *Broker {
	if indexThrottle <= 0 {
		indexThrottle = 2 * time.Second
	}

	b := &Broker{
		indexMin:      indexThrottle,
		keepAlive:     30 * time.Second,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// hub is the state owned by the broker loop.
type hub struct {
	clients   map[chan []byte]struct{}
	seq       uint64
	lastIndex time.Time
	indexMin  time.Duration
}

func (h *hub) send(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	h.seq++
	msg := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, event.Type, payload))
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// slow client; drop rather than stall the loop
		}
	}

	if !event.entry {
		return
	}
	if now := time.Now(); now.Sub(h.lastIndex) >= h.indexMin {
		h.lastIndex = now
		h.send(Event{Type: EventIndexUpdated, Data: map[string]string{}})
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{}), indexMin: b.indexMin}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			h.clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			h.send(event)

		case resp := <-b.countReqCh:
			resp <- len(h.clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishEntryEvent publishes an entry change followed, at most once per
// throttle interval, by index.updated. kind is one of "created", "updated",
// "deleted"; other kinds are ignored.
func (b *Broker) PublishEntryEvent(kind, path string) {
	typ, ok := entryEventTypes[kind]
	if !ok {
		return
	}
	b.Publish(Event{
		Type:  typ,
		Data:  map[string]string{"path": path, "name": parser.Stem(path)},
		entry: true,
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Each message
// carries an increasing id.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			// Comment lines keep proxies from closing idle streams.
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
