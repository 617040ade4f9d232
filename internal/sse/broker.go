// Package sse implements a Server-Sent Events broker for live tag-browser
// updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type changeReq struct {
	kind string
	ref  string
}

// Broker manages SSE subscriber connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (subscribers + usage throttle timestamp). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	usageMin  time.Duration
	heartbeat time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates an SSE broker. usageThrottle bounds how often a
// usage.updated event may follow document churn; heartbeat is the interval
// between keep-alive comments on idle connections. Zero or negative values
// select the defaults (2s and 25s).
func NewBroker(usageThrottle, heartbeat time.Duration) *Broker {
	if usageThrottle <= 0 {
		usageThrottle = 2 * time.Second
	}
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}

	b := &Broker{
		usageMin:      usageThrottle,
		heartbeat:     heartbeat,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	subs := make(map[chan []byte]struct{})
	var lastUsage time.Time

	send := func(raw []byte) {
		for ch := range subs {
			select {
			case ch <- raw:
			default:
				// Subscriber buffer full; skip to avoid blocking the loop.
			}
		}
	}
	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		send([]byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)))
	}

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.changeCh:
			switch req.kind {
			case "created", "updated", "deleted":
				broadcast(Event{Type: "document." + req.kind, Data: map[string]string{"path": req.ref}})
				// Document churn moves usage counts; coalesce the refresh
				// signal so a vault-wide rewrite does not flood clients.
				now := time.Now()
				if now.Sub(lastUsage) >= b.usageMin {
					lastUsage = now
					broadcast(Event{Type: "usage.updated", Data: map[string]string{}})
				}
			case "library":
				broadcast(Event{Type: "library.changed", Data: map[string]string{"path": req.ref}})
			case "note.created":
				broadcast(Event{Type: req.kind, Data: map[string]string{"path": req.ref}})
			default:
				broadcast(Event{Type: req.kind, Data: map[string]string{"ref": req.ref}})
			}

		case <-ticker.C:
			// Comment frame; keeps proxies from reaping idle connections.
			send([]byte(": keep-alive\n\n"))

		case resp := <-b.countCh:
			resp <- len(subs)
		}
	}
}

// Close gracefully stops the broker loop and closes all subscriber channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new subscriber and returns its channel.
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

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected subscribers.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
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

// Publish sends an event to all connected subscribers.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange publishes a change notification. Watcher kinds ("created",
// "updated", "deleted", "library") map to document.* and library.changed
// events, with document changes additionally emitting a throttled
// usage.updated; service kinds ("vocabulary.updated", "note.created",
// "settings.updated") broadcast under their own name.
func (b *Broker) PublishChange(kind, ref string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- changeReq{kind: kind, ref: ref}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
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

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
