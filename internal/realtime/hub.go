// Package realtime pushes live collection snapshots to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"request-service/internal/live"
)

// Subscriber is the part of live.Feed the hub needs.
type Subscriber interface {
	Subscribe(ctx context.Context, c live.Collection, fn func(live.Snapshot)) (func(), error)
}

type message struct {
	Type        string            `json:"type"`
	Collection  live.Collection   `json:"collection,omitempty"`
	Data        any               `json:"data,omitempty"`
	Collections []live.Collection `json:"collections,omitempty"`
	Now         string            `json:"now,omitempty"`
}

// Hub owns the connected clients. It holds one feed subscription per
// watched collection and fans each snapshot out to the clients that asked
// for it.
type Hub struct {
	feed Subscriber
	log  *zap.Logger

	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Latest encoded snapshot per collection, waiting for the run loop.
	mu      sync.Mutex
	pending map[live.Collection][]byte
	wake    chan struct{}

	last  map[live.Collection][]byte
	stops map[live.Collection]func()
	done  chan struct{}
}

func NewHub(feed Subscriber, log *zap.Logger) *Hub {
	return &Hub{
		feed:       feed,
		log:        log,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		pending:    make(map[live.Collection][]byte),
		wake:       make(chan struct{}, 1),
		last:       make(map[live.Collection][]byte),
		stops:      make(map[live.Collection]func()),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and snapshots until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			for _, stop := range h.stops {
				stop()
			}
			return nil

		case client := <-h.register:
			h.clients[client] = true
			h.welcome(client)
			for _, col := range client.collections {
				if msg, ok := h.last[col]; ok {
					if !client.trySend(msg) {
						h.remove(client)
						break
					}
					continue
				}
				if _, ok := h.stops[col]; !ok {
					h.subscribe(ctx, col)
				}
			}

		case client := <-h.unregister:
			h.remove(client)

		case <-h.wake:
			h.mu.Lock()
			pending := h.pending
			h.pending = make(map[live.Collection][]byte)
			h.mu.Unlock()

			for col, msg := range pending {
				h.last[col] = msg
				for client := range h.clients {
					if !client.wants(col) {
						continue
					}
					if !client.trySend(msg) {
						h.log.Debug("dropping slow websocket client")
						h.remove(client)
					}
				}
			}
		}
	}
}

func (h *Hub) welcome(c *Client) {
	b, err := json.Marshal(message{
		Type:        "welcome",
		Collections: c.collections,
		Now:         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err == nil {
		c.trySend(b)
	}
}

func (h *Hub) subscribe(ctx context.Context, col live.Collection) {
	stop, err := h.feed.Subscribe(ctx, col, h.publish)
	if err != nil {
		h.log.Warn("realtime: subscribe", zap.String("collection", string(col)), zap.Error(err))
		return
	}
	h.stops[col] = stop
}

// publish runs on the feed's goroutine. It only replaces the pending
// snapshot and wakes the run loop.
func (h *Hub) publish(s live.Snapshot) {
	b, err := json.Marshal(message{Type: "snapshot", Collection: s.Collection, Data: s.Data})
	if err != nil {
		h.log.Error("realtime: encode snapshot", zap.String("collection", string(s.Collection)), zap.Error(err))
		return
	}
	h.mu.Lock()
	h.pending[s.Collection] = b
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()
}

// Register hands c to the run loop. It reports false once the hub stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
