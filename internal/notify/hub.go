// Package notify tells connected clients that some kind of data changed.
// Delivery is best effort: a publisher never waits on a subscriber and a
// slow subscriber loses events instead of holding anyone up.
package notify

import (
	"sync"
	"time"

	"gcdl-backend/internal/observability"

	"github.com/sirupsen/logrus"
)

const EventDataUpdated = "data-updated"

// Entity tags carried by events.
const (
	EntitySales       = "sales"
	EntityStock       = "stock"
	EntityProcurement = "procurement"
	EntityCreditSales = "credit_sales"
	EntityBranches    = "branches"
	EntityProduce     = "produce"
	EntityUsers       = "users"
)

// Broadcaster is what the recorders depend on. Implementations must return
// immediately and must not report failures to the caller.
type Broadcaster interface {
	Broadcast(entity string)
}

type Event struct {
	Event  string    `json:"event"`
	Type   string    `json:"type"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"`
}

func NewEvent(entity string) Event {
	return Event{Event: EventDataUpdated, Type: entity, At: time.Now().UTC()}
}

// Hub fans events out to in-process subscribers.
type Hub struct {
	log    logrus.FieldLogger
	buffer int

	mu     sync.RWMutex
	subs   map[uint64]chan Event
	next   uint64
	closed bool
}

func NewHub(log logrus.FieldLogger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{log: log, buffer: buffer, subs: make(map[uint64]chan Event)}
}

// Subscribe registers a listener. The returned cancel func is idempotent
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()
	observability.SubscriberAdded()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
				observability.SubscriberRemoved()
			}
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Broadcast(entity string) {
	h.Publish(NewEvent(entity))
}

// Publish delivers ev to every subscriber with room in its buffer.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			observability.NotificationDropped()
			h.log.WithFields(logrus.Fields{"subscriber": id, "type": ev.Type}).Debug("subscriber full, event dropped")
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
		observability.SubscriberRemoved()
	}
}

// Nop discards every broadcast.
type Nop struct{}

func (Nop) Broadcast(string) {}
