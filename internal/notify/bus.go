// Package notify carries change notifications from the cart/wishlist and
// session layers to whatever renders badges and counters. Observers subscribe
// explicitly; every successful mutation publishes exactly one event.
package notify

import (
	"sync"
	"time"
)

// Kind identifies what changed.
type Kind string

const (
	// KindCartUpdated fires after any successful cart mutation, local or remote.
	KindCartUpdated Kind = "cart.updated"
	// KindWishlistUpdated fires after any successful wishlist mutation.
	KindWishlistUpdated Kind = "wishlist.updated"
	// KindSessionChanged fires on login and logout.
	KindSessionChanged Kind = "session.changed"
)

// Event describes a single state change for one visitor.
type Event struct {
	Kind      Kind
	VisitorID string
	ProductID string
	// Stored reports which backend absorbed the mutation: "remote" or "local".
	Stored     string
	Count      int
	OccurredAt time.Time
}

// Handler consumes published events. Handlers run synchronously on the
// publishing goroutine, matching the run-to-completion event model of the
// storefront pages.
type Handler func(Event)

// Subscription detaches a handler when closed.
type Subscription struct {
	once sync.Once
	stop func()
}

// Close removes the handler from the bus. Safe to call multiple times.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.stop)
}

// Bus fans events out to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) *Subscription {
	if h == nil {
		return &Subscription{stop: func() {}}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return &Subscription{stop: func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}}
}

// Publish delivers the event to every subscribed handler.
func (b *Bus) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
