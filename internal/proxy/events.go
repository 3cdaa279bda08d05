package proxy

import (
	"sort"
	"sync"
	"time"
)

// EventType enumerates the lifecycle notifications an engine publishes.
type EventType string

const (
	EventStarted      EventType = "started"
	EventStopped      EventType = "stopped"
	EventRouteAdded   EventType = "route:added"
	EventRouteRemoved EventType = "route:removed"
	EventRouteStatus  EventType = "route:status"
	EventError        EventType = "error"
)

// Event is one lifecycle notification. Events are delivered synchronously to
// current subscribers in publish order; there is no queueing or replay, so a
// subscriber registered after an event was published never sees it.
type Event struct {
	Type      EventType `json:"type"`
	Route     *Route    `json:"route,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type eventBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func newEventBus() *eventBus {
	return &eventBus{subs: map[int]func(Event){}}
}

// subscribe registers fn and returns its unsubscribe handle. Unsubscribing
// twice is a no-op.
func (b *eventBus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *eventBus) publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	// Invoked outside the bus lock so a subscriber may subscribe or
	// unsubscribe from within its callback.
	for _, fn := range fns {
		fn(ev)
	}
}
