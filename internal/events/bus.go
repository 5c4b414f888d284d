package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(ev Event)
}

// Handler receives events synchronously on the publisher's goroutine.
// Handlers must not block; slow consumers should hand off to their own queue.
type Handler func(ev Event)

// Bus is an in-process, typed publish/subscribe hub.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Name][]*Subscription
	nextID uint64
	log    zerolog.Logger
}

// Subscription is returned by Subscribe and detaches the handler.
type Subscription struct {
	id      uint64
	name    Name
	handler Handler
	bus     *Bus
	once    sync.Once
}

// NewBus creates an empty bus. Handler panics are logged on log.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[Name][]*Subscription),
		log:  log,
	}
}

// Subscribe registers h for events named name (or every event for All).
func (b *Bus) Subscribe(name Name, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, name: name, handler: h, bus: b}
	b.subs[name] = append(b.subs[name], sub)
	return sub
}

// Unsubscribe detaches the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[s.name]
	for i, sub := range list {
		if sub.id == s.id {
			// copy so snapshots held by in-flight publishes stay intact
			next := make([]*Subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, s.name)
			} else {
				b.subs[s.name] = next
			}
			return
		}
	}
}

// Publish delivers ev to every matching subscriber in subscription order
// before returning.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs[ev.EventName()])+len(b.subs[All]))
	targets = append(targets, b.subs[ev.EventName()]...)
	targets = append(targets, b.subs[All]...)
	b.mu.RUnlock()

	for _, sub := range targets {
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event", string(ev.EventName())).
				Msg("Event handler panicked")
		}
	}()
	sub.handler(ev)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
