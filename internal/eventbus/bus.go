// Package eventbus is an in-process publish/subscribe hub for bot events.
package eventbus

import (
	"context"
	"sync"

	"tsmodbot/internal/adapters/logging"
)

type subscriber struct {
	id uint64
	fn func(Event)
}

type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
	logger *logging.Logger
}

func New(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bus{logger: logger}
}

// Publish delivers e to every subscriber synchronously, in subscription order.
// A panicking subscriber is logged and does not affect the others.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf(context.Background(), "event handler for %T panicked: %v", e, r)
		}
	}()
	s.fn(e)
}

func (b *Bus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn for events of type E and returns a function that removes it.
func Subscribe[E Event](b *Bus, fn func(E)) func() {
	return b.subscribe(func(e Event) {
		if typed, ok := e.(E); ok {
			fn(typed)
		}
	})
}
