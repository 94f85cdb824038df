// Package events implements the in-process event bus that connects the
// decision pipeline to the approval queue, notifiers and audit log.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Event names published by the governance pipeline.
const (
	DecisionMade        = "decision:made"
	DecisionAutoExecute = "decision:auto_execute"
	DecisionQueued      = "decision:queued"
	DecisionEscalated   = "decision:escalated"
	DecisionRejected    = "decision:rejected"
	BoundaryViolation   = "boundary:violation"
	ItemAdded           = "item:added"
	ItemApproved        = "item:approved"
	ItemRejected        = "item:rejected"
	ItemExpired         = "item:expired"
	ItemEscalated       = "item:escalated"
	QueueChanged        = "queue:changed"
)

// Handler receives the payload published with an event.
type Handler func(payload any)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events synchronously to handlers in registration order.
// Handlers must not block; anything slow belongs behind a channel.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for the named event and returns a function
// that removes the registration. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[name]
		for i, s := range list {
			if s.id == id {
				b.subs[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes every handler registered for the event, in the order
// they subscribed. A panicking handler is recovered and logged so one
// bad subscriber cannot take down the dispatch loop.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	list := make([]subscription, len(b.subs[name]))
	copy(list, b.subs[name])
	b.mu.RUnlock()

	for _, s := range list {
		b.dispatch(name, s, payload)
	}
}

func (b *Bus) dispatch(name string, s subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", name),
				zap.Any("panic", r))
		}
	}()
	s.handler(payload)
}
