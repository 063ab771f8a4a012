package events

import (
	"sync"
	"sync/atomic"
)

const (
	defaultBufferSize  = 100
	priorityBufferSize = 50
)

type subscription struct {
	ch     chan Event
	filter Filter
}

// EventBus fans turn events out to subscribers. Regular subscribers have
// a bounded buffer that drops the oldest event when full, so a slow reader
// never stalls a turn. Priority subscribers only see terminal events and
// are delivered to with a blocking send.
type EventBus struct {
	mu         sync.RWMutex
	regular    []*subscription
	priority   []*subscription
	bufferSize int
	dropped    atomic.Int64
	closed     bool
}

// New creates a bus whose regular subscribers buffer bufferSize events.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe receives events of the given types from every session. No types
// means all events.
func (b *EventBus) Subscribe(types ...string) <-chan Event {
	return b.SubscribeFilter(Filter{Types: types})
}

// SubscribeFilter receives the events matching f.
func (b *EventBus) SubscribeFilter(f Filter) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan Event, b.bufferSize), filter: f}
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	b.regular = append(b.regular, sub)
	return sub.ch
}

// SubscribePriority receives every event sent with PublishPriority without
// loss. The reader must keep up or publishers block.
func (b *EventBus) SubscribePriority() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan Event, priorityBufferSize)}
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	b.priority = append(b.priority, sub)
	return sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *EventBus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regular = without(b.regular, ch)
	b.priority = without(b.priority, ch)
}

func without(subs []*subscription, ch <-chan Event) []*subscription {
	kept := subs[:0]
	for _, sub := range subs {
		if sub.ch == ch {
			close(sub.ch)
			continue
		}
		kept = append(kept, sub)
	}
	return kept
}

// Publish delivers an event to matching regular subscribers.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.closed {
		b.deliver(e)
	}
}

// PublishPriority delivers a terminal event to regular and priority
// subscribers.
func (b *EventBus) PublishPriority(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.deliver(e)
	for _, sub := range b.priority {
		if sub.filter.Matches(e) {
			sub.ch <- e
		}
	}
}

// deliver must be called with the read lock held.
func (b *EventBus) deliver(e Event) {
	for _, sub := range b.regular {
		if !sub.filter.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
			continue
		default:
		}
		// Full: evict the oldest event and retry once.
		select {
		case <-sub.ch:
			b.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// DroppedCount returns how many events were discarded for slow readers.
func (b *EventBus) DroppedCount() int64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.regular {
		close(sub.ch)
	}
	for _, sub := range b.priority {
		close(sub.ch)
	}
	b.regular, b.priority = nil, nil
}
