package application

import "sync"

// EventKind names a panel-level event published by the broker.
type EventKind string

const (
	// EventCollectionUpdated fires after a sync replaces the cached
	// credential collection.
	EventCollectionUpdated EventKind = "collection_updated"

	// EventBatchCompleted fires when a batch job reaches its terminal state.
	EventBatchCompleted EventKind = "batch_completed"
)

// Event is a discrete notification with an optional subject (a job id for
// batch events, empty for collection updates).
type Event struct {
	Kind    EventKind
	Subject string
}

// Broker is an explicit subscribe/unsubscribe event source. Subscribers get
// a buffered channel; events are dropped for subscribers that fall behind
// rather than blocking the publisher.
type Broker struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its event channel plus an
// unsubscribe function. Unsubscribing closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan Event, 16)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers the event to every current subscriber without blocking.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
