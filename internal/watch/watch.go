// Package watch fans out store change notifications to subscribers.
//
// Each committed mutation publishes one Change. Subscribers receive changes
// for the collections they asked for; ordering is guaranteed per collection
// only, matching the store's per-collection consistency.
package watch

import (
	"sync"
	"time"
)

// Collection names a subscribable collection.
type Collection string

const (
	CollectionCharacters Collection = "characters"
	CollectionAspects    Collection = "aspects"
	CollectionScenes     Collection = "scenes"
	CollectionNPCs       Collection = "npcs"
	CollectionSessions   Collection = "sessions"
	CollectionLog        Collection = "log"
)

// Op describes what happened to a document.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Change is one store mutation notification.
type Change struct {
	Collection Collection
	Op         Op
	ID         string
	At         time.Time
}

// Subscription delivers changes until Unsubscribe is called.
type Subscription struct {
	C      <-chan Change
	cancel func()
}

// Unsubscribe tears the subscription down. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()
}

type subscriber struct {
	collections map[Collection]struct{} // nil means all collections
	ch          chan Change
}

// Broker is an in-process change fanout. Writers never block: when a
// subscriber's buffer is full the oldest pending change is dropped in favor
// of the newest. Consumers reload affected collections rather than replay
// individual changes, so dropped intermediates are harmless.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*subscriber)}
}

const subscriberBuffer = 64

// Subscribe registers for changes on the given collections. With no
// collections, the subscriber receives every change.
func (b *Broker) Subscribe(collections ...Collection) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filter map[Collection]struct{}
	if len(collections) > 0 {
		filter = make(map[Collection]struct{}, len(collections))
		for _, c := range collections {
			filter[c] = struct{}{}
		}
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber{collections: filter, ch: make(chan Change, subscriberBuffer)}
	if b.closed {
		close(sub.ch)
	} else {
		b.subs[id] = sub
	}

	return &Subscription{
		C: sub.ch,
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if existing, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(existing.ch)
			}
		},
	}
}

// Publish delivers a change to every matching subscriber without blocking.
func (b *Broker) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.collections != nil {
			if _, ok := sub.collections[change.Collection]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- change:
		default:
			// Buffer full: shed the oldest change, keep the newest.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- change:
			default:
			}
		}
	}
}

// Close tears down every subscription. Publishing after Close is a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
