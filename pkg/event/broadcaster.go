// Package event implements the bridge's state-change broadcast: a
// fixed-capacity ring of recent events plus a registry of live
// subscribers.
//
// The ring exists purely to give newly-connecting subscribers recent
// context (catch-up); it is not a durable audit log. That role belongs
// to the contract store's persisted history and, optionally, the
// SQLite journal. Bounding the ring keeps memory flat regardless of
// event volume.
package event

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/agentbridge/pkg/model"
)

// DefaultCapacity is the default replay ring capacity.
const DefaultCapacity = 100

// subscriberChannelSize is the buffer size for each subscriber's live
// channel. A full channel means the subscriber is too slow; further
// events are dropped for that subscriber only.
const subscriberChannelSize = 256

// Subscription is one subscriber's view of the event stream. Replay
// holds the ring contents at subscription time, in original publish
// order; C delivers events published after that point. The two are
// gapless: registration and the replay snapshot are taken under one
// lock.
type Subscription struct {
	Replay []model.Event
	C      <-chan model.Event

	broadcaster *Broadcaster
	channel     chan model.Event
	once        sync.Once
}

// Close deregisters the subscription. No further events are delivered
// after Close returns. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broadcaster.unsubscribe(s)
	})
}

// Broadcaster fans state-change events out to subscribers and retains
// the most recent events for replay. Safe for concurrent use.
type Broadcaster struct {
	mu sync.Mutex

	// ring is a fixed-capacity circular buffer. next is the position
	// the next event will be written to; total counts every event ever
	// published, so total >= capacity means the ring has wrapped.
	ring  []model.Event
	next  int
	total uint64

	subscribers map[*Subscription]struct{}
}

// New creates a broadcaster with the given ring capacity. A capacity
// of zero or less uses DefaultCapacity.
func New(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broadcaster{
		ring:        make([]model.Event, capacity),
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Publish constructs an event with a fresh ID and the current UTC
// timestamp, inserts it into the ring, and delivers it to every
// current subscriber. Delivery is non-blocking: a subscriber whose
// channel is full misses the event, all others are unaffected.
func (b *Broadcaster) Publish(eventType string, data any) model.Event {
	ev := model.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.ring[b.next] = ev
	b.next = (b.next + 1) % len(b.ring)
	b.total++

	for sub := range b.subscribers {
		select {
		case sub.channel <- ev:
		default:
		}
	}
	return ev
}

// Subscribe registers a new subscriber and returns its subscription.
// The caller must Close the subscription when done with it.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		broadcaster: b,
		channel:     make(chan model.Event, subscriberChannelSize),
		Replay:      b.snapshotLocked(),
	}
	sub.C = sub.channel
	b.subscribers[sub] = struct{}{}
	return sub
}

// Snapshot returns the current ring contents in publish order.
func (b *Broadcaster) Snapshot() []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// snapshotLocked reconstructs chronological order from the wrap
// pointer: once the ring is full the oldest entry sits at next, not at
// index 0.
func (b *Broadcaster) snapshotLocked() []model.Event {
	capacity := len(b.ring)
	if b.total < uint64(capacity) {
		return append([]model.Event(nil), b.ring[:b.next]...)
	}
	out := make([]model.Event, 0, capacity)
	out = append(out, b.ring[b.next:]...)
	out = append(out, b.ring[:b.next]...)
	return out
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Total returns the number of events ever published.
func (b *Broadcaster) Total() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *Broadcaster) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
}
