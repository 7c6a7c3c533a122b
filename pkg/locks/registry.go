// Package locks implements per-resource mutual exclusion with TTL
// expiry. TTL locks avoid deadlock from crashed holders without
// requiring heartbeats: a lock that is never released simply ages out.
//
// Expiry is lazy and deterministic: a full sweep runs before every
// lock operation, and every swept lock produces a lock.expired event.
// No expiry is silent.
package locks

import (
	"errors"
	"sync"
	"time"

	"github.com/daviddao/agentbridge/pkg/model"
)

var (
	// ErrAlreadyLocked is returned by Acquire when an unexpired lock
	// exists for the resource, regardless of holder.
	ErrAlreadyLocked = errors.New("resource already locked")

	// ErrNotFound is returned when no lock exists for the resource.
	ErrNotFound = errors.New("lock not found")

	// ErrExpired is returned by Renew when the lock existed but had
	// already passed its expiry. There is no renew-through-expiry.
	ErrExpired = errors.New("lock expired")
)

// Publisher receives the registry's state-change events. Satisfied by
// *event.Broadcaster.
type Publisher interface {
	Publish(eventType string, data any) model.Event
}

// Registry owns the lock table. Safe for concurrent use. The registry
// emits its own lock.created/renewed/released/expired events; callers
// add none.
type Registry struct {
	mu     sync.Mutex
	locks  map[string]*model.Lock
	events Publisher

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates an empty registry emitting events to the publisher.
func New(events Publisher) *Registry {
	return &Registry{
		locks:  make(map[string]*model.Lock),
		events: events,
		now:    time.Now,
	}
}

// Acquire creates a lock for the resource. Fails with ErrAlreadyLocked
// if an unexpired lock exists for it, whoever holds it. A full expiry
// sweep runs first.
func (r *Registry) Acquire(resource, holder string, ttl time.Duration) (*model.Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	if _, held := r.locks[resource]; held {
		return nil, ErrAlreadyLocked
	}

	now := r.now().UTC()
	lock := &model.Lock{
		Resource:  resource,
		Holder:    holder,
		TTLSec:    int(ttl / time.Second),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	r.locks[resource] = lock

	out := *lock
	r.events.Publish(model.EventLockCreated, out)
	return &out, nil
}

// Renew extends an existing lock: CreatedAt is reset to now and the
// TTL replaced. A lock that is present but expired is swept (with its
// expiry event) and the renew fails with ErrExpired; an absent lock
// fails with ErrNotFound.
func (r *Registry) Renew(resource string, ttl time.Duration) (*model.Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check before sweeping so that an expired lock is distinguishable
	// from one that never existed.
	lock, held := r.locks[resource]
	expired := held && lock.Expired(r.now().UTC())
	r.sweepLocked()

	if !held {
		return nil, ErrNotFound
	}
	if expired {
		return nil, ErrExpired
	}

	now := r.now().UTC()
	lock.TTLSec = int(ttl / time.Second)
	lock.CreatedAt = now
	lock.ExpiresAt = now.Add(ttl)

	out := *lock
	r.events.Publish(model.EventLockRenewed, out)
	return &out, nil
}

// Release removes the lock unconditionally if present. The holder is
// advisory and deliberately not checked: any caller may release any
// resource by name.
func (r *Registry) Release(resource string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	lock, held := r.locks[resource]
	if !held {
		return ErrNotFound
	}
	delete(r.locks, resource)

	r.events.Publish(model.EventLockReleased, *lock)
	return nil
}

// Get returns a copy of the lock for the resource, or nil. No sweep:
// reads do not mutate.
func (r *Registry) Get(resource string) *model.Lock {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, held := r.locks[resource]
	if !held {
		return nil
	}
	out := *lock
	return &out
}

// List returns copies of all active locks after a sweep.
func (r *Registry) List() []*model.Lock {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	out := make([]*model.Lock, 0, len(r.locks))
	for _, lock := range r.locks {
		cp := *lock
		out = append(out, &cp)
	}
	return out
}

// Clear drops all locks without events. Test isolation only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks = make(map[string]*model.Lock)
}

// sweepLocked removes every expired lock, emitting a lock.expired
// event for each. Must be called with r.mu held.
func (r *Registry) sweepLocked() {
	now := r.now().UTC()
	for resource, lock := range r.locks {
		if lock.Expired(now) {
			delete(r.locks, resource)
			r.events.Publish(model.EventLockExpired, *lock)
		}
	}
}
