package pushkit

import "sync"

// Observer receives token lifecycle events. Callbacks run on the goroutine
// completing the operation and should return quickly.
type Observer interface {
	// TokenRegistered is called after a registration succeeded and the new
	// mapping was persisted.
	TokenRegistered(backendToken string)

	// TokenRegistrationFailed is called when a registration attempt failed.
	// Stored state is unchanged.
	TokenRegistrationFailed(err error)

	// TokenDeleted is called after an unregister call succeeded and local
	// token state was cleared.
	TokenDeleted()
}

// observerRegistry holds registered observers keyed by id, so a removed
// observer can never be invoked again and callbacks are never lost to a
// collected weak reference.
type observerRegistry struct {
	mu        sync.RWMutex
	nextID    int
	observers map[int]Observer
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{
		observers: make(map[int]Observer),
	}
}

// add registers o and returns a function that removes it.
func (r *observerRegistry) add(o Observer) (remove func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers[id] = o
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

// notify invokes fn on a snapshot of the registered observers.
func (r *observerRegistry) notify(fn func(Observer)) {
	r.mu.RLock()
	snapshot := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		snapshot = append(snapshot, o)
	}
	r.mu.RUnlock()

	for _, o := range snapshot {
		fn(o)
	}
}
