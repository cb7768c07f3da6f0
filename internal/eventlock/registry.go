// Package eventlock provides one mutex per event id so that seat allocation
// for an event is serialized while different events proceed in parallel.
package eventlock

import "sync"

// Registry hands out per-event mutexes.  Entries are created on first use
// and never removed; the map grows with the number of distinct events ever
// locked.
type Registry struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{locks: make(map[int64]*sync.Mutex)}
}

func (r *Registry) get(eventID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[eventID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[eventID] = m
	}
	return m
}

// Lock blocks until the event's mutex is held and returns the function that
// releases it.
func (r *Registry) Lock(eventID int64) (unlock func()) {
	m := r.get(eventID)
	m.Lock()
	return m.Unlock
}

// Len reports how many events have a mutex.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
