package lock

import (
	"fmt"
	"sync"
)

// Registry hands out named mutexes so that two coordinator runs in the
// same process cannot race on the same stable service. The cluster
// namespace and service name are shared mutable state; concurrent
// traffic switches against the same service are the hazard being
// guarded.
//
// The guard is process-local. Runs from separate processes still race;
// the platform's resource versioning rejects the conflicting update in
// that case.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Key builds the canonical lock key for a stable service.
func Key(namespace, service string) string {
	return fmt.Sprintf("%s/%s", namespace, service)
}

func (r *Registry) get(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	return m
}

// Acquire blocks until the named lock is held and returns the release
// function.
func (r *Registry) Acquire(key string) func() {
	m := r.get(key)
	m.Lock()
	return m.Unlock
}

// TryAcquire attempts to take the named lock without blocking. On
// success the release function and true are returned.
func (r *Registry) TryAcquire(key string) (func(), bool) {
	m := r.get(key)
	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}
