package locker

import (
	"sync"

	"github.com/typerush/typerush/internal/model"
)

// RaceLocker serializes the critical sections that touch a race's shared
// state (the finish counter and the active-participant count). Locking is
// scoped to a single race, so different races never contend with each other.
type RaceLocker interface {
	// Lock acquires the lock for the given race and returns its unlock func
	Lock(id model.RaceID) func()
	// Forget drops the lock entry for a race that has reached a terminal
	// state. A later Lock for the same race recreates the entry.
	Forget(id model.RaceID)
}

// KeyedMutex is an in-memory RaceLocker backed by one mutex per race ID.
// Entries are created on first use and dropped via Forget once a race
// reaches its terminal state.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[model.RaceID]*sync.Mutex
}

// New creates a new KeyedMutex
func New() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[model.RaceID]*sync.Mutex),
	}
}

var _ RaceLocker = (*KeyedMutex)(nil)

// Lock acquires the per-race mutex, creating it if needed
func (k *KeyedMutex) Lock(id model.RaceID) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Forget drops the mutex for a race that has reached a terminal state.
// Callers must not hold the race's lock when calling this.
func (k *KeyedMutex) Forget(id model.RaceID) {
	k.mu.Lock()
	delete(k.locks, id)
	k.mu.Unlock()
}
