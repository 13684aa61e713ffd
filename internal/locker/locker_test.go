package locker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typerush/typerush/internal/model"
)

func TestLockSerializesSameRace(t *testing.T) {
	k := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("race-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestDifferentRacesDoNotContend(t *testing.T) {
	k := New()

	unlock := k.Lock("race-1")
	defer unlock()

	// Locking another race must not block
	done := make(chan struct{})
	go func() {
		u := k.Lock("race-2")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on unrelated race blocked")
	}
}

func TestLockIsReacquirableAfterUnlock(t *testing.T) {
	k := New()

	unlock := k.Lock("race-1")
	unlock()

	done := make(chan struct{})
	go func() {
		u := k.Lock("race-1")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released")
	}
}

func TestForgetDropsEntry(t *testing.T) {
	k := New()

	unlock := k.Lock(model.RaceID("race-1"))
	unlock()
	k.Forget("race-1")

	require.NotContains(t, k.locks, model.RaceID("race-1"))
}
