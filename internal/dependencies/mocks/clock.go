package mocks

import (
	"time"

	"github.com/typerush/typerush/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing. Scheduled
// callbacks fire synchronously when Advance or Set moves the clock past
// their deadline.
type MockClock struct {
	CurrentTime time.Time

	pending []pendingFunc
}

type pendingFunc struct {
	at time.Time
	f  func()
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

// AfterFunc queues f to run when the clock reaches now+d
func (c *MockClock) AfterFunc(d time.Duration, f func()) {
	c.pending = append(c.pending, pendingFunc{at: c.CurrentTime.Add(d), f: f})
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.Set(c.CurrentTime.Add(d))
}

// Set sets the clock to the given time and fires any due callbacks in
// deadline order. A callback may schedule further callbacks; those fire
// too if their deadline is also due, otherwise they stay pending.
func (c *MockClock) Set(t time.Time) {
	c.CurrentTime = t

	for {
		idx := -1
		for i, p := range c.pending {
			if p.at.After(t) {
				continue
			}
			if idx == -1 || p.at.Before(c.pending[idx].at) {
				idx = i
			}
		}
		if idx == -1 {
			return
		}
		f := c.pending[idx].f
		c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
		f()
	}
}
