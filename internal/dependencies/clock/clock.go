package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// AfterFunc runs f in its own goroutine after d has elapsed
	AfterFunc(d time.Duration, f func())
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f via time.AfterFunc
func (c *RealClock) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
