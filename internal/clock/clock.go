// Package clock abstracts time so stage durations and run timestamps can be
// made deterministic in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is an interface for time operations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// StepClock returns Start on the first call and advances by Step on every
// call after that. It is safe for concurrent use.
type StepClock struct {
	Start time.Time
	Step  time.Duration

	mu    sync.Mutex
	calls int
}

// Now returns Start + n*Step for the n-th call (zero-based).
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.Start.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return t
}

var (
	_ Clock = RealClock{}
	_ Clock = (*StepClock)(nil)
)
