// Package timeutil provides a testable abstraction over time operations.
package timeutil

import (
	"sort"
	"sync"
	"time"
)

// Clock provides the time operations used by the field controller and the
// trajectory tracker.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// AfterFunc waits for the duration to elapse and then calls f in its
	// own goroutine.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the Timer from firing. It returns false if the timer
	// has already fired or been stopped.
	Stop() bool
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// AfterFunc schedules f with time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// MockClock is a manually controlled clock for testing. Scheduled callbacks
// run synchronously inside Advance, in deadline order.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*MockTimer
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the mocked duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Set sets the mock clock to a specific time without firing timers.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// AfterFunc registers f to run once the clock has been advanced past d.
func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &MockTimer{clock: c, deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the mock clock forward by d and fires any expired timers.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*MockTimer
	pending := c.timers[:0]
	for _, t := range c.timers {
		if !t.deadline.After(now) {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, t := range due {
		if t.fire() {
			t.fn()
		}
	}
}

// PendingTimers returns the number of timers that have not fired or been stopped.
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.isDone() {
			n++
		}
	}
	return n
}

// MockTimer is the Timer returned by MockClock.AfterFunc.
type MockTimer struct {
	clock    *MockClock
	deadline time.Time
	fn       func()

	mu   sync.Mutex
	done bool
}

// Stop cancels the timer.
func (t *MockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *MockTimer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *MockTimer) isDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
