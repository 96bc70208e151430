// Package sched provides the deferred-callback scheduler and clock that the
// forwarding core is injected with (spec §5: "the scheduler is process-wide
// ... inject clock/scheduler into every component via construction rather
// than globals").
package sched

import (
	"sync"
	"time"
)

// CancelFunc cancels a previously scheduled callback. Cancellation is
// synchronous and idempotent (spec §5).
type CancelFunc func()

// Clock is the scheduler/clock boundary every table and pipeline is
// constructed with, grounded on the teacher's ndn.Timer interface
// (Now/Schedule/Sleep), minus Nonce which is a security concern out of
// this core's scope.
type Clock interface {
	Now() time.Time
	Schedule(d time.Duration, f func()) CancelFunc
	Sleep(d time.Duration)
}

// SystemClock is the real-time Clock backed by the Go runtime timer wheel.
type SystemClock struct{}

// NewSystemClock constructs a SystemClock.
func NewSystemClock() *SystemClock { return &SystemClock{} }

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Schedule runs f once after d, on its own goroutine, as every deferred
// forwarding-core action (PIT expiry, reassembly timeout, straggler timer,
// policy eviction) is defined to run as a separate event-loop turn (spec §5).
func (SystemClock) Schedule(d time.Duration, f func()) CancelFunc {
	t := time.AfterFunc(d, f)
	var once sync.Once
	return func() {
		once.Do(func() { t.Stop() })
	}
}

// Sleep blocks the calling goroutine for d.
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// VirtualClock is a deterministic test Clock: time only advances when
// Advance is called, and due callbacks fire in non-decreasing-deadline
// order with ties broken by insertion order (spec §5), mirroring the
// teacher's DummyTimer.MoveForward.
type VirtualClock struct {
	mu    sync.Mutex
	now   time.Time
	q     *queue[func(), int64]
	nonce int64
}

// NewVirtualClock constructs a VirtualClock starting at the Unix epoch.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{
		now: time.Unix(0, 0).UTC(),
		q:   newQueue[func(), int64](),
	}
}

// Now returns the clock's current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Schedule queues f to run at now+d (virtual time), returning a cancel
// handle. The callback only fires on a subsequent Advance call.
func (c *VirtualClock) Schedule(d time.Duration, f func()) CancelFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := c.now.Add(d).UnixNano()
	it := c.q.Push(f, deadline)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.q.Remove(it)
	}
}

// Sleep is not supported on VirtualClock: tests drive time explicitly via
// Advance rather than blocking a goroutine on it.
func (c *VirtualClock) Sleep(d time.Duration) {
	panic("sched: VirtualClock.Sleep is not supported, call Advance instead")
}

// Advance moves the virtual clock forward by d and synchronously fires
// every callback whose deadline is now due, in deadline order.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	deadline := c.now.UnixNano()

	var due []func()
	for c.q.Len() > 0 {
		_, p := c.q.Peek()
		if p > deadline {
			break
		}
		due = append(due, c.q.Pop())
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}
