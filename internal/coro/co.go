package coro

import (
	"container/heap"
	"time"
)

// Co is a handle to one coroutine.
type Co struct {
	rt        *Runtime
	name      string
	resume    chan bool
	yield     chan struct{}
	gen       uint64
	parked    bool
	cancelled bool
	done      bool
	cond      func() bool
}

// Name returns the label given at start.
func (c *Co) Name() string { return c.name }

// Done reports whether the coroutine has returned.
func (c *Co) Done() bool { return c.done }

// Cancelled reports whether Cancel has been called.
func (c *Co) Cancelled() bool { return c.cancelled }

// Now is shorthand for the runtime clock.
func (c *Co) Now() time.Duration { return c.rt.now }

// Wait suspends for d of virtual time. It returns false when the coroutine
// was cancelled; the caller must return promptly. d <= 0 waits one tick.
func (c *Co) Wait(d time.Duration) bool {
	if d <= 0 {
		return c.WaitTick()
	}
	if !c.enter() {
		return false
	}
	c.gen++
	c.cond = nil
	heap.Push(&c.rt.timers, timer{at: c.rt.now + d, seq: c.rt.nextSeq(), co: c, gen: c.gen})
	return c.park()
}

// WaitTick suspends until the next Tick.
func (c *Co) WaitTick() bool {
	if !c.enter() {
		return false
	}
	c.gen++
	c.cond = nil
	c.rt.waiting = append(c.rt.waiting, waiter{co: c, gen: c.gen})
	return c.park()
}

// WaitUntil suspends until cond reports true. cond is evaluated once per
// Tick while parked, and once immediately.
func (c *Co) WaitUntil(cond func() bool) bool {
	if !c.enter() {
		return false
	}
	if cond() {
		return true
	}
	c.gen++
	c.cond = cond
	c.rt.waiting = append(c.rt.waiting, waiter{co: c, gen: c.gen})
	return c.park()
}

// Cancel stops the coroutine. A parked coroutine is resumed immediately so
// its deferred calls run; a running one sees false from its next Wait.
// Safe to call more than once.
func (c *Co) Cancel() {
	if c.done || c.cancelled {
		return
	}
	c.cancelled = true
	if !c.parked {
		return
	}
	c.gen++
	c.rt.switchTo(c, false)
}

func (c *Co) enter() bool {
	if c.rt.current != c {
		panic("coro: " + c.name + " suspended outside its own goroutine")
	}
	return !c.cancelled
}

func (c *Co) park() bool {
	c.parked = true
	c.yield <- struct{}{}
	ok := <-c.resume
	c.cond = nil
	return ok && !c.cancelled
}

func (c *Co) resumable(gen uint64) bool {
	return !c.done && !c.cancelled && c.parked && c.gen == gen
}
