// Package coro runs cooperative coroutines on a virtual clock.
//
// Every coroutine is backed by a goroutine, but control is handed off
// explicitly: exactly one coroutine (or the caller of Tick) runs at a time.
// State shared between coroutines of one Runtime therefore needs no locking.
// Only Post is safe to call from other goroutines.
package coro

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"
)

// Runtime owns the virtual clock and all parked continuations.
type Runtime struct {
	now      time.Duration
	seq      uint64
	timers   timerHeap
	waiting  []waiter
	live     map[*Co]struct{}
	current  *Co
	logger   *slog.Logger
	postMu   sync.Mutex
	posted   []func()
	stopping bool
}

type timer struct {
	at  time.Duration
	seq uint64
	co  *Co
	gen uint64
}

type waiter struct {
	co  *Co
	gen uint64
}

type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at == h[j].at {
		return h[i].seq < h[j].seq
	}
	return h[i].at < h[j].at
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// New creates a runtime at virtual time zero.
func New(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{live: make(map[*Co]struct{}), logger: logger}
}

// Now returns the virtual time elapsed since the runtime was created.
func (r *Runtime) Now() time.Duration { return r.now }

// Live reports how many coroutines have not finished.
func (r *Runtime) Live() int { return len(r.live) }

// Go starts fn as a coroutine. fn runs synchronously until its first
// suspension point, then Go returns.
func (r *Runtime) Go(name string, fn func(co *Co)) *Co {
	co := &Co{
		rt:     r,
		name:   name,
		resume: make(chan bool),
		yield:  make(chan struct{}),
	}
	r.live[co] = struct{}{}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("coroutine panicked", "coroutine", co.name, "panic", p)
			}
			co.done = true
			delete(r.live, co)
			co.yield <- struct{}{}
		}()
		if ok := <-co.resume; !ok {
			return
		}
		fn(co)
	}()
	r.switchTo(co, !r.stopping)
	return co
}

// After runs fn once d has elapsed, unless the returned coroutine is
// cancelled first.
func (r *Runtime) After(name string, d time.Duration, fn func()) *Co {
	return r.Go(name, func(co *Co) {
		if co.Wait(d) {
			fn()
		}
	})
}

// Post queues fn to run on the runtime's thread at the start of the next
// Tick. Safe for concurrent use.
func (r *Runtime) Post(fn func()) {
	r.postMu.Lock()
	r.posted = append(r.posted, fn)
	r.postMu.Unlock()
}

// Tick advances the clock by dt. Timed continuations run in fire-time order
// (ties in scheduling order), then coroutines parked on WaitTick/WaitUntil
// before this call are resumed.
func (r *Runtime) Tick(dt time.Duration) {
	r.drainPosted()

	waiting := r.waiting
	r.waiting = nil

	target := r.now + dt
	for len(r.timers) > 0 && r.timers[0].at <= target {
		t := heap.Pop(&r.timers).(timer)
		if t.at > r.now {
			r.now = t.at
		}
		if !t.co.resumable(t.gen) {
			continue
		}
		r.switchTo(t.co, true)
	}
	r.now = target

	for _, w := range waiting {
		if !w.co.resumable(w.gen) {
			continue
		}
		if w.co.cond != nil && !w.co.cond() {
			r.waiting = append(r.waiting, w)
			continue
		}
		r.switchTo(w.co, true)
	}
}

// Close cancels every live coroutine. Later Go calls start and immediately
// observe cancellation.
func (r *Runtime) Close() {
	r.stopping = true
	cos := make([]*Co, 0, len(r.live))
	for co := range r.live {
		cos = append(cos, co)
	}
	for _, co := range cos {
		co.Cancel()
	}
	r.timers = nil
	r.waiting = nil
}

func (r *Runtime) drainPosted() {
	r.postMu.Lock()
	fns := r.posted
	r.posted = nil
	r.postMu.Unlock()
	for _, fn := range fns {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("posted function panicked", "panic", p)
				}
			}()
			fn()
		}()
	}
}

func (r *Runtime) switchTo(co *Co, ok bool) {
	prev := r.current
	r.current = co
	co.parked = false
	co.resume <- ok
	<-co.yield
	r.current = prev
}

func (r *Runtime) nextSeq() uint64 {
	r.seq++
	return r.seq
}
