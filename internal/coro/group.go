package coro

import "time"

// Group tracks coroutines so they can be cancelled together, e.g. at round
// teardown.
type Group struct {
	rt      *Runtime
	members []*Co
}

// NewGroup returns an empty group on rt.
func NewGroup(rt *Runtime) *Group {
	return &Group{rt: rt}
}

// Go starts fn on the runtime and tracks it.
func (g *Group) Go(name string, fn func(co *Co)) *Co {
	co := g.rt.Go(name, fn)
	g.prune()
	if !co.Done() {
		g.members = append(g.members, co)
	}
	return co
}

// After is Runtime.After tracked by the group.
func (g *Group) After(name string, d time.Duration, fn func()) *Co {
	return g.Go(name, func(co *Co) {
		if co.Wait(d) {
			fn()
		}
	})
}

// Len returns the number of tracked coroutines still running.
func (g *Group) Len() int {
	g.prune()
	return len(g.members)
}

// CancelAll cancels every tracked coroutine and forgets them.
func (g *Group) CancelAll() {
	members := g.members
	g.members = nil
	for _, co := range members {
		co.Cancel()
	}
}

func (g *Group) prune() {
	kept := g.members[:0]
	for _, co := range g.members {
		if !co.Done() {
			kept = append(kept, co)
		}
	}
	for i := len(kept); i < len(g.members); i++ {
		g.members[i] = nil
	}
	g.members = kept
}
