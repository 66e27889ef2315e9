package seat

import (
	"slices"

	"github.com/bnema/wayseat/internal/logger"
)

// GrabAction tells a grab it was suspended by a higher priority grab or
// resumed after the grab above it ended.
type GrabAction int

const (
	GrabPush GrabAction = iota + 1
	GrabPop
)

func (a GrabAction) String() string {
	switch a {
	case GrabPush:
		return "push"
	case GrabPop:
		return "pop"
	default:
		return "unknown"
	}
}

// GrabState is the stack membership of a grab.
type GrabState int

const (
	// GrabDetached grabs are on no stack. The default grab is detached
	// while an override grab is active.
	GrabDetached GrabState = iota
	// GrabQueued grabs are on a stack but outranked.
	GrabQueued
	// GrabActive grabs receive the device's events.
	GrabActive
)

func (s GrabState) String() string {
	switch s {
	case GrabDetached:
		return "detached"
	case GrabQueued:
		return "queued"
	case GrabActive:
		return "active"
	default:
		return "unknown"
	}
}

// Grab is the part of a pointer, keyboard or touch grab that does not
// depend on the device kind.
type Grab interface {
	Seat() *Seat
	Priority() int
	State() GrabState
	Capability() Capability
}

// Canceler is implemented by grab handlers that want to know when their
// grab is taken off the stack.
type Canceler interface {
	Cancel(g Grab)
}

// GrabActioner is implemented by grab handlers that want suspend/resume
// notifications.
type GrabActioner interface {
	GrabAction(g Grab, action GrabAction)
}

// grabNode is the stack bookkeeping embedded in every grab kind. seat is
// rebound whenever the grab changes hands; priority is fixed while the grab
// is on a stack.
type grabNode struct {
	seat     *Seat
	priority int
	state    GrabState
	ending   bool
}

// Seat returns the seat the grab was last bound to
func (n *grabNode) Seat() *Seat {
	return n.seat
}

// Priority returns the priority the grab was started with
func (n *grabNode) Priority() int {
	return n.priority
}

// State returns the grab's stack membership
func (n *grabNode) State() GrabState {
	return n.state
}

type stackable interface {
	comparable
	Grab
	node() *grabNode
	handler() any
}

// grabStack is the priority-ordered grab stack of one device. entries are
// sorted by descending priority, equal priorities in insertion order. active
// is the front entry, or fallback when entries is empty.
type grabStack[G stackable] struct {
	entries  []G
	active   G
	fallback G
}

func newGrabStack[G stackable](seat *Seat, fallback G) grabStack[G] {
	n := fallback.node()
	n.seat = seat
	n.state = GrabActive
	return grabStack[G]{active: fallback, fallback: fallback}
}

func (s *grabStack[G]) index(g G) int {
	return slices.Index(s.entries, g)
}

func (s *grabStack[G]) contains(g G) bool {
	return s.index(g) >= 0
}

// start inserts g ahead of the first entry with a strictly lower priority.
// g only becomes active when it lands at the front.
func (s *grabStack[G]) start(seat *Seat, g G, priority int) {
	if g == s.active || g == s.fallback || s.contains(g) {
		return
	}

	n := g.node()
	n.seat = seat
	n.priority = priority
	n.state = GrabQueued

	pos := len(s.entries)
	for i, e := range s.entries {
		if e.node().priority < priority {
			pos = i
			break
		}
	}
	s.entries = slices.Insert(s.entries, pos, g)

	if pos != 0 {
		logger.Debugf("Queued %s grab at position %d (priority %d)", g.Capability(), pos, priority)
		return
	}

	old := s.active
	if old != g {
		if old == s.fallback {
			old.node().state = GrabDetached
		} else {
			old.node().state = GrabQueued
		}
		notifyGrabAction(old, GrabPush)
	}
	s.active = g
	n.state = GrabActive
	logger.Debugf("Started %s grab (priority %d, depth %d)", g.Capability(), priority, len(s.entries))
}

// end removes g from the stack, cancelling it first, and activates the new
// front entry or the fallback.
func (s *grabStack[G]) end(seat *Seat, g G) {
	if n := g.node(); s.contains(g) {
		// a cancel hook may end its own grab again
		if !n.ending {
			n.ending = true
			notifyGrabCancel(g)
			n.ending = false
		}
		if i := s.index(g); i >= 0 {
			s.entries = slices.Delete(s.entries, i, i+1)
		}
		n.state = GrabDetached
	}

	old := s.active
	next := s.fallback
	if len(s.entries) > 0 {
		next = s.entries[0]
	}
	s.active = next

	n := next.node()
	n.seat = seat
	n.state = GrabActive
	if next != old {
		logger.Debugf("Resumed %s grab (depth %d)", next.Capability(), len(s.entries))
		notifyGrabAction(next, GrabPop)
	}
}

// reset drops every entry and makes the fallback active again. Dropped
// grabs are cancelled from the top of the stack down.
func (s *grabStack[G]) reset(seat *Seat) {
	dropped := s.entries
	s.entries = nil
	s.active = s.fallback

	n := s.fallback.node()
	n.seat = seat
	n.state = GrabActive

	for _, g := range dropped {
		g.node().state = GrabDetached
		notifyGrabCancel(g)
	}
}

func (s *grabStack[G]) depth() int {
	return len(s.entries)
}

func (s *grabStack[G]) snapshot() []G {
	return slices.Clone(s.entries)
}

func notifyGrabAction[G stackable](g G, action GrabAction) {
	if h, ok := g.handler().(GrabActioner); ok {
		h.GrabAction(g, action)
	}
}

func notifyGrabCancel[G stackable](g G) {
	if h, ok := g.handler().(Canceler); ok {
		h.Cancel(g)
	}
}
