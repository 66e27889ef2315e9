package seat

import (
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/wire"
)

// TouchGrabHandler receives touch events while its grab is active.
type TouchGrabHandler interface {
	Enter(g *TouchGrab, surface *resource.Resource, sx, sy float64)
	Down(g *TouchGrab, timeMsec uint32, id int32, sx, sy float64)
	Up(g *TouchGrab, timeMsec uint32, id int32)
	Motion(g *TouchGrab, timeMsec uint32, id int32, sx, sy float64)
	// TouchCancel is the device's touch sequence cancellation, unrelated
	// to the grab being cancelled.
	TouchCancel(g *TouchGrab)
}

// TouchGrab is a handler on the touch grab stack.
type TouchGrab struct {
	grabNode
	Handler TouchGrabHandler
}

// NewTouchGrab wraps h in a detached grab
func NewTouchGrab(h TouchGrabHandler) *TouchGrab {
	return &TouchGrab{Handler: h}
}

func (g *TouchGrab) node() *grabNode { return &g.grabNode }
func (g *TouchGrab) handler() any    { return g.Handler }

// Capability returns CapTouch
func (g *TouchGrab) Capability() Capability { return CapTouch }

// End removes the grab from its seat's touch stack, if it is on one.
func (g *TouchGrab) End() {
	if g.seat == nil || g.state == GrabDetached {
		return
	}
	if t := g.seat.Touch(); t != nil {
		t.EndGrab(g)
	}
}

// Touch is the touch device state of a seat.
type Touch struct {
	seat        *Seat
	focus       focus
	stack       grabStack[*TouchGrab]
	defaultGrab *TouchGrab
}

func newTouch(seat *Seat) *Touch {
	t := &Touch{seat: seat}
	t.defaultGrab = NewTouchGrab(&defaultTouchGrab{touch: t})
	t.stack = newGrabStack(seat, t.defaultGrab)
	return t
}

// Seat returns the owning seat
func (t *Touch) Seat() *Seat { return t.seat }

// Capability returns CapTouch
func (t *Touch) Capability() Capability { return CapTouch }

// FocusedPeer returns the focused peer, nil if unfocused
func (t *Touch) FocusedPeer() Peer { return t.focus.peer }

// FocusedSurface returns the focused surface, nil if unfocused
func (t *Touch) FocusedSurface() *resource.Resource { return t.focus.surface }

// ActiveGrab returns the grab receiving events. It is never nil.
func (t *Touch) ActiveGrab() *TouchGrab { return t.stack.active }

// DefaultGrab returns the fallback grab
func (t *Touch) DefaultGrab() *TouchGrab { return t.defaultGrab }

// Grabs returns the stacked grabs, highest priority first
func (t *Touch) Grabs() []*TouchGrab { return t.stack.snapshot() }

// StartGrab pushes g with the given priority.
func (t *Touch) StartGrab(g *TouchGrab, priority int) {
	t.stack.start(t.seat, g, priority)
}

// EndGrab removes g from the stack. Ending a grab that is not on the stack
// is a no-op.
func (t *Touch) EndGrab(g *TouchGrab) {
	t.stack.end(t.seat, g)
}

// SetFocus focuses surface if its peer has a touch binding. The previous
// focus is replaced without an unfocus signal.
func (t *Touch) SetFocus(surface *resource.Resource, sx, sy float64) {
	peer := t.focus.lookup(t.seat, surface, CapTouch)
	if peer == nil {
		return
	}
	t.focus.set(peer, surface, t.ClearFocus)
	logger.Debugf("Touch focus on surface %d (client %d)", surface.ID(), peer.ID())
	t.seat.Signals.Focus.Emit(t)
}

// ClearFocus drops the focus and emits unfocus.
func (t *Touch) ClearFocus() {
	t.focus.reset()
	t.seat.Signals.Unfocus.Emit(t)
}

// NotifyEnter forwards a touch focus change to the active grab.
func (t *Touch) NotifyEnter(surface *resource.Resource, sx, sy float64) {
	g := t.stack.active
	g.Handler.Enter(g, surface, sx, sy)
}

// NotifyDown forwards a new touch point to the active grab.
func (t *Touch) NotifyDown(timeMsec uint32, id int32, sx, sy float64) {
	g := t.stack.active
	g.Handler.Down(g, timeMsec, id, sx, sy)
}

// NotifyUp forwards a lifted touch point to the active grab.
func (t *Touch) NotifyUp(timeMsec uint32, id int32) {
	g := t.stack.active
	g.Handler.Up(g, timeMsec, id)
}

// NotifyMotion forwards a moved touch point to the active grab.
func (t *Touch) NotifyMotion(timeMsec uint32, id int32, sx, sy float64) {
	g := t.stack.active
	g.Handler.Motion(g, timeMsec, id, sx, sy)
}

// NotifyCancel forwards a touch sequence cancellation to the active grab.
func (t *Touch) NotifyCancel() {
	g := t.stack.active
	g.Handler.TouchCancel(g)
}

func (t *Touch) reset() {
	t.stack.reset(t.seat)
	t.focus.reset()
}

// defaultTouchGrab delivers to every touch binding of the focused peer,
// each event followed by a frame.
type defaultTouchGrab struct {
	touch *Touch
}

func (d *defaultTouchGrab) Enter(g *TouchGrab, surface *resource.Resource, sx, sy float64) {
	if surface != nil {
		d.touch.SetFocus(surface, sx, sy)
	} else {
		d.touch.ClearFocus()
	}
}

func (d *defaultTouchGrab) Down(g *TouchGrab, timeMsec uint32, id int32, sx, sy float64) {
	t := d.touch
	s := t.seat
	if t.focus.peer == nil {
		return
	}
	serial := s.serials.NextSerial()
	for _, b := range t.focus.bindings(CapTouch) {
		b.Send(wire.Message{
			Op:      wire.TouchDown,
			Serial:  serial,
			Time:    timeMsec,
			Surface: surfaceID(t.focus.surface),
			ID:      id,
			X:       wire.FixedFromFloat(sx),
			Y:       wire.FixedFromFloat(sy),
		})
		b.Send(wire.Message{Op: wire.TouchFrame})
		s.lastTouchSerial = serial
	}
}

func (d *defaultTouchGrab) Up(g *TouchGrab, timeMsec uint32, id int32) {
	t := d.touch
	s := t.seat
	if t.focus.peer == nil {
		return
	}
	serial := s.serials.NextSerial()
	for _, b := range t.focus.bindings(CapTouch) {
		b.Send(wire.Message{Op: wire.TouchUp, Serial: serial, Time: timeMsec, ID: id})
		b.Send(wire.Message{Op: wire.TouchFrame})
	}
}

func (d *defaultTouchGrab) Motion(g *TouchGrab, timeMsec uint32, id int32, sx, sy float64) {
	t := d.touch
	if t.focus.peer == nil {
		return
	}
	for _, b := range t.focus.bindings(CapTouch) {
		b.Send(wire.Message{
			Op:   wire.TouchMotion,
			Time: timeMsec,
			ID:   id,
			X:    wire.FixedFromFloat(sx),
			Y:    wire.FixedFromFloat(sy),
		})
		b.Send(wire.Message{Op: wire.TouchFrame})
	}
}

func (d *defaultTouchGrab) TouchCancel(g *TouchGrab) {
	t := d.touch
	if t.focus.peer == nil {
		return
	}
	for _, b := range t.focus.bindings(CapTouch) {
		b.Send(wire.Message{Op: wire.TouchCancel})
	}
}
