package seat

import (
	"slices"

	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/wire"
)

// ButtonState is wl_pointer.button_state
type ButtonState uint32

const (
	ButtonReleased ButtonState = 0
	ButtonPressed  ButtonState = 1
)

// AxisOrientation is wl_pointer.axis
type AxisOrientation uint32

const (
	AxisVertical   AxisOrientation = 0
	AxisHorizontal AxisOrientation = 1
)

// AxisSource is wl_pointer.axis_source
type AxisSource uint32

const (
	AxisSourceWheel      AxisSource = 0
	AxisSourceFinger     AxisSource = 1
	AxisSourceContinuous AxisSource = 2
	AxisSourceWheelTilt  AxisSource = 3
)

// AxisEvent is one scroll step on one axis.
type AxisEvent struct {
	Orientation AxisOrientation
	Value       float64
	Discrete    int32
	Source      AxisSource
}

// PointerGrabHandler receives pointer events while its grab is active.
type PointerGrabHandler interface {
	Enter(g *PointerGrab, surface *resource.Resource, sx, sy float64)
	Motion(g *PointerGrab, timeMsec uint32, sx, sy float64)
	Button(g *PointerGrab, timeMsec, button uint32, state ButtonState)
	Axis(g *PointerGrab, timeMsec uint32, axis AxisEvent)
	Frame(g *PointerGrab)
}

// PointerGrab is a handler on the pointer grab stack.
type PointerGrab struct {
	grabNode
	Handler PointerGrabHandler
}

// NewPointerGrab wraps h in a detached grab
func NewPointerGrab(h PointerGrabHandler) *PointerGrab {
	return &PointerGrab{Handler: h}
}

func (g *PointerGrab) node() *grabNode { return &g.grabNode }
func (g *PointerGrab) handler() any    { return g.Handler }

// Capability returns CapPointer
func (g *PointerGrab) Capability() Capability { return CapPointer }

// End removes the grab from its seat's pointer stack, if it is on one.
func (g *PointerGrab) End() {
	if g.seat == nil || g.state == GrabDetached {
		return
	}
	if p := g.seat.Pointer(); p != nil {
		p.EndGrab(g)
	}
}

// Pointer is the pointer device state of a seat.
type Pointer struct {
	seat        *Seat
	focus       focus
	stack       grabStack[*PointerGrab]
	defaultGrab *PointerGrab

	// buttons currently held, in press order
	buttons []uint32
	sx, sy  float64
}

func newPointer(seat *Seat) *Pointer {
	p := &Pointer{seat: seat}
	p.defaultGrab = NewPointerGrab(&defaultPointerGrab{pointer: p})
	p.stack = newGrabStack(seat, p.defaultGrab)
	return p
}

// Seat returns the owning seat
func (p *Pointer) Seat() *Seat { return p.seat }

// Capability returns CapPointer
func (p *Pointer) Capability() Capability { return CapPointer }

// FocusedPeer returns the focused peer, nil if unfocused
func (p *Pointer) FocusedPeer() Peer { return p.focus.peer }

// FocusedSurface returns the focused surface, nil if unfocused
func (p *Pointer) FocusedSurface() *resource.Resource { return p.focus.surface }

// ActiveGrab returns the grab receiving events. It is never nil.
func (p *Pointer) ActiveGrab() *PointerGrab { return p.stack.active }

// DefaultGrab returns the fallback grab
func (p *Pointer) DefaultGrab() *PointerGrab { return p.defaultGrab }

// Grabs returns the stacked grabs, highest priority first
func (p *Pointer) Grabs() []*PointerGrab { return p.stack.snapshot() }

// ButtonCount returns how many buttons are held down
func (p *Pointer) ButtonCount() int { return len(p.buttons) }

// Position returns the last surface-local position seen by the device
func (p *Pointer) Position() (float64, float64) { return p.sx, p.sy }

// StartGrab pushes g with the given priority.
func (p *Pointer) StartGrab(g *PointerGrab, priority int) {
	p.stack.start(p.seat, g, priority)
}

// EndGrab removes g from the stack. Ending a grab that is not on the stack
// is a no-op.
func (p *Pointer) EndGrab(g *PointerGrab) {
	p.stack.end(p.seat, g)
}

// SetFocus focuses surface if its peer has a pointer binding. The old
// surface gets a leave and the new one an enter; no unfocus is emitted.
func (p *Pointer) SetFocus(surface *resource.Resource, sx, sy float64) {
	peer := p.focus.lookup(p.seat, surface, CapPointer)
	if peer == nil {
		return
	}

	changed := surface != p.focus.surface
	if changed {
		p.sendLeave()
	}
	p.focus.set(peer, surface, p.ClearFocus)
	p.sx, p.sy = sx, sy

	if changed {
		serial := p.seat.serials.NextSerial()
		for _, b := range p.focus.bindings(CapPointer) {
			b.Send(wire.Message{
				Op:      wire.PointerEnter,
				Serial:  serial,
				Surface: surface.ID(),
				X:       wire.FixedFromFloat(sx),
				Y:       wire.FixedFromFloat(sy),
			})
			b.Send(wire.Message{Op: wire.PointerFrame})
		}
	}
	logger.Debugf("Pointer focus on surface %d (client %d)", surface.ID(), peer.ID())
	p.seat.Signals.Focus.Emit(p)
}

// ClearFocus drops the focus and emits unfocus. A leave is sent only when
// the surface is still alive.
func (p *Pointer) ClearFocus() {
	p.sendLeave()
	p.focus.reset()
	p.seat.Signals.Unfocus.Emit(p)
}

func (p *Pointer) sendLeave() {
	if p.focus.peer == nil || !p.focus.live() {
		return
	}
	serial := p.seat.serials.NextSerial()
	for _, b := range p.focus.bindings(CapPointer) {
		b.Send(wire.Message{Op: wire.PointerLeave, Serial: serial, Surface: p.focus.surface.ID()})
		b.Send(wire.Message{Op: wire.PointerFrame})
	}
}

// NotifyEnter forwards a pointer focus change to the active grab.
func (p *Pointer) NotifyEnter(surface *resource.Resource, sx, sy float64) {
	g := p.stack.active
	g.Handler.Enter(g, surface, sx, sy)
}

// NotifyMotion records the position and forwards the motion to the active
// grab.
func (p *Pointer) NotifyMotion(timeMsec uint32, sx, sy float64) {
	p.sx, p.sy = sx, sy
	g := p.stack.active
	g.Handler.Motion(g, timeMsec, sx, sy)
}

// NotifyButton updates the held button set before the active grab sees
// the event, so a grab reading ButtonCount on release sees the count
// without the released button.
func (p *Pointer) NotifyButton(timeMsec, button uint32, state ButtonState) {
	i := slices.Index(p.buttons, button)
	switch {
	case state == ButtonPressed && i < 0:
		p.buttons = append(p.buttons, button)
	case state == ButtonReleased && i >= 0:
		p.buttons = slices.Delete(p.buttons, i, i+1)
	}
	g := p.stack.active
	g.Handler.Button(g, timeMsec, button, state)
}

// NotifyAxis forwards a scroll step to the active grab.
func (p *Pointer) NotifyAxis(timeMsec uint32, axis AxisEvent) {
	g := p.stack.active
	g.Handler.Axis(g, timeMsec, axis)
}

// NotifyFrame forwards the end of a pointer event group to the active grab.
func (p *Pointer) NotifyFrame() {
	g := p.stack.active
	g.Handler.Frame(g)
}

func (p *Pointer) reset() {
	p.stack.reset(p.seat)
	p.focus.reset()
	p.buttons = nil
}

// defaultPointerGrab delivers to every pointer binding of the focused peer.
type defaultPointerGrab struct {
	pointer *Pointer
}

func (d *defaultPointerGrab) Enter(g *PointerGrab, surface *resource.Resource, sx, sy float64) {
	if surface != nil {
		d.pointer.SetFocus(surface, sx, sy)
	} else {
		d.pointer.ClearFocus()
	}
}

func (d *defaultPointerGrab) Motion(g *PointerGrab, timeMsec uint32, sx, sy float64) {
	p := d.pointer
	for _, b := range p.focus.bindings(CapPointer) {
		b.Send(wire.Message{
			Op:   wire.PointerMotion,
			Time: timeMsec,
			X:    wire.FixedFromFloat(sx),
			Y:    wire.FixedFromFloat(sy),
		})
	}
}

func (d *defaultPointerGrab) Button(g *PointerGrab, timeMsec, button uint32, state ButtonState) {
	p := d.pointer
	if p.focus.peer == nil {
		return
	}
	serial := p.seat.serials.NextSerial()
	for _, b := range p.focus.bindings(CapPointer) {
		b.Send(wire.Message{
			Op:     wire.PointerButton,
			Serial: serial,
			Time:   timeMsec,
			Button: button,
			State:  uint32(state),
		})
		b.Send(wire.Message{Op: wire.PointerFrame})
		p.seat.lastButtonSerial = serial
	}
}

func (d *defaultPointerGrab) Axis(g *PointerGrab, timeMsec uint32, axis AxisEvent) {
	p := d.pointer
	for _, b := range p.focus.bindings(CapPointer) {
		b.Send(wire.Message{
			Op:       wire.PointerAxis,
			Time:     timeMsec,
			Axis:     uint32(axis.Orientation),
			Value:    wire.FixedFromFloat(axis.Value),
			Discrete: axis.Discrete,
			Source:   uint32(axis.Source),
		})
	}
}

func (d *defaultPointerGrab) Frame(g *PointerGrab) {
	p := d.pointer
	for _, b := range p.focus.bindings(CapPointer) {
		b.Send(wire.Message{Op: wire.PointerFrame})
	}
}
