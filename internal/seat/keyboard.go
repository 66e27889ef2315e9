package seat

import (
	"slices"

	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/wire"
)

// KeyState is wl_keyboard.key_state
type KeyState uint32

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
)

// KeyboardGrabHandler receives keyboard events while its grab is active.
type KeyboardGrabHandler interface {
	Enter(g *KeyboardGrab, surface *resource.Resource)
	Key(g *KeyboardGrab, timeMsec, key uint32, state KeyState)
	Modifiers(g *KeyboardGrab, mods wire.Modifiers)
}

// KeyboardGrab is a handler on the keyboard grab stack.
type KeyboardGrab struct {
	grabNode
	Handler KeyboardGrabHandler
}

// NewKeyboardGrab wraps h in a detached grab
func NewKeyboardGrab(h KeyboardGrabHandler) *KeyboardGrab {
	return &KeyboardGrab{Handler: h}
}

func (g *KeyboardGrab) node() *grabNode { return &g.grabNode }
func (g *KeyboardGrab) handler() any    { return g.Handler }

// Capability returns CapKeyboard
func (g *KeyboardGrab) Capability() Capability { return CapKeyboard }

// End removes the grab from its seat's keyboard stack, if it is on one.
func (g *KeyboardGrab) End() {
	if g.seat == nil || g.state == GrabDetached {
		return
	}
	if k := g.seat.Keyboard(); k != nil {
		k.EndGrab(g)
	}
}

// Keyboard is the keyboard device state of a seat.
type Keyboard struct {
	seat        *Seat
	focus       focus
	stack       grabStack[*KeyboardGrab]
	defaultGrab *KeyboardGrab

	keys []uint32
	mods wire.Modifiers
	// last modifier state delivered to the focused peer
	sentMods wire.Modifiers
}

func newKeyboard(seat *Seat) *Keyboard {
	k := &Keyboard{seat: seat}
	k.defaultGrab = NewKeyboardGrab(&defaultKeyboardGrab{keyboard: k})
	k.stack = newGrabStack(seat, k.defaultGrab)
	return k
}

// Seat returns the owning seat
func (k *Keyboard) Seat() *Seat { return k.seat }

// Capability returns CapKeyboard
func (k *Keyboard) Capability() Capability { return CapKeyboard }

// FocusedPeer returns the focused peer, nil if unfocused
func (k *Keyboard) FocusedPeer() Peer { return k.focus.peer }

// FocusedSurface returns the focused surface, nil if unfocused
func (k *Keyboard) FocusedSurface() *resource.Resource { return k.focus.surface }

// ActiveGrab returns the grab receiving events. It is never nil.
func (k *Keyboard) ActiveGrab() *KeyboardGrab { return k.stack.active }

// DefaultGrab returns the fallback grab
func (k *Keyboard) DefaultGrab() *KeyboardGrab { return k.defaultGrab }

// Grabs returns the stacked grabs, highest priority first
func (k *Keyboard) Grabs() []*KeyboardGrab { return k.stack.snapshot() }

// PressedKeys returns the keys held down, in press order
func (k *Keyboard) PressedKeys() []uint32 { return slices.Clone(k.keys) }

// Modifiers returns the current modifier state
func (k *Keyboard) Modifiers() wire.Modifiers { return k.mods }

// StartGrab pushes g with the given priority.
func (k *Keyboard) StartGrab(g *KeyboardGrab, priority int) {
	k.stack.start(k.seat, g, priority)
}

// EndGrab removes g from the stack. Ending a grab that is not on the stack
// is a no-op.
func (k *Keyboard) EndGrab(g *KeyboardGrab) {
	k.stack.end(k.seat, g)
}

// SetFocus focuses surface if its peer has a keyboard binding. A newly
// entered surface gets the held keys followed by the modifier state.
func (k *Keyboard) SetFocus(surface *resource.Resource) {
	peer := k.focus.lookup(k.seat, surface, CapKeyboard)
	if peer == nil {
		return
	}

	changed := surface != k.focus.surface
	if changed {
		k.sendLeave()
	}
	k.focus.set(peer, surface, k.ClearFocus)

	if changed {
		serial := k.seat.serials.NextSerial()
		for _, b := range k.focus.bindings(CapKeyboard) {
			b.Send(wire.Message{
				Op:      wire.KeyboardEnter,
				Serial:  serial,
				Surface: surface.ID(),
				Keys:    slices.Clone(k.keys),
			})
		}
		k.sendModifiers()
	}
	logger.Debugf("Keyboard focus on surface %d (client %d)", surface.ID(), peer.ID())
	k.seat.Signals.Focus.Emit(k)
}

// ClearFocus drops the focus and emits unfocus. A leave is sent only when
// the surface is still alive.
func (k *Keyboard) ClearFocus() {
	k.sendLeave()
	k.focus.reset()
	k.sentMods = wire.Modifiers{}
	k.seat.Signals.Unfocus.Emit(k)
}

func (k *Keyboard) sendLeave() {
	if k.focus.peer == nil || !k.focus.live() {
		return
	}
	serial := k.seat.serials.NextSerial()
	for _, b := range k.focus.bindings(CapKeyboard) {
		b.Send(wire.Message{Op: wire.KeyboardLeave, Serial: serial, Surface: k.focus.surface.ID()})
	}
}

func (k *Keyboard) sendModifiers() {
	if k.focus.peer == nil {
		return
	}
	serial := k.seat.serials.NextSerial()
	for _, b := range k.focus.bindings(CapKeyboard) {
		b.Send(wire.Message{Op: wire.KeyboardModifiers, Serial: serial, Mods: k.mods})
	}
	k.sentMods = k.mods
}

// NotifyEnter forwards a keyboard focus change to the active grab.
func (k *Keyboard) NotifyEnter(surface *resource.Resource) {
	g := k.stack.active
	g.Handler.Enter(g, surface)
}

// NotifyKey updates the held key set and forwards the key to the active
// grab.
func (k *Keyboard) NotifyKey(timeMsec, key uint32, state KeyState) {
	i := slices.Index(k.keys, key)
	switch {
	case state == KeyPressed && i < 0:
		k.keys = append(k.keys, key)
	case state == KeyReleased && i >= 0:
		k.keys = slices.Delete(k.keys, i, i+1)
	}
	g := k.stack.active
	g.Handler.Key(g, timeMsec, key, state)
}

// NotifyModifiers records mods and forwards them to the active grab when
// they differ from the current state.
func (k *Keyboard) NotifyModifiers(mods wire.Modifiers) {
	if mods == k.mods {
		return
	}
	k.mods = mods
	g := k.stack.active
	g.Handler.Modifiers(g, mods)
}

func (k *Keyboard) reset() {
	k.stack.reset(k.seat)
	k.focus.reset()
	k.keys = nil
	k.mods = wire.Modifiers{}
	k.sentMods = wire.Modifiers{}
}

// defaultKeyboardGrab delivers to every keyboard binding of the focused
// peer.
type defaultKeyboardGrab struct {
	keyboard *Keyboard
}

func (d *defaultKeyboardGrab) Enter(g *KeyboardGrab, surface *resource.Resource) {
	if surface != nil {
		d.keyboard.SetFocus(surface)
	} else {
		d.keyboard.ClearFocus()
	}
}

func (d *defaultKeyboardGrab) Key(g *KeyboardGrab, timeMsec, key uint32, state KeyState) {
	k := d.keyboard
	if k.focus.peer == nil {
		return
	}
	serial := k.seat.serials.NextSerial()
	for _, b := range k.focus.bindings(CapKeyboard) {
		b.Send(wire.Message{
			Op:     wire.KeyboardKey,
			Serial: serial,
			Time:   timeMsec,
			Key:    key,
			State:  uint32(state),
		})
		k.seat.lastKeySerial = serial
	}
}

func (d *defaultKeyboardGrab) Modifiers(g *KeyboardGrab, mods wire.Modifiers) {
	d.keyboard.sendModifiers()
}

// GrabAction catches the focused peer up on modifier changes an override
// grab consumed.
func (d *defaultKeyboardGrab) GrabAction(g Grab, action GrabAction) {
	k := d.keyboard
	if action == GrabPop && k.mods != k.sentMods {
		k.sendModifiers()
	}
}
