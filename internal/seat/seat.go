// Package seat routes input from a seat's pointer, keyboard and touch
// devices to client surfaces.
//
// Each device owns a priority-ordered stack of grabs. The grab at the top
// of the stack receives every event for the device; with an empty stack
// the device's default grab delivers to the focused peer. Window manager
// code pushes grabs to take over a device for a modal interaction (moving
// a window, a menu, task switching) and pops them when done.
//
// Everything in this package runs on the compositor's event loop and is
// not safe for concurrent use.
package seat

import (
	"github.com/bnema/wayseat/internal/logger"
)

// Signals is the seat's signal bus.
type Signals struct {
	Focus        Signal[Device]
	Unfocus      Signal[Device]
	Capabilities Signal[*Seat]
}

// Seat groups one pointer, one keyboard and one touch device.
type Seat struct {
	Signals Signals

	name     string
	registry Registry
	serials  SerialSource
	caps     Capability

	pointer  *Pointer
	keyboard *Keyboard
	touch    *Touch

	lastButtonSerial uint32
	lastKeySerial    uint32
	lastTouchSerial  uint32
}

// New creates a seat with no capabilities. A nil serials gives the seat its
// own counter.
func New(name string, registry Registry, serials SerialSource) *Seat {
	if serials == nil {
		serials = &SerialCounter{}
	}
	return &Seat{
		name:     name,
		registry: registry,
		serials:  serials,
	}
}

// Name returns the seat name
func (s *Seat) Name() string { return s.name }

// Registry returns the client registry the seat delivers through
func (s *Seat) Registry() Registry { return s.registry }

// Capabilities returns the enabled capability bits
func (s *Seat) Capabilities() Capability { return s.caps }

// NextSerial issues a serial from the seat's shared source
func (s *Seat) NextSerial() uint32 { return s.serials.NextSerial() }

// LastButtonSerial returns the serial of the last pointer button delivered
// to a peer
func (s *Seat) LastButtonSerial() uint32 { return s.lastButtonSerial }

// LastKeySerial returns the serial of the last key delivered to a peer
func (s *Seat) LastKeySerial() uint32 { return s.lastKeySerial }

// LastTouchSerial returns the serial of the last touch down delivered to a
// peer
func (s *Seat) LastTouchSerial() uint32 { return s.lastTouchSerial }

// Pointer returns the pointer state, nil unless CapPointer is enabled
func (s *Seat) Pointer() *Pointer { return s.pointer }

// Keyboard returns the keyboard state, nil unless CapKeyboard is enabled
func (s *Seat) Keyboard() *Keyboard { return s.keyboard }

// Touch returns the touch state, nil unless CapTouch is enabled
func (s *Seat) Touch() *Touch { return s.touch }

// EnablePointer adds the pointer capability. Enabling it again returns the
// existing state untouched.
func (s *Seat) EnablePointer() *Pointer {
	if s.pointer != nil {
		return s.pointer
	}
	s.pointer = newPointer(s)
	s.setCapabilities(s.caps | CapPointer)
	return s.pointer
}

// EnableKeyboard adds the keyboard capability. Enabling it again returns
// the existing state untouched.
func (s *Seat) EnableKeyboard() *Keyboard {
	if s.keyboard != nil {
		return s.keyboard
	}
	s.keyboard = newKeyboard(s)
	s.setCapabilities(s.caps | CapKeyboard)
	return s.keyboard
}

// EnableTouch adds the touch capability. Enabling it again returns the
// existing state untouched.
func (s *Seat) EnableTouch() *Touch {
	if s.touch != nil {
		return s.touch
	}
	s.touch = newTouch(s)
	s.setCapabilities(s.caps | CapTouch)
	return s.touch
}

// DisablePointer removes the pointer capability. Peers' pointer bindings
// are unlinked, not destroyed; stacked grabs are cancelled.
func (s *Seat) DisablePointer() {
	if s.pointer == nil {
		return
	}
	s.unlink(CapPointer)
	s.pointer.reset()
	s.pointer = nil
	s.setCapabilities(s.caps &^ CapPointer)
}

// DisableKeyboard removes the keyboard capability. Peers' keyboard bindings
// are unlinked, not destroyed; stacked grabs are cancelled.
func (s *Seat) DisableKeyboard() {
	if s.keyboard == nil {
		return
	}
	s.unlink(CapKeyboard)
	s.keyboard.reset()
	s.keyboard = nil
	s.setCapabilities(s.caps &^ CapKeyboard)
}

// DisableTouch removes the touch capability. Peers' touch bindings are
// unlinked, not destroyed; stacked grabs are cancelled.
func (s *Seat) DisableTouch() {
	if s.touch == nil {
		return
	}
	s.unlink(CapTouch)
	s.touch.reset()
	s.touch = nil
	s.setCapabilities(s.caps &^ CapTouch)
}

// Enable turns on every capability in c.
func (s *Seat) Enable(c Capability) {
	if c&CapPointer != 0 {
		s.EnablePointer()
	}
	if c&CapKeyboard != 0 {
		s.EnableKeyboard()
	}
	if c&CapTouch != 0 {
		s.EnableTouch()
	}
}

// Disable turns off every capability in c.
func (s *Seat) Disable(c Capability) {
	if c&CapPointer != 0 {
		s.DisablePointer()
	}
	if c&CapKeyboard != 0 {
		s.DisableKeyboard()
	}
	if c&CapTouch != 0 {
		s.DisableTouch()
	}
}

// Device returns the enabled device for a single capability bit, or nil.
func (s *Seat) Device(c Capability) Device {
	switch c {
	case CapPointer:
		if s.pointer != nil {
			return s.pointer
		}
	case CapKeyboard:
		if s.keyboard != nil {
			return s.keyboard
		}
	case CapTouch:
		if s.touch != nil {
			return s.touch
		}
	}
	return nil
}

// SendCapabilities announces the current capabilities to one peer, used
// when a peer binds the seat.
func (s *Seat) SendCapabilities(peer Peer) {
	peer.SendCapabilities(s.caps)
}

func (s *Seat) setCapabilities(c Capability) {
	s.caps = c
	logger.Debugf("Seat %s capabilities: %s", s.name, c)
	if s.registry != nil {
		for _, peer := range s.registry.Peers() {
			peer.SendCapabilities(c)
		}
	}
	s.Signals.Capabilities.Emit(s)
}

func (s *Seat) unlink(c Capability) {
	if s.registry == nil {
		return
	}
	for _, peer := range s.registry.Peers() {
		peer.Unlink(c)
	}
}
