package seat

import (
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/wire"
)

// Event is a raw input event from the backend, already translated into
// surface-local coordinates.
type Event interface {
	// Capability is the device the event belongs to.
	Capability() Capability
}

type PointerEnterEvent struct {
	Surface *resource.Resource
	X, Y    float64
}

type PointerMotionEvent struct {
	Time uint32
	X, Y float64
}

type PointerButtonEvent struct {
	Time   uint32
	Button uint32
	State  ButtonState
}

type PointerAxisEvent struct {
	Time uint32
	Axis AxisEvent
}

type PointerFrameEvent struct{}

type KeyboardEnterEvent struct {
	Surface *resource.Resource
}

type KeyEvent struct {
	Time  uint32
	Key   uint32
	State KeyState
}

type ModifiersEvent struct {
	Mods wire.Modifiers
}

type TouchEnterEvent struct {
	Surface *resource.Resource
	X, Y    float64
}

type TouchDownEvent struct {
	Time uint32
	ID   int32
	X, Y float64
}

type TouchUpEvent struct {
	Time uint32
	ID   int32
}

type TouchMotionEvent struct {
	Time uint32
	ID   int32
	X, Y float64
}

type TouchCancelEvent struct{}

func (PointerEnterEvent) Capability() Capability  { return CapPointer }
func (PointerMotionEvent) Capability() Capability { return CapPointer }
func (PointerButtonEvent) Capability() Capability { return CapPointer }
func (PointerAxisEvent) Capability() Capability   { return CapPointer }
func (PointerFrameEvent) Capability() Capability  { return CapPointer }
func (KeyboardEnterEvent) Capability() Capability { return CapKeyboard }
func (KeyEvent) Capability() Capability           { return CapKeyboard }
func (ModifiersEvent) Capability() Capability     { return CapKeyboard }
func (TouchEnterEvent) Capability() Capability    { return CapTouch }
func (TouchDownEvent) Capability() Capability     { return CapTouch }
func (TouchUpEvent) Capability() Capability       { return CapTouch }
func (TouchMotionEvent) Capability() Capability   { return CapTouch }
func (TouchCancelEvent) Capability() Capability   { return CapTouch }

// Handle routes ev to the matching device. Events for a disabled
// capability are dropped and Handle returns false.
func (s *Seat) Handle(ev Event) bool {
	switch e := ev.(type) {
	case PointerEnterEvent, PointerMotionEvent, PointerButtonEvent, PointerAxisEvent, PointerFrameEvent:
		if s.pointer == nil {
			break
		}
		s.handlePointer(e)
		return true
	case KeyboardEnterEvent, KeyEvent, ModifiersEvent:
		if s.keyboard == nil {
			break
		}
		s.handleKeyboard(e)
		return true
	case TouchEnterEvent, TouchDownEvent, TouchUpEvent, TouchMotionEvent, TouchCancelEvent:
		if s.touch == nil {
			break
		}
		s.handleTouch(e)
		return true
	}
	logger.Debugf("Seat %s dropped %T: capability disabled", s.name, ev)
	return false
}

func (s *Seat) handlePointer(ev Event) {
	p := s.pointer
	switch e := ev.(type) {
	case PointerEnterEvent:
		p.NotifyEnter(e.Surface, e.X, e.Y)
	case PointerMotionEvent:
		p.NotifyMotion(e.Time, e.X, e.Y)
	case PointerButtonEvent:
		p.NotifyButton(e.Time, e.Button, e.State)
	case PointerAxisEvent:
		p.NotifyAxis(e.Time, e.Axis)
	case PointerFrameEvent:
		p.NotifyFrame()
	}
}

func (s *Seat) handleKeyboard(ev Event) {
	k := s.keyboard
	switch e := ev.(type) {
	case KeyboardEnterEvent:
		k.NotifyEnter(e.Surface)
	case KeyEvent:
		k.NotifyKey(e.Time, e.Key, e.State)
	case ModifiersEvent:
		k.NotifyModifiers(e.Mods)
	}
}

func (s *Seat) handleTouch(ev Event) {
	t := s.touch
	switch e := ev.(type) {
	case TouchEnterEvent:
		t.NotifyEnter(e.Surface, e.X, e.Y)
	case TouchDownEvent:
		t.NotifyDown(e.Time, e.ID, e.X, e.Y)
	case TouchUpEvent:
		t.NotifyUp(e.Time, e.ID)
	case TouchMotionEvent:
		t.NotifyMotion(e.Time, e.ID, e.X, e.Y)
	case TouchCancelEvent:
		t.NotifyCancel()
	}
}
