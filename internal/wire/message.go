// Package wire defines the protocol-visible events the seat emits to peers.
//
// Encoding onto a socket is done elsewhere; here a message is a plain value
// handed to a Sink, which keeps ordering observable in tests and traces.
package wire

import (
	"fmt"
	"math"
	"strings"

	"github.com/bnema/wayseat/internal/resource"
)

// Opcode names an event as interface.event
type Opcode string

const (
	SeatCapabilities Opcode = "wl_seat.capabilities"

	PointerEnter  Opcode = "wl_pointer.enter"
	PointerLeave  Opcode = "wl_pointer.leave"
	PointerMotion Opcode = "wl_pointer.motion"
	PointerButton Opcode = "wl_pointer.button"
	PointerAxis   Opcode = "wl_pointer.axis"
	PointerFrame  Opcode = "wl_pointer.frame"

	KeyboardEnter     Opcode = "wl_keyboard.enter"
	KeyboardLeave     Opcode = "wl_keyboard.leave"
	KeyboardKey       Opcode = "wl_keyboard.key"
	KeyboardModifiers Opcode = "wl_keyboard.modifiers"

	TouchDown   Opcode = "wl_touch.down"
	TouchUp     Opcode = "wl_touch.up"
	TouchMotion Opcode = "wl_touch.motion"
	TouchFrame  Opcode = "wl_touch.frame"
	TouchCancel Opcode = "wl_touch.cancel"
)

// Interface returns the interface half of the opcode, e.g. wl_pointer
func (o Opcode) Interface() string {
	name, _, _ := strings.Cut(string(o), ".")
	return name
}

// Fixed is the protocol's signed 24.8 fixed-point number.
type Fixed int32

// FixedFromFloat converts with round-half-to-even, matching wl_fixed_from_double.
func FixedFromFloat(f float64) Fixed {
	return Fixed(math.RoundToEven(f * 256))
}

// Float converts back to a float64
func (f Fixed) Float() float64 {
	return float64(f) / 256
}

// Modifiers is the keyboard modifier state carried by modifiers events.
type Modifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// Message is one event addressed to one bound resource.
type Message struct {
	Client resource.ClientID
	Object uint32
	Op     Opcode

	Serial  uint32
	Time    uint32
	Surface uint32

	// touch point id
	ID int32
	X  Fixed
	Y  Fixed

	Button uint32
	Key    uint32
	State  uint32

	Axis     uint32
	Value    Fixed
	Discrete int32
	Source   uint32

	Keys         []uint32
	Mods         Modifiers
	Capabilities uint32
}

func (m Message) String() string {
	s := fmt.Sprintf("client=%d %s@%d", m.Client, m.Op, m.Object)
	if args := m.Args(); args != "" {
		s += " " + args
	}
	return s
}

// Args formats the event arguments relevant to the opcode
func (m Message) Args() string {
	var b strings.Builder

	switch m.Op {
	case SeatCapabilities:
		fmt.Fprintf(&b, "caps=%#x", m.Capabilities)
	case PointerEnter:
		fmt.Fprintf(&b, "serial=%d surface=%d x=%.2f y=%.2f", m.Serial, m.Surface, m.X.Float(), m.Y.Float())
	case PointerLeave, KeyboardLeave:
		fmt.Fprintf(&b, "serial=%d surface=%d", m.Serial, m.Surface)
	case PointerMotion:
		fmt.Fprintf(&b, "time=%d x=%.2f y=%.2f", m.Time, m.X.Float(), m.Y.Float())
	case PointerButton:
		fmt.Fprintf(&b, "serial=%d time=%d button=%#x state=%d", m.Serial, m.Time, m.Button, m.State)
	case PointerAxis:
		fmt.Fprintf(&b, "time=%d axis=%d value=%.2f discrete=%d", m.Time, m.Axis, m.Value.Float(), m.Discrete)
	case KeyboardEnter:
		fmt.Fprintf(&b, "serial=%d surface=%d keys=%v", m.Serial, m.Surface, m.Keys)
	case KeyboardKey:
		fmt.Fprintf(&b, "serial=%d time=%d key=%d state=%d", m.Serial, m.Time, m.Key, m.State)
	case KeyboardModifiers:
		fmt.Fprintf(&b, "serial=%d depressed=%#x latched=%#x locked=%#x group=%d",
			m.Serial, m.Mods.Depressed, m.Mods.Latched, m.Mods.Locked, m.Mods.Group)
	case TouchDown:
		fmt.Fprintf(&b, "serial=%d time=%d surface=%d id=%d x=%.2f y=%.2f",
			m.Serial, m.Time, m.Surface, m.ID, m.X.Float(), m.Y.Float())
	case TouchUp:
		fmt.Fprintf(&b, "serial=%d time=%d id=%d", m.Serial, m.Time, m.ID)
	case TouchMotion:
		fmt.Fprintf(&b, "time=%d id=%d x=%.2f y=%.2f", m.Time, m.ID, m.X.Float(), m.Y.Float())
	}
	return b.String()
}
