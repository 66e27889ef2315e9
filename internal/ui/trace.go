package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/wayseat/internal/wire"
)

// InterfaceColor returns the color used for messages of an interface
func InterfaceColor(op wire.Opcode) lipgloss.Color {
	switch op.Interface() {
	case "wl_pointer":
		return ColorPointer
	case "wl_keyboard":
		return ColorKeyboard
	case "wl_touch":
		return ColorTouch
	default:
		return ColorSeat
	}
}

// FormatMessage renders one wire message as a trace line
func FormatMessage(m wire.Message) string {
	op := OpStyle.Foreground(InterfaceColor(m.Op)).Render(fmt.Sprintf("%s@%d", m.Op, m.Object))
	return ClientStyle.Render(fmt.Sprintf("client=%d", m.Client)) + op + ArgStyle.Render(m.Args())
}

// FormatTrace renders messages in order, one per line
func FormatTrace(msgs []wire.Message) string {
	if len(msgs) == 0 {
		return SubtleStyle.Render("(no messages)")
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, FormatMessage(m))
	}
	return strings.Join(lines, "\n")
}

// TraceSink prints each message as it is sent
type TraceSink struct {
	next  wire.Sink
	print func(string)
}

// NewTraceSink forwards to next, printing each message with print first.
// next may be nil.
func NewTraceSink(next wire.Sink, print func(string)) *TraceSink {
	return &TraceSink{next: next, print: print}
}

// Send implements wire.Sink
func (t *TraceSink) Send(m wire.Message) {
	t.print(FormatMessage(m))
	if t.next != nil {
		t.next.Send(m)
	}
}
