package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/client"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

func TestFormatMessage(t *testing.T) {
	m := wire.Message{
		Client: 3,
		Object: 7,
		Op:     wire.PointerButton,
		Serial: 12,
		Time:   100,
		Button: 0x110,
		State:  1,
	}
	got := FormatMessage(m)
	for _, want := range []string{"client=3", "wl_pointer.button@7", "serial=12", "button=0x110"} {
		assert.Contains(t, got, want)
	}
}

func TestInterfaceColor(t *testing.T) {
	tests := []struct {
		op   wire.Opcode
		want string
	}{
		{wire.PointerMotion, string(ColorPointer)},
		{wire.KeyboardKey, string(ColorKeyboard)},
		{wire.TouchDown, string(ColorTouch)},
		{wire.SeatCapabilities, string(ColorSeat)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(InterfaceColor(tt.op)), string(tt.op))
	}
}

func TestFormatTrace(t *testing.T) {
	assert.Contains(t, FormatTrace(nil), "no messages")

	got := FormatTrace([]wire.Message{
		{Client: 1, Op: wire.TouchDown},
		{Client: 1, Op: wire.TouchFrame},
	})
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "wl_touch.down")
	assert.Contains(t, lines[1], "wl_touch.frame")
}

func TestTraceSink(t *testing.T) {
	rec := wire.NewRecorder()
	var printed []string
	sink := NewTraceSink(rec, func(s string) { printed = append(printed, s) })

	sink.Send(wire.Message{Op: wire.KeyboardKey, Key: 30})
	assert.Len(t, printed, 1)
	assert.Equal(t, []wire.Opcode{wire.KeyboardKey}, rec.Ops())

	assert.NotPanics(t, func() {
		NewTraceSink(nil, func(string) {}).Send(wire.Message{Op: wire.PointerFrame})
	})
}

func TestFormatSeat(t *testing.T) {
	registry := client.NewRegistry()
	peer, err := registry.Connect(4, "term", wire.NewRecorder())
	require.NoError(t, err)
	_, err = peer.Bind(seat.CapPointer)
	require.NoError(t, err)
	surface := peer.CreateSurface()

	s := seat.New("seat0", registry, nil)
	s.EnablePointer().SetFocus(surface, 1.5, 2)

	got := FormatSeat(s)
	assert.Contains(t, got, "seat seat0")
	assert.Contains(t, got, "pointer")
	assert.Contains(t, got, "client 4 surface")
	assert.Contains(t, got, "1.50, 2.00")
	assert.Contains(t, got, "default (stack depth 0)")
	assert.Contains(t, got, "keyboard")
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatResult(true, "done"), "done")
	assert.Contains(t, FormatResult(false, "failed"), IconError)
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatEnabled("touch", true), IconActive)
	assert.Contains(t, FormatEnabled("touch", false), IconInactive)
	assert.Equal(t, 10, lipgloss.Width(CreateSeparator(10, "-")))
	assert.Equal(t, 50, lipgloss.Width(CreateSeparator(0, "")))
}
