package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
)

// FormatSeat renders the capabilities, focus and grab stacks of s in a box
func FormatSeat(s *seat.Seat) string {
	caps := s.Capabilities()
	lines := []string{
		HeaderStyle.Render("seat " + s.Name()),
		FormatField("capabilities", caps.String()),
		FormatField("serials", fmt.Sprintf("button=%d key=%d touch=%d",
			s.LastButtonSerial(), s.LastKeySerial(), s.LastTouchSerial())),
	}

	if p := s.Pointer(); p != nil {
		x, y := p.Position()
		lines = append(lines,
			deviceHeader("pointer", ColorPointer),
			FormatField("focus", formatFocus(p)),
			FormatField("grab", formatGrab(p.ActiveGrab() == p.DefaultGrab(), p.ActiveGrab(), len(p.Grabs()))),
			FormatField("position", fmt.Sprintf("%.2f, %.2f", x, y)),
			FormatField("buttons", fmt.Sprintf("%d held", p.ButtonCount())),
		)
	} else {
		lines = append(lines, FormatEnabled("pointer", false))
	}

	if k := s.Keyboard(); k != nil {
		mods := k.Modifiers()
		lines = append(lines,
			deviceHeader("keyboard", ColorKeyboard),
			FormatField("focus", formatFocus(k)),
			FormatField("grab", formatGrab(k.ActiveGrab() == k.DefaultGrab(), k.ActiveGrab(), len(k.Grabs()))),
			FormatField("keys", fmt.Sprintf("%v", k.PressedKeys())),
			FormatField("modifiers", fmt.Sprintf("depressed=%#x locked=%#x", mods.Depressed, mods.Locked)),
		)
	} else {
		lines = append(lines, FormatEnabled("keyboard", false))
	}

	if t := s.Touch(); t != nil {
		lines = append(lines,
			deviceHeader("touch", ColorTouch),
			FormatField("focus", formatFocus(t)),
			FormatField("grab", formatGrab(t.ActiveGrab() == t.DefaultGrab(), t.ActiveGrab(), len(t.Grabs()))),
		)
	} else {
		lines = append(lines, FormatEnabled("touch", false))
	}

	return BoxStyle.Render(strings.Join(lines, "\n"))
}

func deviceHeader(name string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(IconActive + " " + name)
}

func formatFocus(d seat.Device) string {
	peer := d.FocusedPeer()
	if peer == nil {
		return "none"
	}
	return fmt.Sprintf("client %d surface %d", peer.ID(), surfaceID(d.FocusedSurface()))
}

func formatGrab(isDefault bool, g seat.Grab, depth int) string {
	if isDefault {
		return fmt.Sprintf("default (stack depth %d)", depth)
	}
	return fmt.Sprintf("priority %d (stack depth %d)", g.Priority(), depth)
}

func surfaceID(r *resource.Resource) uint32 {
	if r == nil {
		return 0
	}
	return r.ID()
}
