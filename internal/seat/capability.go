package seat

import "strings"

// Capability is the wl_seat capability bitmask.
type Capability uint32

const (
	CapPointer  Capability = 1 << 0
	CapKeyboard Capability = 1 << 1
	CapTouch    Capability = 1 << 2

	CapAll = CapPointer | CapKeyboard | CapTouch
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapPointer, "pointer"},
	{CapKeyboard, "keyboard"},
	{CapTouch, "touch"},
}

// Has reports whether every bit of other is set in c
func (c Capability) Has(other Capability) bool {
	return c&other == other && other != 0
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for _, n := range capabilityNames {
		if c&n.cap != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, "|")
}

// ParseCapability maps "pointer", "keyboard" or "touch" to its bit.
func ParseCapability(name string) (Capability, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range capabilityNames {
		if n.name == name {
			return n.cap, true
		}
	}
	return 0, false
}
