// Package output tracks outputs and which of them holds the input focus
package output

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
)

// ErrOutputExists is returned when an output name is already taken
var ErrOutputExists = errors.New("output already exists")

// Output is one display in the global coordinate space
type Output struct {
	Name    string
	X       int32 // Position in global coordinate space
	Y       int32
	Width   int32
	Height  int32
	Primary bool
	Scale   float64
}

// Bounds returns the output's boundaries
func (o *Output) Bounds() (x1, y1, x2, y2 int32) {
	return o.X, o.Y, o.X + o.Width, o.Y + o.Height
}

// Contains checks if a point is within this output
func (o *Output) Contains(x, y int32) bool {
	return x >= o.X && x < o.X+o.Width && y >= o.Y && y < o.Y+o.Height
}

type placement struct {
	output  *Output
	destroy *resource.Listener
}

// Tracker holds the output layout, the output each surface lives on, and
// the output currently holding the input focus of a seat manager.
type Tracker struct {
	// Changed fires when Current changes. The value may be nil once the
	// last output is removed.
	Changed seat.Signal[*Output]

	manager  *seat.Manager
	outputs  []*Output
	surfaces map[*resource.Resource]placement
	current  *Output
	conns    map[*seat.Seat][]*seat.Connection
}

// NewTracker follows the seats of manager, including those created later.
func NewTracker(manager *seat.Manager) *Tracker {
	t := &Tracker{
		manager:  manager,
		surfaces: make(map[*resource.Resource]placement),
		conns:    make(map[*seat.Seat][]*seat.Connection),
	}
	for _, s := range manager.Seats() {
		t.watch(s)
	}
	manager.SeatAdded.Connect(t.watch)
	manager.SeatRemoved.Connect(t.unwatch)
	return t
}

func (t *Tracker) watch(s *seat.Seat) {
	update := func(seat.Device) { t.update() }
	t.conns[s] = []*seat.Connection{
		s.Signals.Focus.Connect(update),
		s.Signals.Unfocus.Connect(update),
		s.Signals.Capabilities.Connect(func(*seat.Seat) { t.update() }),
	}
	t.update()
}

func (t *Tracker) unwatch(s *seat.Seat) {
	for _, c := range t.conns[s] {
		c.Disconnect()
	}
	delete(t.conns, s)
	t.update()
}

// AddOutput appends o to the layout
func (t *Tracker) AddOutput(o *Output) error {
	if t.Output(o.Name) != nil {
		return fmt.Errorf("output %q: %w", o.Name, ErrOutputExists)
	}
	t.outputs = append(t.outputs, o)
	determinePrimaryOutput(t.outputs)
	logger.Debugf("Added output %s at (%d, %d) %dx%d", o.Name, o.X, o.Y, o.Width, o.Height)
	t.update()
	return nil
}

// RemoveOutput drops o from the layout. Surfaces on it are unplaced.
func (t *Tracker) RemoveOutput(o *Output) {
	i := slices.Index(t.outputs, o)
	if i < 0 {
		return
	}
	t.outputs = slices.Delete(t.outputs, i, i+1)
	for surface, p := range t.surfaces {
		if p.output == o {
			t.Unplace(surface)
		}
	}
	determinePrimaryOutput(t.outputs)
	t.update()
}

// Output returns the output called name, or nil
func (t *Tracker) Output(name string) *Output {
	for _, o := range t.outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Outputs returns the layout in insertion order
func (t *Tracker) Outputs() []*Output {
	return slices.Clone(t.outputs)
}

// Primary returns the primary output
func (t *Tracker) Primary() *Output {
	for _, o := range t.outputs {
		if o.Primary {
			return o
		}
	}
	if len(t.outputs) > 0 {
		return t.outputs[0]
	}
	return nil
}

// OutputAt returns the output containing the given coordinates
func (t *Tracker) OutputAt(x, y int32) *Output {
	for _, o := range t.outputs {
		if o.Contains(x, y) {
			return o
		}
	}
	return nil
}

// Place records that surface is shown on o. Destroying the surface forgets
// the placement.
func (t *Tracker) Place(surface *resource.Resource, o *Output) {
	if surface.Destroyed() || !slices.Contains(t.outputs, o) {
		return
	}
	t.Unplace(surface)
	t.surfaces[surface] = placement{
		output: o,
		destroy: surface.OnDestroy(func(r *resource.Resource) {
			delete(t.surfaces, r)
			t.update()
		}),
	}
	t.update()
}

// Unplace forgets where surface is shown
func (t *Tracker) Unplace(surface *resource.Resource) {
	p, ok := t.surfaces[surface]
	if !ok {
		return
	}
	p.destroy.Remove()
	delete(t.surfaces, surface)
}

// OutputOf returns the output surface is placed on, or nil
func (t *Tracker) OutputOf(surface *resource.Resource) *Output {
	if surface == nil {
		return nil
	}
	return t.surfaces[surface].output
}

// FocusedOutput returns the output holding the input focus. Seats are
// checked in creation order; within a seat only the first enabled device
// among pointer, keyboard and touch counts. Without a placed focused
// surface, the first output is returned.
func (t *Tracker) FocusedOutput() *Output {
	if len(t.outputs) == 0 {
		return nil
	}
	for _, s := range t.manager.Seats() {
		if o := t.OutputOf(focusedSurface(s)); o != nil {
			return o
		}
	}
	return t.outputs[0]
}

// Current returns the focused output as of the last focus, capability or
// layout change.
func (t *Tracker) Current() *Output {
	return t.current
}

func (t *Tracker) update() {
	o := t.FocusedOutput()
	if o == t.current {
		return
	}
	t.current = o
	if o != nil {
		logger.Debugf("Focused output is now %s", o.Name)
	}
	t.Changed.Emit(o)
}

func focusedSurface(s *seat.Seat) *resource.Resource {
	for _, c := range []seat.Capability{seat.CapPointer, seat.CapKeyboard, seat.CapTouch} {
		if d := s.Device(c); d != nil {
			return d.FocusedSurface()
		}
	}
	return nil
}

// determinePrimaryOutput marks the output at (0,0) primary, falling back
// to the first one.
func determinePrimaryOutput(outputs []*Output) {
	for _, o := range outputs {
		o.Primary = false
	}
	for _, o := range outputs {
		if o.X == 0 && o.Y == 0 {
			o.Primary = true
			return
		}
	}
	if len(outputs) > 0 {
		outputs[0].Primary = true
	}
}
