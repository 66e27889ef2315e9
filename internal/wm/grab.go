package wm

import (
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

// Default grab priorities
const (
	PriorityMove       = 10
	PriorityResize     = 10
	PriorityTouchMove  = 10
	PriorityTaskSwitch = 20
)

// viewGrab is the state shared by grabs operating on one view. Unmapping
// the view ends the grab.
type viewGrab struct {
	ws        *Workspace
	view      *View
	unmapped  *seat.Connection
	suspended bool
}

func (vg *viewGrab) attach(ws *Workspace, view *View, end func()) {
	vg.ws = ws
	vg.view = view
	vg.unmapped = view.Unmapped.Connect(func(*View) {
		logger.Debugf("View of surface %d unmapped, ending grab", view.Surface.ID())
		end()
	})
}

// View returns the view being operated on
func (vg *viewGrab) View() *View {
	return vg.view
}

// Suspended reports whether a higher priority grab has taken over
func (vg *viewGrab) Suspended() bool {
	return vg.suspended
}

func (vg *viewGrab) Cancel(g seat.Grab) {
	vg.unmapped.Disconnect()
}

func (vg *viewGrab) GrabAction(g seat.Grab, action seat.GrabAction) {
	vg.suspended = action == seat.GrabPush
}

// canStartPointerGrab reports whether a pointer operation may start: only
// from the default grab, and only for the serial of the last button press
// when a serial is given.
func canStartPointerGrab(s *seat.Seat, serial uint32) (*seat.Pointer, bool) {
	p := s.Pointer()
	if p == nil || p.ActiveGrab() != p.DefaultGrab() {
		return nil, false
	}
	if serial != 0 && serial != s.LastButtonSerial() {
		logger.Debugf("Refusing pointer grab: serial %d is not the last button serial %d", serial, s.LastButtonSerial())
		return nil, false
	}
	return p, true
}

// MoveGrab drags a view with the pointer until every button is released.
type MoveGrab struct {
	viewGrab
	grab         *seat.PointerGrab
	lastX, lastY float64
}

// StartMove begins an interactive move of view. It returns nil when the
// pointer is busy with another grab or serial does not authorize it; a zero
// serial skips the check.
func StartMove(s *seat.Seat, ws *Workspace, view *View, serial uint32, priority int) *MoveGrab {
	p, ok := canStartPointerGrab(s, serial)
	if !ok || !view.Mapped() {
		return nil
	}
	m := &MoveGrab{}
	m.grab = seat.NewPointerGrab(m)
	m.attach(ws, view, m.grab.End)
	m.lastX, m.lastY = p.Position()

	p.StartGrab(m.grab, priority)
	ws.Raise(view)
	return m
}

// Grab returns the underlying pointer grab
func (m *MoveGrab) Grab() *seat.PointerGrab {
	return m.grab
}

func (m *MoveGrab) Enter(g *seat.PointerGrab, surface *resource.Resource, sx, sy float64) {}

func (m *MoveGrab) Motion(g *seat.PointerGrab, timeMsec uint32, sx, sy float64) {
	m.ws.MoveView(m.view, sx-m.lastX, sy-m.lastY)
	m.lastX, m.lastY = sx, sy
}

func (m *MoveGrab) Button(g *seat.PointerGrab, timeMsec, button uint32, state seat.ButtonState) {
	if state == seat.ButtonReleased && g.Seat().Pointer().ButtonCount() == 0 {
		g.End()
	}
}

func (m *MoveGrab) Axis(g *seat.PointerGrab, timeMsec uint32, axis seat.AxisEvent) {}

func (m *MoveGrab) Frame(g *seat.PointerGrab) {}

// ResizeGrab resizes a view from one or two edges until every button is
// released.
type ResizeGrab struct {
	viewGrab
	grab         *seat.PointerGrab
	edges        uint32
	lastX, lastY float64
}

// StartResize begins an interactive resize of view from edges, with the
// same start rules as StartMove.
func StartResize(s *seat.Seat, ws *Workspace, view *View, edges uint32, serial uint32, priority int) *ResizeGrab {
	if edges == EdgeNone {
		return nil
	}
	p, ok := canStartPointerGrab(s, serial)
	if !ok || !view.Mapped() {
		return nil
	}
	r := &ResizeGrab{edges: edges}
	r.grab = seat.NewPointerGrab(r)
	r.attach(ws, view, r.grab.End)
	r.lastX, r.lastY = p.Position()

	p.StartGrab(r.grab, priority)
	ws.Raise(view)
	return r
}

// Grab returns the underlying pointer grab
func (r *ResizeGrab) Grab() *seat.PointerGrab {
	return r.grab
}

func (r *ResizeGrab) Enter(g *seat.PointerGrab, surface *resource.Resource, sx, sy float64) {}

func (r *ResizeGrab) Motion(g *seat.PointerGrab, timeMsec uint32, sx, sy float64) {
	r.ws.ResizeView(r.view, r.edges, sx-r.lastX, sy-r.lastY)
	r.lastX, r.lastY = sx, sy
}

func (r *ResizeGrab) Button(g *seat.PointerGrab, timeMsec, button uint32, state seat.ButtonState) {
	if state == seat.ButtonReleased && g.Seat().Pointer().ButtonCount() == 0 {
		g.End()
	}
}

func (r *ResizeGrab) Axis(g *seat.PointerGrab, timeMsec uint32, axis seat.AxisEvent) {}

func (r *ResizeGrab) Frame(g *seat.PointerGrab) {}

// TouchMoveGrab drags a view with one touch point until it is lifted.
type TouchMoveGrab struct {
	viewGrab
	grab         *seat.TouchGrab
	id           int32
	lastX, lastY float64
}

// StartTouchMove begins moving view with touch point id, starting from
// (sx, sy). Only allowed from the default touch grab; a non-zero serial
// must be the last touch down serial.
func StartTouchMove(s *seat.Seat, ws *Workspace, view *View, id int32, sx, sy float64, serial uint32, priority int) *TouchMoveGrab {
	t := s.Touch()
	if t == nil || t.ActiveGrab() != t.DefaultGrab() || !view.Mapped() {
		return nil
	}
	if serial != 0 && serial != s.LastTouchSerial() {
		return nil
	}
	m := &TouchMoveGrab{id: id, lastX: sx, lastY: sy}
	m.grab = seat.NewTouchGrab(m)
	m.attach(ws, view, m.grab.End)

	t.StartGrab(m.grab, priority)
	ws.Raise(view)
	return m
}

// Grab returns the underlying touch grab
func (m *TouchMoveGrab) Grab() *seat.TouchGrab {
	return m.grab
}

func (m *TouchMoveGrab) Enter(g *seat.TouchGrab, surface *resource.Resource, sx, sy float64) {}

func (m *TouchMoveGrab) Down(g *seat.TouchGrab, timeMsec uint32, id int32, sx, sy float64) {}

func (m *TouchMoveGrab) Up(g *seat.TouchGrab, timeMsec uint32, id int32) {
	if id == m.id {
		g.End()
	}
}

func (m *TouchMoveGrab) Motion(g *seat.TouchGrab, timeMsec uint32, id int32, sx, sy float64) {
	if id != m.id {
		return
	}
	m.ws.MoveView(m.view, sx-m.lastX, sy-m.lastY)
	m.lastX, m.lastY = sx, sy
}

func (m *TouchMoveGrab) TouchCancel(g *seat.TouchGrab) {
	g.End()
}

// TaskSwitchGrab cycles through the views of a workspace while a modifier
// is held. Releasing every modifier raises and focuses the selection.
type TaskSwitchGrab struct {
	grab      *seat.KeyboardGrab
	ws        *Workspace
	cycleKey  uint32
	selected  *View
	suspended bool
}

// StartTaskSwitch begins task switching on ws, selecting the view behind
// the front-most one. cycleKey presses advance the selection. It returns
// nil when the keyboard is busy or the workspace is empty.
func StartTaskSwitch(s *seat.Seat, ws *Workspace, cycleKey uint32, priority int) *TaskSwitchGrab {
	k := s.Keyboard()
	if k == nil || k.ActiveGrab() != k.DefaultGrab() || ws.Front() == nil {
		return nil
	}
	ts := &TaskSwitchGrab{ws: ws, cycleKey: cycleKey}
	ts.grab = seat.NewKeyboardGrab(ts)
	ts.selected = ws.Front()
	ts.advance()

	k.StartGrab(ts.grab, priority)
	return ts
}

// Grab returns the underlying keyboard grab
func (ts *TaskSwitchGrab) Grab() *seat.KeyboardGrab {
	return ts.grab
}

// Selected returns the view that would be raised now
func (ts *TaskSwitchGrab) Selected() *View {
	return ts.selected
}

// Suspended reports whether a higher priority grab has taken over
func (ts *TaskSwitchGrab) Suspended() bool {
	return ts.suspended
}

func (ts *TaskSwitchGrab) advance() {
	views := ts.ws.Views()
	if len(views) == 0 {
		ts.selected = nil
		return
	}
	next := 0
	for i, v := range views {
		if v == ts.selected {
			next = (i + 1) % len(views)
			break
		}
	}
	ts.selected = views[next]
}

func (ts *TaskSwitchGrab) Enter(g *seat.KeyboardGrab, surface *resource.Resource) {}

func (ts *TaskSwitchGrab) Key(g *seat.KeyboardGrab, timeMsec, key uint32, state seat.KeyState) {
	if key == ts.cycleKey && state == seat.KeyPressed {
		ts.advance()
	}
}

func (ts *TaskSwitchGrab) Modifiers(g *seat.KeyboardGrab, mods wire.Modifiers) {
	if mods.Depressed != 0 {
		return
	}
	k := g.Seat().Keyboard()
	g.End()

	if ts.selected == nil || !ts.selected.Mapped() {
		return
	}
	ts.ws.Raise(ts.selected)
	k.SetFocus(ts.selected.Surface)
}

func (ts *TaskSwitchGrab) GrabAction(g seat.Grab, action seat.GrabAction) {
	ts.suspended = action == seat.GrabPush
}
