// Package wm implements the interactive operations a window manager builds
// on top of seat grabs: moving and resizing views, touch dragging and task
// switching.
package wm

import (
	"slices"

	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
)

// Resize edges, as in xdg_toplevel.resize_edge
const (
	EdgeNone   uint32 = 0
	EdgeTop    uint32 = 1
	EdgeBottom uint32 = 2
	EdgeLeft   uint32 = 4
	EdgeRight  uint32 = 8
)

// View is a client surface placed on a workspace.
type View struct {
	// Unmapped fires once when the view is unmapped or its surface is
	// destroyed.
	Unmapped seat.Signal[*View]

	Surface       *resource.Resource
	X, Y          float64
	Width, Height float64

	destroy *resource.Listener
	mapped  bool
}

// NewView maps surface at the given geometry.
func NewView(surface *resource.Resource, x, y, width, height float64) *View {
	v := &View{
		Surface: surface,
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
		mapped:  true,
	}
	v.destroy = surface.OnDestroy(func(*resource.Resource) {
		v.Unmap()
	})
	return v
}

// Mapped reports whether the view is still on screen
func (v *View) Mapped() bool {
	return v.mapped
}

// Unmap takes the view off screen and emits Unmapped.
func (v *View) Unmap() {
	if !v.mapped {
		return
	}
	v.mapped = false
	v.destroy.Remove()
	v.Unmapped.Emit(v)
}

// Workspace is an ordered set of views, front-most first.
type Workspace struct {
	name  string
	views []*View
	conns map[*View]*seat.Connection
}

// NewWorkspace creates an empty workspace
func NewWorkspace(name string) *Workspace {
	return &Workspace{
		name:  name,
		conns: make(map[*View]*seat.Connection),
	}
}

// Name returns the workspace name
func (w *Workspace) Name() string {
	return w.name
}

// Add puts v in front of every other view. Unmapped views leave the
// workspace on their own.
func (w *Workspace) Add(v *View) {
	if !v.Mapped() || slices.Contains(w.views, v) {
		return
	}
	w.views = slices.Insert(w.views, 0, v)
	w.conns[v] = v.Unmapped.Connect(w.Remove)
}

// Remove drops v from the workspace
func (w *Workspace) Remove(v *View) {
	i := slices.Index(w.views, v)
	if i < 0 {
		return
	}
	w.views = slices.Delete(w.views, i, i+1)
	w.conns[v].Disconnect()
	delete(w.conns, v)
}

// Views returns the views front-most first
func (w *Workspace) Views() []*View {
	return slices.Clone(w.views)
}

// Front returns the front-most view, or nil
func (w *Workspace) Front() *View {
	if len(w.views) == 0 {
		return nil
	}
	return w.views[0]
}

// Raise moves v to the front
func (w *Workspace) Raise(v *View) {
	i := slices.Index(w.views, v)
	if i <= 0 {
		return
	}
	w.views = slices.Delete(w.views, i, i+1)
	w.views = slices.Insert(w.views, 0, v)
}

// MoveView translates v by (dx, dy)
func (w *Workspace) MoveView(v *View, dx, dy float64) {
	v.X += dx
	v.Y += dy
	logger.Debugf("Moved view of surface %d to (%.1f, %.1f)", v.Surface.ID(), v.X, v.Y)
}

// ResizeView grows or shrinks v from the given edges. The opposite edge
// stays in place and the size never drops below 1x1.
func (w *Workspace) ResizeView(v *View, edges uint32, dx, dy float64) {
	if edges&EdgeRight != 0 {
		v.Width = max(1, v.Width+dx)
	} else if edges&EdgeLeft != 0 {
		width := max(1, v.Width-dx)
		v.X += v.Width - width
		v.Width = width
	}
	if edges&EdgeBottom != 0 {
		v.Height = max(1, v.Height+dy)
	} else if edges&EdgeTop != 0 {
		height := max(1, v.Height-dy)
		v.Y += v.Height - height
		v.Height = height
	}
}
