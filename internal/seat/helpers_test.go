package seat_test

import (
	"fmt"
	"testing"

	"github.com/bnema/wayseat/internal/client"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	rec      *wire.Recorder
	registry *client.Registry
	seat     *seat.Seat
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry := client.NewRegistry()
	return &testEnv{
		rec:      wire.NewRecorder(),
		registry: registry,
		seat:     seat.New("seat0", registry, nil),
	}
}

// connect adds a peer holding one binding per listed capability and one
// surface.
func (e *testEnv) connect(t *testing.T, id resource.ClientID, caps ...seat.Capability) (*client.Peer, *resource.Resource) {
	t.Helper()
	p, err := e.registry.Connect(id, fmt.Sprintf("client-%d", id), e.rec)
	require.NoError(t, err)
	for _, c := range caps {
		_, err := p.Bind(c)
		require.NoError(t, err)
	}
	return p, p.CreateSurface()
}

// grabLog collects notifications from test grabs in order.
type grabLog struct {
	entries []string
}

func (l *grabLog) add(format string, args ...any) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *grabLog) reset() {
	l.entries = nil
}

// testPointerGrab records everything it receives. With endOnRelease it
// ends itself on a release that leaves no buttons held.
type testPointerGrab struct {
	name         string
	log          *grabLog
	endOnRelease bool
}

func newTestPointerGrab(name string, log *grabLog) *seat.PointerGrab {
	return seat.NewPointerGrab(&testPointerGrab{name: name, log: log})
}

func (h *testPointerGrab) Enter(g *seat.PointerGrab, surface *resource.Resource, sx, sy float64) {
	h.log.add("%s:enter", h.name)
}

func (h *testPointerGrab) Motion(g *seat.PointerGrab, timeMsec uint32, sx, sy float64) {
	h.log.add("%s:motion", h.name)
}

func (h *testPointerGrab) Button(g *seat.PointerGrab, timeMsec, button uint32, state seat.ButtonState) {
	h.log.add("%s:button", h.name)
	if h.endOnRelease && state == seat.ButtonReleased && g.Seat().Pointer().ButtonCount() == 0 {
		g.End()
	}
}

func (h *testPointerGrab) Axis(g *seat.PointerGrab, timeMsec uint32, axis seat.AxisEvent) {
	h.log.add("%s:axis", h.name)
}

func (h *testPointerGrab) Frame(g *seat.PointerGrab) {
	h.log.add("%s:frame", h.name)
}

func (h *testPointerGrab) Cancel(g seat.Grab) {
	h.log.add("%s:cancel", h.name)
}

func (h *testPointerGrab) GrabAction(g seat.Grab, action seat.GrabAction) {
	h.log.add("%s:%s", h.name, action)
}

// plainPointerGrab has no cancel or suspend/resume hooks.
type plainPointerGrab struct{}

func (plainPointerGrab) Enter(*seat.PointerGrab, *resource.Resource, float64, float64) {}
func (plainPointerGrab) Motion(*seat.PointerGrab, uint32, float64, float64)            {}
func (plainPointerGrab) Button(*seat.PointerGrab, uint32, uint32, seat.ButtonState)    {}
func (plainPointerGrab) Axis(*seat.PointerGrab, uint32, seat.AxisEvent)                {}
func (plainPointerGrab) Frame(*seat.PointerGrab)                                       {}

// testTouchGrab records touch events.
type testTouchGrab struct {
	name string
	log  *grabLog
}

func (h *testTouchGrab) Enter(g *seat.TouchGrab, surface *resource.Resource, sx, sy float64) {
	h.log.add("%s:enter", h.name)
}

func (h *testTouchGrab) Down(g *seat.TouchGrab, timeMsec uint32, id int32, sx, sy float64) {
	h.log.add("%s:down", h.name)
}

func (h *testTouchGrab) Up(g *seat.TouchGrab, timeMsec uint32, id int32) {
	h.log.add("%s:up", h.name)
}

func (h *testTouchGrab) Motion(g *seat.TouchGrab, timeMsec uint32, id int32, sx, sy float64) {
	h.log.add("%s:motion", h.name)
}

func (h *testTouchGrab) TouchCancel(g *seat.TouchGrab) {
	h.log.add("%s:touch-cancel", h.name)
}

func (h *testTouchGrab) Cancel(g seat.Grab) {
	h.log.add("%s:cancel", h.name)
}

func (h *testTouchGrab) GrabAction(g seat.Grab, action seat.GrabAction) {
	h.log.add("%s:%s", h.name, action)
}

// testKeyboardGrab records keyboard events.
type testKeyboardGrab struct {
	name string
	log  *grabLog
}

func (h *testKeyboardGrab) Enter(g *seat.KeyboardGrab, surface *resource.Resource) {
	h.log.add("%s:enter", h.name)
}

func (h *testKeyboardGrab) Key(g *seat.KeyboardGrab, timeMsec, key uint32, state seat.KeyState) {
	h.log.add("%s:key", h.name)
}

func (h *testKeyboardGrab) Modifiers(g *seat.KeyboardGrab, mods wire.Modifiers) {
	h.log.add("%s:modifiers", h.name)
}

func (h *testKeyboardGrab) GrabAction(g seat.Grab, action seat.GrabAction) {
	h.log.add("%s:%s", h.name, action)
}

// assertPointerStack checks the active grab is never nil and always the
// front of the stack, or the default grab when the stack is empty.
func assertPointerStack(t *testing.T, p *seat.Pointer) {
	t.Helper()
	active := p.ActiveGrab()
	require.NotNil(t, active)
	if grabs := p.Grabs(); len(grabs) > 0 {
		assert.Same(t, grabs[0], active)
	} else {
		assert.Same(t, p.DefaultGrab(), active)
	}
	assert.Equal(t, seat.GrabActive, active.State())
}

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, rest := range permutations(n - 1) {
		for i := 0; i <= len(rest); i++ {
			perm := make([]int, 0, n)
			perm = append(perm, rest[:i]...)
			perm = append(perm, n-1)
			perm = append(perm, rest[i:]...)
			out = append(out, perm)
		}
	}
	return out
}
