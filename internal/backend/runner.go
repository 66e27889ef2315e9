package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/bnema/wayseat/internal/client"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/output"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
	"github.com/bnema/wayseat/internal/wm"
)

// Priorities are the stack priorities of the interactive grabs
type Priorities struct {
	Move       int
	Resize     int
	TouchMove  int
	TaskSwitch int
}

// DefaultPriorities returns the wm package defaults
func DefaultPriorities() Priorities {
	return Priorities{
		Move:       wm.PriorityMove,
		Resize:     wm.PriorityResize,
		TouchMove:  wm.PriorityTouchMove,
		TaskSwitch: wm.PriorityTaskSwitch,
	}
}

// Options configures a Runner
type Options struct {
	// Sink receives every message sent to any client. Nil drops them.
	Sink wire.Sink
	// MaxSeats bounds the seat manager, 0 means the default.
	MaxSeats int
	// Capabilities are enabled before clients connect, so they see them
	// in the first announcement.
	Capabilities  seat.Capability
	Priorities    Priorities
	EmergencyKeys []uint32
}

type surfaceKey struct {
	client resource.ClientID
	name   string
}

// Runner applies a script to a freshly built seat
type Runner struct {
	script *Script
	opts   Options

	registry  *client.Registry
	manager   *seat.Manager
	seat      *seat.Seat
	workspace *wm.Workspace
	outputs   *output.Tracker
	emergency *wm.EmergencyRelease

	surfaces map[surfaceKey]*resource.Resource
	views    map[surfaceKey]*wm.View
	applied  int
	next     int
}

// NewRunner builds the seat, outputs, clients and views the script
// declares. No step is applied yet.
func NewRunner(script *Script, opts Options) (*Runner, error) {
	if opts.Sink == nil {
		opts.Sink = wire.SinkFunc(func(wire.Message) {})
	}
	if opts.Priorities == (Priorities{}) {
		opts.Priorities = DefaultPriorities()
	}

	r := &Runner{
		script:    script,
		opts:      opts,
		registry:  client.NewRegistry(),
		workspace: wm.NewWorkspace("main"),
		surfaces:  make(map[surfaceKey]*resource.Resource),
		views:     make(map[surfaceKey]*wm.View),
	}
	r.manager = seat.NewManager(r.registry, opts.MaxSeats)
	r.outputs = output.NewTracker(r.manager)
	r.emergency = wm.NewEmergencyRelease(r.manager, opts.EmergencyKeys, func(s *seat.Seat, reason string, released int) {
		logger.Infof("Emergency release on seat %s: %d grabs ended (%s)", s.Name(), released, reason)
	})

	name := script.Seat
	if name == "" {
		name = "seat0"
	}
	s, err := r.manager.NewSeat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create seat: %w", err)
	}
	r.seat = s
	s.Enable(opts.Capabilities)

	for _, o := range script.Outputs {
		scale := o.Scale
		if scale == 0 {
			scale = 1
		}
		out := &output.Output{Name: o.Name, X: o.X, Y: o.Y, Width: o.Width, Height: o.Height, Scale: scale}
		if err := r.outputs.AddOutput(out); err != nil {
			return nil, err
		}
	}

	for _, c := range script.Clients {
		if err := r.connect(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Runner) connect(c ClientSpec) error {
	name := c.Name
	if name == "" {
		name = fmt.Sprintf("client-%d", c.ID)
	}
	peer, err := r.registry.Connect(c.ID, name, r.opts.Sink)
	if err != nil {
		return err
	}
	r.seat.SendCapabilities(peer)

	for _, capName := range c.Bind {
		capability, ok := seat.ParseCapability(capName)
		if !ok {
			return fmt.Errorf("client %d: unknown capability %q", c.ID, capName)
		}
		if _, err := peer.Bind(capability); err != nil {
			return fmt.Errorf("client %d: %w", c.ID, err)
		}
	}

	for _, sf := range c.Surfaces {
		surface := peer.CreateSurface()
		key := surfaceKey{c.ID, sf.Name}
		r.surfaces[key] = surface

		view := wm.NewView(surface, sf.X, sf.Y, sf.Width, sf.Height)
		r.views[key] = view
		r.workspace.Add(view)

		if sf.Output != "" {
			out := r.outputs.Output(sf.Output)
			if out == nil {
				return fmt.Errorf("surface %s of client %d: unknown output %q", sf.Name, c.ID, sf.Output)
			}
			r.outputs.Place(surface, out)
		}
	}
	return nil
}

// Registry returns the client registry
func (r *Runner) Registry() *client.Registry { return r.registry }

// Manager returns the seat manager
func (r *Runner) Manager() *seat.Manager { return r.manager }

// Seat returns the scripted seat
func (r *Runner) Seat() *seat.Seat { return r.seat }

// Workspace returns the workspace holding every declared surface
func (r *Runner) Workspace() *wm.Workspace { return r.workspace }

// Outputs returns the output tracker
func (r *Runner) Outputs() *output.Tracker { return r.outputs }

// Emergency returns the emergency release watching the seat
func (r *Runner) Emergency() *wm.EmergencyRelease { return r.emergency }

// Applied returns how many steps have been applied
func (r *Runner) Applied() int { return r.applied }

// View returns the view of a declared surface, or nil
func (r *Runner) View(id resource.ClientID, name string) *wm.View {
	return r.views[surfaceKey{id, name}]
}

// Run applies every remaining step in order, stopping at the first error
// or when ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Next applies the first step not yet applied and returns it. It returns
// io.EOF once the script is exhausted. A failed step is not counted, so
// calling Next again retries it.
func (r *Runner) Next() (Step, error) {
	if r.next >= len(r.script.Steps) {
		return Step{}, io.EOF
	}
	st := r.script.Steps[r.next]
	if err := r.Apply(st); err != nil {
		return st, fmt.Errorf("step %d (%s): %w", r.next+1, st.Op, err)
	}
	r.next++
	return st, nil
}

// Total returns the number of steps in the script
func (r *Runner) Total() int { return len(r.script.Steps) }

// Apply runs one step, then gives the emergency release a chance to act.
func (r *Runner) Apply(st Step) error {
	h, ok := handlers[st.Op]
	if !ok {
		return fmt.Errorf("%q: %w", st.Op, ErrUnknownOp)
	}
	if err := h(r, st); err != nil {
		return err
	}
	r.applied++
	r.emergency.Check(r.seat)
	r.emergency.Poll()
	return nil
}

func (r *Runner) peer(id resource.ClientID) (*client.Peer, error) {
	p := r.registry.Peer(id)
	if p == nil {
		return nil, fmt.Errorf("client %d: %w", id, client.ErrUnknownPeer)
	}
	return p, nil
}

// surface resolves a step's surface. An empty name means no surface.
func (r *Runner) surface(st Step) (*resource.Resource, error) {
	if st.Surface == "" {
		return nil, nil
	}
	s, ok := r.surfaces[surfaceKey{st.Client, st.Surface}]
	if !ok {
		return nil, fmt.Errorf("surface %q of client %d: %w", st.Surface, st.Client, client.ErrUnknownResource)
	}
	return s, nil
}

func (r *Runner) view(st Step) (*wm.View, error) {
	v, ok := r.views[surfaceKey{st.Client, st.Surface}]
	if !ok {
		return nil, fmt.Errorf("view %q of client %d: %w", st.Surface, st.Client, client.ErrUnknownResource)
	}
	return v, nil
}

func (r *Runner) handle(ev seat.Event) {
	if !r.seat.Handle(ev) {
		logger.Warnf("Dropped %T: seat %s has no %s", ev, r.seat.Name(), ev.Capability())
	}
}

func parseCaps(names []string) (seat.Capability, error) {
	var caps seat.Capability
	for _, name := range names {
		c, ok := seat.ParseCapability(name)
		if !ok {
			return 0, fmt.Errorf("unknown capability %q", name)
		}
		caps |= c
	}
	return caps, nil
}

func parsePressed(state string) (bool, error) {
	switch state {
	case "pressed", "down":
		return true, nil
	case "released", "up":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state %q", state)
	}
}

// parseSerial accepts an empty string (no check), "last" or a number.
func parseSerial(serial string, last uint32) (uint32, error) {
	switch serial {
	case "":
		return 0, nil
	case "last":
		return last, nil
	}
	n, err := strconv.ParseUint(serial, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid serial %q: %w", serial, err)
	}
	return uint32(n), nil
}

func parseEdges(names []string) (uint32, error) {
	var edges uint32
	for _, name := range names {
		switch name {
		case "top":
			edges |= wm.EdgeTop
		case "bottom":
			edges |= wm.EdgeBottom
		case "left":
			edges |= wm.EdgeLeft
		case "right":
			edges |= wm.EdgeRight
		default:
			return 0, fmt.Errorf("invalid edge %q", name)
		}
	}
	return edges, nil
}

func parseAxis(st Step) (seat.AxisEvent, error) {
	ev := seat.AxisEvent{Value: st.Value, Discrete: st.Discrete}
	switch st.Axis {
	case "", "vertical":
		ev.Orientation = seat.AxisVertical
	case "horizontal":
		ev.Orientation = seat.AxisHorizontal
	default:
		return ev, fmt.Errorf("invalid axis %q", st.Axis)
	}
	switch st.Source {
	case "", "wheel":
		ev.Source = seat.AxisSourceWheel
	case "finger":
		ev.Source = seat.AxisSourceFinger
	case "continuous":
		ev.Source = seat.AxisSourceContinuous
	case "wheel_tilt":
		ev.Source = seat.AxisSourceWheelTilt
	default:
		return ev, fmt.Errorf("invalid axis source %q", st.Source)
	}
	return ev, nil
}
