package backend

import (
	"fmt"

	"github.com/bnema/wayseat/internal/client"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wm"
)

type stepHandler func(r *Runner, st Step) error

var handlers map[string]stepHandler

func init() {
	handlers = map[string]stepHandler{
		// hot-plug and client lifecycle
		"enable":          stepEnable,
		"disable":         stepDisable,
		"bind":            stepBind,
		"release":         stepRelease,
		"disconnect":      stepDisconnect,
		"destroy_surface": stepDestroySurface,
		"unmap":           stepUnmap,

		"pointer_enter":  stepPointerEnter,
		"pointer_motion": stepPointerMotion,
		"pointer_button": stepPointerButton,
		"pointer_axis":   stepPointerAxis,
		"pointer_frame":  stepPointerFrame,

		"keyboard_enter": stepKeyboardEnter,
		"key":            stepKey,
		"modifiers":      stepModifiers,

		"touch_enter":  stepTouchEnter,
		"touch_down":   stepTouchDown,
		"touch_up":     stepTouchUp,
		"touch_motion": stepTouchMotion,
		"touch_cancel": stepTouchCancel,

		"start_move":        stepStartMove,
		"start_resize":      stepStartResize,
		"start_task_switch": stepStartTaskSwitch,
		"start_touch_move":  stepStartTouchMove,
		"end_grabs":         stepEndGrabs,
		"emergency":         stepEmergency,
	}
}

func stepEnable(r *Runner, st Step) error {
	caps, err := parseCaps(st.Caps)
	if err != nil {
		return err
	}
	r.seat.Enable(caps)
	return nil
}

func stepDisable(r *Runner, st Step) error {
	caps, err := parseCaps(st.Caps)
	if err != nil {
		return err
	}
	r.seat.Disable(caps)
	return nil
}

func stepBind(r *Runner, st Step) error {
	p, err := r.peer(st.Client)
	if err != nil {
		return err
	}
	for _, name := range st.Caps {
		c, ok := seat.ParseCapability(name)
		if !ok {
			return fmt.Errorf("unknown capability %q", name)
		}
		if _, err := p.Bind(c); err != nil {
			return err
		}
	}
	return nil
}

// stepRelease releases the oldest binding of each listed capability
func stepRelease(r *Runner, st Step) error {
	p, err := r.peer(st.Client)
	if err != nil {
		return err
	}
	for _, name := range st.Caps {
		c, ok := seat.ParseCapability(name)
		if !ok {
			return fmt.Errorf("unknown capability %q", name)
		}
		bindings := p.Bindings(c)
		if len(bindings) == 0 {
			return fmt.Errorf("client %d has no %s binding: %w", st.Client, c, client.ErrUnknownResource)
		}
		if err := p.Release(bindings[0].(*client.Binding)); err != nil {
			return err
		}
	}
	return nil
}

func stepDisconnect(r *Runner, st Step) error {
	return r.registry.Disconnect(st.Client)
}

func stepDestroySurface(r *Runner, st Step) error {
	s, err := r.surface(st)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("destroy_surface needs a surface")
	}
	s.Destroy()
	return nil
}

func stepUnmap(r *Runner, st Step) error {
	v, err := r.view(st)
	if err != nil {
		return err
	}
	v.Unmap()
	return nil
}

func stepPointerEnter(r *Runner, st Step) error {
	s, err := r.surface(st)
	if err != nil {
		return err
	}
	r.handle(seat.PointerEnterEvent{Surface: s, X: st.X, Y: st.Y})
	return nil
}

func stepPointerMotion(r *Runner, st Step) error {
	r.handle(seat.PointerMotionEvent{Time: st.Time, X: st.X, Y: st.Y})
	return nil
}

func stepPointerButton(r *Runner, st Step) error {
	pressed, err := parsePressed(st.State)
	if err != nil {
		return err
	}
	state := seat.ButtonReleased
	if pressed {
		state = seat.ButtonPressed
	}
	r.handle(seat.PointerButtonEvent{Time: st.Time, Button: st.Button, State: state})
	return nil
}

func stepPointerAxis(r *Runner, st Step) error {
	axis, err := parseAxis(st)
	if err != nil {
		return err
	}
	r.handle(seat.PointerAxisEvent{Time: st.Time, Axis: axis})
	return nil
}

func stepPointerFrame(r *Runner, st Step) error {
	r.handle(seat.PointerFrameEvent{})
	return nil
}

func stepKeyboardEnter(r *Runner, st Step) error {
	s, err := r.surface(st)
	if err != nil {
		return err
	}
	r.handle(seat.KeyboardEnterEvent{Surface: s})
	return nil
}

func stepKey(r *Runner, st Step) error {
	pressed, err := parsePressed(st.State)
	if err != nil {
		return err
	}
	state := seat.KeyReleased
	if pressed {
		state = seat.KeyPressed
	}
	r.handle(seat.KeyEvent{Time: st.Time, Key: st.Key, State: state})
	return nil
}

func stepModifiers(r *Runner, st Step) error {
	r.handle(seat.ModifiersEvent{Mods: st.Mods.wire()})
	return nil
}

func stepTouchEnter(r *Runner, st Step) error {
	s, err := r.surface(st)
	if err != nil {
		return err
	}
	r.handle(seat.TouchEnterEvent{Surface: s, X: st.X, Y: st.Y})
	return nil
}

func stepTouchDown(r *Runner, st Step) error {
	r.handle(seat.TouchDownEvent{Time: st.Time, ID: st.ID, X: st.X, Y: st.Y})
	return nil
}

func stepTouchUp(r *Runner, st Step) error {
	r.handle(seat.TouchUpEvent{Time: st.Time, ID: st.ID})
	return nil
}

func stepTouchMotion(r *Runner, st Step) error {
	r.handle(seat.TouchMotionEvent{Time: st.Time, ID: st.ID, X: st.X, Y: st.Y})
	return nil
}

func stepTouchCancel(r *Runner, st Step) error {
	r.handle(seat.TouchCancelEvent{})
	return nil
}

func priority(p, fallback int) int {
	if p != 0 {
		return p
	}
	return fallback
}

func refused(op string, st Step) error {
	logger.Warnf("%s on surface %q of client %d refused", op, st.Surface, st.Client)
	return nil
}

func stepStartMove(r *Runner, st Step) error {
	v, err := r.view(st)
	if err != nil {
		return err
	}
	serial, err := parseSerial(st.Serial, r.seat.LastButtonSerial())
	if err != nil {
		return err
	}
	if wm.StartMove(r.seat, r.workspace, v, serial, priority(st.Priority, r.opts.Priorities.Move)) == nil {
		return refused("move", st)
	}
	return nil
}

func stepStartResize(r *Runner, st Step) error {
	v, err := r.view(st)
	if err != nil {
		return err
	}
	edges, err := parseEdges(st.Edges)
	if err != nil {
		return err
	}
	serial, err := parseSerial(st.Serial, r.seat.LastButtonSerial())
	if err != nil {
		return err
	}
	if wm.StartResize(r.seat, r.workspace, v, edges, serial, priority(st.Priority, r.opts.Priorities.Resize)) == nil {
		return refused("resize", st)
	}
	return nil
}

func stepStartTaskSwitch(r *Runner, st Step) error {
	if wm.StartTaskSwitch(r.seat, r.workspace, st.CycleKey, priority(st.Priority, r.opts.Priorities.TaskSwitch)) == nil {
		return refused("task switch", st)
	}
	return nil
}

func stepStartTouchMove(r *Runner, st Step) error {
	v, err := r.view(st)
	if err != nil {
		return err
	}
	serial, err := parseSerial(st.Serial, r.seat.LastTouchSerial())
	if err != nil {
		return err
	}
	prio := priority(st.Priority, r.opts.Priorities.TouchMove)
	if wm.StartTouchMove(r.seat, r.workspace, v, st.ID, st.X, st.Y, serial, prio) == nil {
		return refused("touch move", st)
	}
	return nil
}

func stepEndGrabs(r *Runner, st Step) error {
	reason := st.Reason
	if reason == "" {
		reason = "script"
	}
	r.emergency.ReleaseAll(r.seat, reason)
	return nil
}

// stepEmergency queues a release the way an asynchronous trigger would
func stepEmergency(r *Runner, st Step) error {
	reason := st.Reason
	if reason == "" {
		reason = "script"
	}
	r.emergency.Request(reason)
	return nil
}
