package wm

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/seat"
)

// DefaultEmergencyKeys is Ctrl+Alt+Escape as evdev key codes.
var DefaultEmergencyKeys = []uint32{29, 56, 1}

// EmergencyRelease ends every stacked grab of a seat when asked to. It is
// triggered by holding a key combination, by SIGUSR1 or by a trigger file.
// Asynchronous triggers are queued and applied by Poll from the event loop.
type EmergencyRelease struct {
	manager     *seat.Manager
	keys        []uint32
	triggerFile string
	requests    chan string
	held        map[*seat.Seat]bool
	onRelease   func(s *seat.Seat, reason string, released int)
}

// NewEmergencyRelease watches the seats of manager. An empty keys disables
// the key combination.
func NewEmergencyRelease(manager *seat.Manager, keys []uint32, onRelease func(s *seat.Seat, reason string, released int)) *EmergencyRelease {
	er := &EmergencyRelease{
		manager:     manager,
		keys:        slices.Clone(keys),
		triggerFile: "/tmp/wayseat-release",
		requests:    make(chan string, 1),
		held:        make(map[*seat.Seat]bool),
		onRelease:   onRelease,
	}
	if manager != nil {
		manager.SeatRemoved.Connect(func(s *seat.Seat) {
			delete(er.held, s)
		})
	}
	return er
}

// SetTriggerFile changes the file watched by Start
func (er *EmergencyRelease) SetTriggerFile(path string) {
	er.triggerFile = path
}

// Start begins watching for SIGUSR1 and the trigger file until ctx is done.
func (er *EmergencyRelease) Start(ctx context.Context) {
	go er.handleSignals(ctx)
	go er.monitorFileTrigger(ctx)
	logger.Info("[EMERGENCY] Emergency release mechanisms activated")
}

// Request queues a release of every seat. Safe from any goroutine.
func (er *EmergencyRelease) Request(reason string) {
	select {
	case er.requests <- reason:
	default:
	}
}

// Poll applies a queued request, if any, and reports whether it did.
func (er *EmergencyRelease) Poll() bool {
	select {
	case reason := <-er.requests:
		for _, s := range er.manager.Seats() {
			er.ReleaseAll(s, reason)
		}
		return true
	default:
		return false
	}
}

// Check releases s when every key of the combination is held. The
// combination fires once per press.
func (er *EmergencyRelease) Check(s *seat.Seat) bool {
	k := s.Keyboard()
	if len(er.keys) == 0 || k == nil {
		return false
	}
	pressed := k.PressedKeys()
	for _, key := range er.keys {
		if !slices.Contains(pressed, key) {
			delete(er.held, s)
			return false
		}
	}
	if er.held[s] {
		return false
	}
	er.held[s] = true
	logger.Warnf("[EMERGENCY] Key combination held on seat %s", s.Name())
	er.ReleaseAll(s, "keys")
	return true
}

// ReleaseAll ends every non-default grab of s, top of each stack first,
// and returns how many it ended itself.
func (er *EmergencyRelease) ReleaseAll(s *seat.Seat, reason string) int {
	released := 0
	if p := s.Pointer(); p != nil {
		for _, g := range p.Grabs() {
			// a cancel hook may have ended it already
			if g.State() == seat.GrabDetached {
				continue
			}
			g.End()
			released++
		}
	}
	if k := s.Keyboard(); k != nil {
		for _, g := range k.Grabs() {
			// a cancel hook may have ended it already
			if g.State() == seat.GrabDetached {
				continue
			}
			g.End()
			released++
		}
	}
	if t := s.Touch(); t != nil {
		for _, g := range t.Grabs() {
			// a cancel hook may have ended it already
			if g.State() == seat.GrabDetached {
				continue
			}
			g.End()
			released++
		}
	}

	logger.Warnf("[EMERGENCY] Released %d grabs on seat %s (reason: %s)", released, s.Name(), reason)
	if er.onRelease != nil {
		er.onRelease(s, reason, released)
	}
	return released
}

func (er *EmergencyRelease) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			logger.Warn("[EMERGENCY] SIGUSR1 received - queueing emergency release")
			er.Request("signal")
		case <-ctx.Done():
			return
		}
	}
}

func (er *EmergencyRelease) monitorFileTrigger(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := os.Stat(er.triggerFile); err == nil {
				logger.Warn("[EMERGENCY] Release file detected - queueing emergency release")
				_ = os.Remove(er.triggerFile)
				er.Request("file")
			}
		case <-ctx.Done():
			return
		}
	}
}
