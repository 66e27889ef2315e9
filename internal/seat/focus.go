package seat

import (
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
)

// Device is the part of Pointer, Keyboard and Touch carried by the focus
// and unfocus signals.
type Device interface {
	Seat() *Seat
	Capability() Capability
	FocusedPeer() Peer
	FocusedSurface() *resource.Resource
}

// focus is the (peer, surface) pair a device delivers to. The surface is
// owned by a remote peer, so it is always paired with a destroy listener.
type focus struct {
	peer    Peer
	surface *resource.Resource
	destroy *resource.Listener
}

// lookup returns the peer owning surface if it can receive events for c.
func (f *focus) lookup(seat *Seat, surface *resource.Resource, c Capability) Peer {
	if surface == nil || surface.Destroyed() || seat.registry == nil {
		return nil
	}
	peer := seat.registry.FindPeer(surface)
	if peer == nil || !peer.HasBinding(c) {
		logger.Debugf("Surface %d has no %s binding, focus unchanged", surface.ID(), c)
		return nil
	}
	return peer
}

// set replaces the focus without signalling. onDestroy runs synchronously
// from the surface's destructor.
func (f *focus) set(peer Peer, surface *resource.Resource, onDestroy func()) {
	f.reset()
	f.peer = peer
	f.surface = surface
	f.destroy = surface.OnDestroy(func(*resource.Resource) {
		onDestroy()
	})
}

func (f *focus) reset() {
	f.destroy.Remove()
	f.destroy = nil
	f.peer = nil
	f.surface = nil
}

// live reports whether the focused surface can still be addressed
func (f *focus) live() bool {
	return f.surface != nil && !f.surface.Destroyed()
}

// bindings returns the focused peer's bindings for c, nil when unfocused.
func (f *focus) bindings(c Capability) []Binding {
	if f.peer == nil {
		return nil
	}
	return f.peer.Bindings(c)
}

func surfaceID(r *resource.Resource) uint32 {
	if r == nil {
		return 0
	}
	return r.ID()
}
