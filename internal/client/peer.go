package client

import (
	"fmt"
	"slices"

	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

var capabilityKinds = map[seat.Capability]resource.Kind{
	seat.CapPointer:  resource.KindPointer,
	seat.CapKeyboard: resource.KindKeyboard,
	seat.CapTouch:    resource.KindTouch,
}

// Peer is a connected client
type Peer struct {
	id       resource.ClientID
	name     string
	sink     wire.Sink
	nextID   uint32
	seatObj  *resource.Resource
	bindings map[seat.Capability][]*Binding
	surfaces []*resource.Resource
	owned    []*resource.Resource
}

// ID returns the client id
func (p *Peer) ID() resource.ClientID { return p.id }

// Name returns the client's display name
func (p *Peer) Name() string { return p.name }

// HasBinding reports whether the peer holds at least one linked binding for c
func (p *Peer) HasBinding(c seat.Capability) bool {
	return len(p.bindings[c]) > 0
}

// Bindings returns the peer's linked bindings for c, oldest first.
func (p *Peer) Bindings(c seat.Capability) []seat.Binding {
	list := p.bindings[c]
	out := make([]seat.Binding, len(list))
	for i, b := range list {
		out[i] = b
	}
	return out
}

// Unlink removes every binding for c from the peer's bookkeeping. The
// bindings stay alive until the peer releases them.
func (p *Peer) Unlink(c seat.Capability) {
	for _, b := range p.bindings[c] {
		b.linked = false
	}
	delete(p.bindings, c)
}

// SendCapabilities sends wl_seat.capabilities on the peer's seat object
func (p *Peer) SendCapabilities(c seat.Capability) {
	if p.seatObj.Destroyed() {
		return
	}
	p.sink.Send(wire.Message{
		Client:       p.id,
		Object:       p.seatObj.ID(),
		Op:           wire.SeatCapabilities,
		Capabilities: uint32(c),
	})
}

// Bind creates a new pointer, keyboard or touch object for the peer. The
// caller is expected to check the seat has the capability, the way
// wl_seat.get_pointer does.
func (p *Peer) Bind(c seat.Capability) (*Binding, error) {
	kind, ok := capabilityKinds[c]
	if !ok {
		return nil, fmt.Errorf("cannot bind capability %s", c)
	}
	b := &Binding{
		res:    p.newResource(kind),
		cap:    c,
		peer:   p,
		linked: true,
	}
	p.bindings[c] = append(p.bindings[c], b)
	return b, nil
}

// Release unlinks and destroys a binding, as the release request does.
func (p *Peer) Release(b *Binding) error {
	if b.peer != p {
		return fmt.Errorf("binding %d of client %d: %w", b.res.ID(), b.peer.id, ErrUnknownResource)
	}
	b.unlink()
	b.res.Destroy()
	return nil
}

// CreateSurface creates a wl_surface owned by the peer
func (p *Peer) CreateSurface() *resource.Resource {
	s := p.newResource(resource.KindSurface)
	p.surfaces = append(p.surfaces, s)
	s.OnDestroy(func(r *resource.Resource) {
		if i := slices.Index(p.surfaces, r); i >= 0 {
			p.surfaces = slices.Delete(p.surfaces, i, i+1)
		}
	})
	return s
}

// Surface returns the live surface with object id, or nil
func (p *Peer) Surface(id uint32) *resource.Resource {
	for _, s := range p.surfaces {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// Surfaces returns the peer's live surfaces
func (p *Peer) Surfaces() []*resource.Resource {
	return slices.Clone(p.surfaces)
}

func (p *Peer) newResource(kind resource.Kind) *resource.Resource {
	r := resource.New(p.id, p.nextID, kind)
	p.nextID++
	p.owned = append(p.owned, r)
	return r
}

func (p *Peer) destroyAll() {
	for c := range p.bindings {
		p.Unlink(c)
	}
	for _, r := range p.owned {
		r.Destroy()
	}
	p.owned = nil
}

// Binding is one wl_pointer, wl_keyboard or wl_touch object of a peer.
type Binding struct {
	res    *resource.Resource
	cap    seat.Capability
	peer   *Peer
	linked bool
}

// Resource returns the protocol object
func (b *Binding) Resource() *resource.Resource { return b.res }

// Capability returns the device kind the binding was created for
func (b *Binding) Capability() seat.Capability { return b.cap }

// Linked reports whether the binding still receives seat events
func (b *Binding) Linked() bool { return b.linked }

// Send addresses msg to the binding and writes it to the peer's sink.
// Messages to destroyed objects are dropped.
func (b *Binding) Send(msg wire.Message) {
	if b.res.Destroyed() {
		return
	}
	msg.Client = b.peer.id
	msg.Object = b.res.ID()
	b.peer.sink.Send(msg)
}

func (b *Binding) unlink() {
	if !b.linked {
		return
	}
	b.linked = false
	list := b.peer.bindings[b.cap]
	if i := slices.Index(list, b); i >= 0 {
		b.peer.bindings[b.cap] = slices.Delete(list, i, i+1)
	}
}
