// Package resource models protocol objects owned by a remote peer.
//
// A Resource can be destroyed by its peer between any two events. Code that
// keeps a reference to one must register a destroy observer and drop the
// reference when it fires.
package resource

// ClientID identifies a connected peer.
type ClientID uint32

// Kind names the protocol interface a resource implements.
type Kind string

const (
	KindSurface  Kind = "wl_surface"
	KindPointer  Kind = "wl_pointer"
	KindKeyboard Kind = "wl_keyboard"
	KindTouch    Kind = "wl_touch"
)

// Resource is a remote-owned protocol object
type Resource struct {
	id        uint32
	client    ClientID
	kind      Kind
	listeners []*Listener
	destroyed bool
}

// Listener is the token returned by OnDestroy.
type Listener struct {
	res    *Resource
	notify func(*Resource)
	fired  bool
}

// New creates a live resource for the given peer.
func New(client ClientID, id uint32, kind Kind) *Resource {
	return &Resource{
		id:     id,
		client: client,
		kind:   kind,
	}
}

// ID returns the protocol object id
func (r *Resource) ID() uint32 {
	return r.id
}

// Client returns the owning peer
func (r *Resource) Client() ClientID {
	return r.client
}

// Kind returns the protocol interface name
func (r *Resource) Kind() Kind {
	return r.kind
}

// Destroyed reports whether Destroy has run.
func (r *Resource) Destroyed() bool {
	return r.destroyed
}

// OnDestroy registers fn to run when the resource is destroyed. Registering
// on an already destroyed resource returns a listener that never fires.
func (r *Resource) OnDestroy(fn func(*Resource)) *Listener {
	l := &Listener{res: r, notify: fn}
	if r.destroyed {
		l.fired = true
		return l
	}
	r.listeners = append(r.listeners, l)
	return l
}

// Destroy marks the resource gone and runs every registered observer once,
// in registration order, before returning. Observers may remove themselves
// or other observers while running.
func (r *Resource) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true

	for len(r.listeners) > 0 {
		l := r.listeners[0]
		r.listeners = r.listeners[1:]
		if l.fired {
			continue
		}
		l.fired = true
		l.notify(r)
	}
	r.listeners = nil
}

// Remove unregisters the listener. Safe to call more than once, and after
// the listener has fired.
func (l *Listener) Remove() {
	if l == nil || l.fired {
		return
	}
	l.fired = true

	r := l.res
	for i, other := range r.listeners {
		if other == l {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			break
		}
	}
}

// Resource returns the observed resource
func (l *Listener) Resource() *Resource {
	return l.res
}
