package seat

import (
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/wire"
)

// Binding is a protocol object a peer created for one capability of the
// seat (a wl_pointer, wl_keyboard or wl_touch). Send stamps the binding's
// own object id and client onto the message before it goes out.
type Binding interface {
	Resource() *resource.Resource
	Send(msg wire.Message)
}

// Peer is a client registry entry: a connected client and the bindings it
// holds per capability. A peer may hold several bindings for the same
// capability and every one of them receives the focused event stream.
type Peer interface {
	ID() resource.ClientID
	HasBinding(c Capability) bool
	Bindings(c Capability) []Binding
	// Unlink drops the peer's bindings for c from its bookkeeping without
	// destroying them; the peer destroys them when it releases them.
	Unlink(c Capability)
	// SendCapabilities announces the seat capabilities to the peer.
	SendCapabilities(c Capability)
}

// Registry maps surfaces to their owning peers.
type Registry interface {
	// FindPeer returns the peer owning surface, or nil.
	FindPeer(surface *resource.Resource) Peer
	Peers() []Peer
}
