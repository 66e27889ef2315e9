// Package client keeps track of connected peers and the protocol objects
// they bind, and implements the seat's client registry on top of them.
package client

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

var (
	ErrPeerExists      = errors.New("peer already connected")
	ErrUnknownPeer     = errors.New("unknown peer")
	ErrUnknownResource = errors.New("unknown resource")
)

// Registry is the set of connected peers
type Registry struct {
	peers []*Peer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Connect adds a peer whose events are written to sink.
func (r *Registry) Connect(id resource.ClientID, name string, sink wire.Sink) (*Peer, error) {
	if r.Peer(id) != nil {
		return nil, fmt.Errorf("client %d: %w", id, ErrPeerExists)
	}
	p := &Peer{
		id:       id,
		name:     name,
		sink:     sink,
		nextID:   2,
		bindings: make(map[seat.Capability][]*Binding),
	}
	p.seatObj = p.newResource("wl_seat")
	r.peers = append(r.peers, p)
	logger.Debugf("Client %d (%s) connected", id, name)
	return p, nil
}

// Disconnect destroys every resource of the peer and forgets it. Surface
// destruction runs the seat's destroy observers synchronously.
func (r *Registry) Disconnect(id resource.ClientID) error {
	i := slices.IndexFunc(r.peers, func(p *Peer) bool { return p.id == id })
	if i < 0 {
		return fmt.Errorf("client %d: %w", id, ErrUnknownPeer)
	}
	p := r.peers[i]
	r.peers = slices.Delete(r.peers, i, i+1)
	p.destroyAll()
	logger.Debugf("Client %d (%s) disconnected", id, p.name)
	return nil
}

// Peer returns the peer with the given id, or nil
func (r *Registry) Peer(id resource.ClientID) *Peer {
	for _, p := range r.peers {
		if p.id == id {
			return p
		}
	}
	return nil
}

// FindPeer returns the peer owning surface, or nil.
func (r *Registry) FindPeer(surface *resource.Resource) seat.Peer {
	if surface == nil {
		return nil
	}
	if p := r.Peer(surface.Client()); p != nil {
		return p
	}
	return nil
}

// Peers returns every connected peer in connection order
func (r *Registry) Peers() []seat.Peer {
	out := make([]seat.Peer, len(r.peers))
	for i, p := range r.peers {
		out[i] = p
	}
	return out
}

// Len returns the number of connected peers
func (r *Registry) Len() int {
	return len(r.peers)
}
