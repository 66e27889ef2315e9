package client

import (
	"testing"

	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("connect rejects duplicate ids", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Connect(1, "foot", wire.NewRecorder())
		require.NoError(t, err)

		_, err = r.Connect(1, "foot", wire.NewRecorder())
		assert.ErrorIs(t, err, ErrPeerExists)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("find peer by surface owner", func(t *testing.T) {
		r := NewRegistry()
		p, err := r.Connect(7, "foot", wire.NewRecorder())
		require.NoError(t, err)
		surface := p.CreateSurface()

		found := r.FindPeer(surface)
		require.NotNil(t, found)
		assert.Equal(t, p.ID(), found.ID())
		assert.Nil(t, r.FindPeer(nil))
	})

	t.Run("disconnect destroys surfaces", func(t *testing.T) {
		r := NewRegistry()
		p, err := r.Connect(1, "foot", wire.NewRecorder())
		require.NoError(t, err)
		surface := p.CreateSurface()

		require.NoError(t, r.Disconnect(1))
		assert.True(t, surface.Destroyed())
		assert.Nil(t, r.Peer(1))
		assert.ErrorIs(t, r.Disconnect(1), ErrUnknownPeer)
	})
}

func TestPeerBindings(t *testing.T) {
	rec := wire.NewRecorder()
	r := NewRegistry()
	p, err := r.Connect(3, "app", rec)
	require.NoError(t, err)

	assert.False(t, p.HasBinding(seat.CapTouch))

	first, err := p.Bind(seat.CapTouch)
	require.NoError(t, err)
	second, err := p.Bind(seat.CapTouch)
	require.NoError(t, err)

	assert.True(t, p.HasBinding(seat.CapTouch))
	assert.Len(t, p.Bindings(seat.CapTouch), 2)
	assert.NotEqual(t, first.Resource().ID(), second.Resource().ID())

	t.Run("send stamps object and client", func(t *testing.T) {
		rec.Reset()
		first.Send(wire.Message{Op: wire.TouchFrame})

		msgs := rec.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, first.Resource().ID(), msgs[0].Object)
		assert.Equal(t, p.ID(), msgs[0].Client)
	})

	t.Run("unlink keeps bindings alive", func(t *testing.T) {
		p.Unlink(seat.CapTouch)

		assert.False(t, p.HasBinding(seat.CapTouch))
		assert.False(t, first.Linked())
		assert.False(t, first.Resource().Destroyed())
	})

	t.Run("release destroys the binding", func(t *testing.T) {
		require.NoError(t, p.Release(second))
		assert.True(t, second.Resource().Destroyed())

		rec.Reset()
		second.Send(wire.Message{Op: wire.TouchFrame})
		assert.Zero(t, rec.Len())
	})

	t.Run("release of a foreign binding fails", func(t *testing.T) {
		other, err := r.Connect(4, "other", wire.NewRecorder())
		require.NoError(t, err)
		assert.ErrorIs(t, other.Release(first), ErrUnknownResource)
	})

	t.Run("unsupported capability", func(t *testing.T) {
		_, err := p.Bind(seat.CapAll)
		assert.Error(t, err)
	})
}

func TestPeerCapabilities(t *testing.T) {
	rec := wire.NewRecorder()
	r := NewRegistry()
	p, err := r.Connect(1, "app", rec)
	require.NoError(t, err)

	p.SendCapabilities(seat.CapPointer | seat.CapTouch)

	msgs := rec.Filter(wire.SeatCapabilities)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint32(5), msgs[0].Capabilities)
}

func TestPeerSurfaces(t *testing.T) {
	r := NewRegistry()
	p, err := r.Connect(1, "app", wire.NewRecorder())
	require.NoError(t, err)

	s := p.CreateSurface()
	assert.Same(t, s, p.Surface(s.ID()))

	s.Destroy()
	assert.Nil(t, p.Surface(s.ID()))
	assert.Empty(t, p.Surfaces())
}
