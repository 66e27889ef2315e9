package seat_test

import (
	"testing"

	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	btnLeft  = 0x110
	btnRight = 0x111
)

func TestPointerEnterLeave(t *testing.T) {
	env := newTestEnv(t)
	p := env.seat.EnablePointer()
	first, a := env.connect(t, 1, seat.CapPointer)
	second, b := env.connect(t, 2, seat.CapPointer, seat.CapPointer)

	p.NotifyEnter(a, 1.5, 2.5)

	msgs := env.rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, wire.PointerEnter, msgs[0].Op)
	assert.Equal(t, first.ID(), msgs[0].Client)
	assert.Equal(t, a.ID(), msgs[0].Surface)
	assert.Equal(t, wire.FixedFromFloat(1.5), msgs[0].X)
	assert.Equal(t, wire.PointerFrame, msgs[1].Op)

	t.Run("moving to another surface leaves the old one first", func(t *testing.T) {
		env.rec.Reset()
		p.NotifyEnter(b, 3, 4)

		assert.Equal(t, []wire.Opcode{
			wire.PointerLeave, wire.PointerFrame,
			wire.PointerEnter, wire.PointerFrame,
			wire.PointerEnter, wire.PointerFrame,
		}, env.rec.Ops())
		msgs := env.rec.Messages()
		assert.Equal(t, first.ID(), msgs[0].Client)
		assert.Equal(t, second.ID(), msgs[2].Client)
		assert.Equal(t, msgs[2].Serial, msgs[4].Serial)
		assert.Greater(t, msgs[2].Serial, msgs[0].Serial)
	})

	t.Run("re-entering the focused surface sends nothing", func(t *testing.T) {
		env.rec.Reset()
		p.NotifyEnter(b, 5, 6)

		assert.Zero(t, env.rec.Len())
		x, y := p.Position()
		assert.Equal(t, 5.0, x)
		assert.Equal(t, 6.0, y)
	})

	t.Run("leaving to nothing", func(t *testing.T) {
		env.rec.Reset()
		p.NotifyEnter(nil, 0, 0)

		assert.Equal(t, []wire.Opcode{
			wire.PointerLeave, wire.PointerFrame,
			wire.PointerLeave, wire.PointerFrame,
		}, env.rec.Ops())
		assert.Nil(t, p.FocusedSurface())
	})
}

func TestPointerDefaultDelivery(t *testing.T) {
	env := newTestEnv(t)
	p := env.seat.EnablePointer()
	_, surface := env.connect(t, 1, seat.CapPointer, seat.CapPointer)
	p.NotifyEnter(surface, 0, 0)
	env.rec.Reset()

	t.Run("motion is not framed", func(t *testing.T) {
		p.NotifyMotion(10, 4.25, 8)

		assert.Equal(t, []wire.Opcode{wire.PointerMotion, wire.PointerMotion}, env.rec.Ops())
		assert.Equal(t, wire.FixedFromFloat(4.25), env.rec.Messages()[0].X)
		assert.Equal(t, uint32(10), env.rec.Messages()[1].Time)
		env.rec.Reset()
	})

	t.Run("button shares one serial across bindings", func(t *testing.T) {
		p.NotifyButton(11, btnLeft, seat.ButtonPressed)

		assert.Equal(t, []wire.Opcode{
			wire.PointerButton, wire.PointerFrame,
			wire.PointerButton, wire.PointerFrame,
		}, env.rec.Ops())
		msgs := env.rec.Messages()
		assert.Equal(t, msgs[0].Serial, msgs[2].Serial)
		assert.Equal(t, uint32(btnLeft), msgs[0].Button)
		assert.Equal(t, uint32(seat.ButtonPressed), msgs[0].State)
		assert.Equal(t, msgs[0].Serial, env.seat.LastButtonSerial())
		assert.Equal(t, 1, p.ButtonCount())
		env.rec.Reset()
	})

	t.Run("axis then explicit frame", func(t *testing.T) {
		p.NotifyAxis(12, seat.AxisEvent{Orientation: seat.AxisVertical, Value: 15, Discrete: 1, Source: seat.AxisSourceWheel})
		p.NotifyFrame()

		assert.Equal(t, []wire.Opcode{
			wire.PointerAxis, wire.PointerAxis,
			wire.PointerFrame, wire.PointerFrame,
		}, env.rec.Ops())
		assert.Equal(t, int32(1), env.rec.Messages()[0].Discrete)
		env.rec.Reset()
	})
}

func TestPointerButtonCount(t *testing.T) {
	env := newTestEnv(t)
	p := env.seat.EnablePointer()

	p.NotifyButton(1, btnLeft, seat.ButtonPressed)
	p.NotifyButton(2, btnLeft, seat.ButtonPressed)
	assert.Equal(t, 1, p.ButtonCount(), "repeated press is counted once")

	p.NotifyButton(3, btnRight, seat.ButtonReleased)
	assert.Equal(t, 1, p.ButtonCount(), "release of a button never pressed is ignored")

	p.NotifyButton(4, btnLeft, seat.ButtonReleased)
	assert.Zero(t, p.ButtonCount())
}

func TestPointerGrabEndsWhenAllButtonsReleased(t *testing.T) {
	env := newTestEnv(t)
	p := env.seat.EnablePointer()
	log := &grabLog{}
	g := seat.NewPointerGrab(&testPointerGrab{name: "drag", log: log, endOnRelease: true})

	p.NotifyButton(1, btnLeft, seat.ButtonPressed)
	p.StartGrab(g, 10)
	p.NotifyButton(2, btnRight, seat.ButtonPressed)

	p.NotifyButton(3, btnLeft, seat.ButtonReleased)
	assert.Same(t, g, p.ActiveGrab(), "chord still held")

	p.NotifyButton(4, btnRight, seat.ButtonReleased)
	assert.Same(t, p.DefaultGrab(), p.ActiveGrab())
	assert.Equal(t, seat.GrabDetached, g.State())
	assert.Equal(t, []string{"drag:button", "drag:button", "drag:button", "drag:cancel"}, log.entries)
}
