package ui

import (
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/client"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

// fakeSteps sends one frame per step and fails at failAt (1-based), if set
func fakeSteps(rec *wire.Recorder, total, failAt int) StepFunc {
	n := 0
	return func() (string, error) {
		if n >= total {
			return "", io.EOF
		}
		if failAt > 0 && n+1 == failAt {
			return "", errors.New("step 2 (key): invalid state")
		}
		n++
		rec.Send(wire.Message{Client: 1, Object: uint32(n), Op: wire.PointerFrame})
		return "pointer_frame", nil
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStepperModel(t *testing.T) {
	t.Run("initial view", func(t *testing.T) {
		rec := wire.NewRecorder()
		m := NewStepperModel(StepperConfig{Title: "drag.yaml", Total: 3, Step: fakeSteps(rec, 3, 0), Trace: rec})

		view := m.View()
		assert.Contains(t, view, "drag.yaml")
		assert.Contains(t, view, "step 0/3")
		assert.Contains(t, view, "no messages")
		assert.Contains(t, view, "next step")
	})

	t.Run("steps one at a time", func(t *testing.T) {
		rec := wire.NewRecorder()
		m := NewStepperModel(StepperConfig{Total: 3, Step: fakeSteps(rec, 3, 0), Trace: rec})

		m.Update(keyMsg("n"))
		assert.Equal(t, 1, m.Applied())
		assert.Contains(t, m.View(), "step 1/3")
		assert.Contains(t, m.View(), "+1 messages")
		assert.Contains(t, m.View(), "wl_pointer.frame@1")

		m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
		assert.Equal(t, 2, m.Applied())
		assert.False(t, m.Done())
	})

	t.Run("apply all", func(t *testing.T) {
		rec := wire.NewRecorder()
		m := NewStepperModel(StepperConfig{Total: 3, Step: fakeSteps(rec, 3, 0), Trace: rec})

		m.Update(keyMsg("a"))
		assert.Equal(t, 3, m.Applied())
		assert.True(t, m.Done())
		assert.Contains(t, m.View(), "finished, 3 messages sent")

		m.Update(keyMsg("n"))
		assert.Equal(t, 3, m.Applied(), "no step after the end")
	})

	t.Run("unknown total ends on EOF", func(t *testing.T) {
		rec := wire.NewRecorder()
		m := NewStepperModel(StepperConfig{Step: fakeSteps(rec, 2, 0), Trace: rec})

		m.Update(keyMsg("a"))
		assert.Equal(t, 2, m.Applied())
		assert.True(t, m.Done())
		assert.Contains(t, m.View(), "step 2")
	})

	t.Run("stops on error", func(t *testing.T) {
		rec := wire.NewRecorder()
		m := NewStepperModel(StepperConfig{Total: 3, Step: fakeSteps(rec, 3, 2), Trace: rec})

		m.Update(keyMsg("a"))
		assert.Equal(t, 1, m.Applied())
		require.Error(t, m.Err())
		assert.Contains(t, m.View(), "invalid state")
		assert.False(t, m.Done())
	})

	t.Run("quit", func(t *testing.T) {
		m := NewStepperModel(StepperConfig{Step: fakeSteps(wire.NewRecorder(), 1, 0)})
		_, cmd := m.Update(keyMsg("q"))
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	})

	t.Run("window size", func(t *testing.T) {
		m := NewStepperModel(StepperConfig{Step: fakeSteps(wire.NewRecorder(), 1, 0)})
		m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
		assert.Equal(t, 120, m.viewport.Width)
		assert.Equal(t, 36, m.viewport.Height)
	})
}

func TestStepperShowsSeatState(t *testing.T) {
	s := seat.New("seat7", client.NewRegistry(), nil)
	rec := wire.NewRecorder()
	m := NewStepperModel(StepperConfig{Seat: s, Step: fakeSteps(rec, 1, 0), Trace: rec})

	assert.NotContains(t, m.View(), "seat seat7")
	m.Update(keyMsg("s"))
	assert.Contains(t, m.View(), "seat seat7")
	m.Update(keyMsg("s"))
	assert.NotContains(t, m.View(), "seat seat7")
}
