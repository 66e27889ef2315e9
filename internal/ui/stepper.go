package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

// StepFunc applies the next step and describes it. It returns io.EOF once
// there is nothing left to apply.
type StepFunc func() (label string, err error)

// StepperConfig wires a stepper to a running seat
type StepperConfig struct {
	Title string
	Total int
	Step  StepFunc
	Seat  *seat.Seat
	// Trace is the recorder every client message lands in.
	Trace *wire.Recorder
}

type stepperKeys struct {
	Next  key.Binding
	All   key.Binding
	State key.Binding
	Quit  key.Binding
}

func (k stepperKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.All, k.State, k.Quit}
}

func (k stepperKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultStepperKeys = stepperKeys{
	Next: key.NewBinding(
		key.WithKeys("n", " ", "enter"),
		key.WithHelp("n/space", "next step"),
	),
	All: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "apply all"),
	),
	State: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "toggle seat state"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// StepperModel is an interactive, step-by-step replay of an event script.
// The trace pane shows every message sent so far, newest at the bottom.
type StepperModel struct {
	cfg      StepperConfig
	keys     stepperKeys
	help     help.Model
	viewport viewport.Model

	applied   int
	lastLabel string
	lastCount int // messages produced by the last step
	err       error
	done      bool
	showState bool

	width  int
	height int
}

// NewStepperModel creates a stepper with a default 80x20 trace pane
func NewStepperModel(cfg StepperConfig) *StepperModel {
	if cfg.Trace == nil {
		cfg.Trace = wire.NewRecorder()
	}
	m := &StepperModel{
		cfg:      cfg,
		keys:     defaultStepperKeys,
		help:     help.New(),
		viewport: viewport.New(80, 20),
		width:    80,
		height:   30,
	}
	m.refresh()
	return m
}

// Init implements tea.Model
func (m *StepperModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *StepperModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 3)
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.step()
			return m, nil
		case key.Matches(msg, m.keys.All):
			for !m.done && m.err == nil {
				m.step()
			}
			return m, nil
		case key.Matches(msg, m.keys.State):
			m.showState = !m.showState
			m.viewport.Height = max(m.height-m.chromeHeight(), 3)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *StepperModel) step() {
	if m.done || m.err != nil {
		return
	}
	before := m.cfg.Trace.Len()
	label, err := m.cfg.Step()
	switch {
	case errors.Is(err, io.EOF):
		m.done = true
	case err != nil:
		m.err = err
	default:
		m.applied++
		m.lastLabel = label
		m.lastCount = m.cfg.Trace.Len() - before
		if m.cfg.Total > 0 && m.applied >= m.cfg.Total {
			m.done = true
		}
	}
	m.refresh()
}

func (m *StepperModel) refresh() {
	m.viewport.SetContent(FormatTrace(m.cfg.Trace.Messages()))
	m.viewport.GotoBottom()
}

func (m *StepperModel) chromeHeight() int {
	h := 4 // header, status, separator, help
	if m.showState && m.cfg.Seat != nil {
		h += lipgloss.Height(FormatSeat(m.cfg.Seat))
	}
	return h
}

// View implements tea.Model
func (m *StepperModel) View() string {
	var b strings.Builder

	title := m.cfg.Title
	if title == "" {
		title = "Replay"
	}
	progress := fmt.Sprintf("step %d", m.applied)
	if m.cfg.Total > 0 {
		progress = fmt.Sprintf("step %d/%d", m.applied, m.cfg.Total)
	}
	b.WriteString(HeaderStyle.Render(title) + "  " + SubtleStyle.Render(progress) + "\n")

	switch {
	case m.err != nil:
		b.WriteString(FormatResult(false, m.err.Error()))
	case m.done:
		b.WriteString(FormatResult(true, fmt.Sprintf("finished, %d messages sent", m.cfg.Trace.Len())))
	case m.lastLabel != "":
		b.WriteString(TextStyle.Render(m.lastLabel) + SubtleStyle.Render(fmt.Sprintf("  (+%d messages)", m.lastCount)))
	default:
		b.WriteString(SubtleStyle.Render("press n to apply the first step"))
	}
	b.WriteString("\n")

	b.WriteString(CreateSeparator(m.width, "─") + "\n")
	b.WriteString(m.viewport.View() + "\n")

	if m.showState && m.cfg.Seat != nil {
		b.WriteString(FormatSeat(m.cfg.Seat) + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Applied returns how many steps the stepper applied
func (m *StepperModel) Applied() int { return m.applied }

// Err returns the error that stopped stepping, if any
func (m *StepperModel) Err() error { return m.err }

// Done reports whether every step has been applied
func (m *StepperModel) Done() bool { return m.done }

// RunStepper runs the stepper full screen until the user quits or ctx is
// done. The returned model holds the final stepping state.
func RunStepper(ctx context.Context, cfg StepperConfig, opts ...tea.ProgramOption) (*StepperModel, error) {
	model := NewStepperModel(cfg)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)

	p := tea.NewProgram(model, opts...)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return model, ctx.Err()
		}
		return model, fmt.Errorf("stepper failed: %w", err)
	}
	return model, nil
}
