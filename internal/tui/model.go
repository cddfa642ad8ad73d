// Package tui is the terminal page of bandsample: a status area and two actions.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// InitialStatus is shown before any action runs.
const InitialStatus = "Press c to connect to your band and read its skin temperature."

// Runner performs the page's actions. *sampler.Sampler implements it.
type Runner interface {
	Run(ctx context.Context) error
	RemoveTile(ctx context.Context) error
}

type keyMap struct {
	Connect    key.Binding
	RemoveTile key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.RemoveTile, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Connect: key.NewBinding(
			key.WithKeys("c", "enter"),
			key.WithHelp("c", "connect"),
		),
		RemoveTile: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "remove tile"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// statusMsg carries display text from the sampler.
type statusMsg string

// doneMsg reports that the running action returned.
type doneMsg struct {
	err error
}

// Model is the bubbletea model of the page.
type Model struct {
	ctx     context.Context
	runner  Runner
	updates <-chan string

	status  string
	failed  bool
	busy    bool
	action  string
	cancel  context.CancelFunc
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	styles  Styles
}

// NewModel creates the page. Actions run under ctx; display must be the one the runner reports to.
func NewModel(ctx context.Context, runner Runner, display *Display) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	styles := DefaultStyles()
	s.Style = styles.Spinner
	return &Model{
		ctx:     ctx,
		runner:  runner,
		updates: display.Updates(),
		status:  InitialStatus,
		spinner: s,
		help:    help.New(),
		keys:    defaultKeyMap(),
		styles:  styles,
	}
}

// Status returns the text currently shown.
func (m *Model) Status() string {
	return m.status
}

// Busy reports whether an action is running.
func (m *Model) Busy() bool {
	return m.busy
}

func waitForStatus(updates <-chan string) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-updates)
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return waitForStatus(m.updates)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Connect):
			return m, m.start("Connecting", m.runner.Run)
		case key.Matches(msg, m.keys.RemoveTile):
			return m, m.start("Removing tile", m.runner.RemoveTile)
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case statusMsg:
		m.status = string(msg)
		return m, waitForStatus(m.updates)

	case doneMsg:
		m.busy = false
		m.action = ""
		m.failed = msg.err != nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// start runs fn in the background unless another action is running.
func (m *Model) start(action string, fn func(context.Context) error) tea.Cmd {
	if m.busy {
		return nil
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.busy = true
	m.failed = false
	m.action = action
	m.cancel = cancel
	run := func() tea.Msg {
		return doneMsg{err: fn(ctx)}
	}
	return tea.Batch(m.spinner.Tick, run)
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Band Sensors"))
	b.WriteString("\n")

	if m.failed {
		b.WriteString(m.styles.Error.Render(m.status))
	} else {
		b.WriteString(m.styles.Status.Render(m.status))
	}
	b.WriteString("\n")

	if m.busy {
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render(m.action+"..."))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}
