// Package tui provides a thin bubbletea progress view for long-running
// agent sessions (ask/serve), not a desktop UI (that's a non-goal).
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	frames     = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

type tickMsg time.Time

type resultMsg struct {
	value any
	err   error
}

type model struct {
	label string
	frame int
	value any
	err   error
	done  bool
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(frames)
		return m, tick()
	case resultMsg:
		m.done = true
		m.value = msg.value
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	if m.done {
		if m.err != nil {
			return errStyle.Render(fmt.Sprintf("✗ %s: %v\n", m.label, m.err))
		}
		return doneStyle.Render(fmt.Sprintf("✓ %s\n", m.label))
	}
	return fmt.Sprintf("%s %s\n", frames[m.frame], labelStyle.Render(m.label))
}

// RunWithSpinner runs work in the background and drives a spinner on the
// terminal until it completes, then prints a final done/err line. Used by
// ask to give feedback during an agent's multi-turn tool-calling loop.
func RunWithSpinner(label string, work func() (any, error)) (any, error) {
	p := tea.NewProgram(model{label: label})
	go func() {
		v, err := work()
		p.Send(resultMsg{value: v, err: err})
	}()
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(model)
	return m.value, m.err
}
