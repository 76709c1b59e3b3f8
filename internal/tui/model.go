// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// maxLines bounds the lines kept for display. The interpreter output
	// itself is kept in full by the replay log.
	maxLines = 10000

	headerHeight = 1
	footerHeight = 3
)

// OutputLineMsg carries one line of interpreter output.
type OutputLineMsg struct {
	Line string
}

// OutputEndMsg reports that the output stream ended. Err is nil at a clean end.
type OutputEndMsg struct {
	Err error
}

// ExitedMsg reports that the interpreter exited.
type ExitedMsg struct {
	Status  string
	Success bool
}

// Model is the viewer state.
type Model struct {
	title    string
	send     func(string) error
	viewport viewport.Model
	input    textinput.Model
	styles   *Styles

	lines     []string
	ready     bool
	follow    bool
	outputErr error
	exited    *ExitedMsg
	sendErr   error
	quitting  bool
}

// NewModel creates a viewer. send is called with each submitted input line and
// may be nil for a read-only view.
func NewModel(title string, send func(string) error) *Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "statement"
	input.Focus()

	return &Model{
		title:    title,
		send:     send,
		viewport: viewport.New(0, 0),
		input:    input,
		styles:   NewStyles(),
		follow:   true,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			m.follow = m.viewport.AtBottom()

			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.ready = true
		m.refresh()

	case OutputLineMsg:
		m.lines = append(m.lines, msg.Line)
		if len(m.lines) > maxLines {
			m.lines = m.lines[len(m.lines)-maxLines:]
		}

		m.refresh()

		return m, nil

	case OutputEndMsg:
		m.outputErr = msg.Err
		return m, nil

	case ExitedMsg:
		m.exited = &msg
		m.input.Blur()

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if !m.ready {
		return "Starting...\n"
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString(" ")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.exited == nil {
		b.WriteString(m.input.View())
	}

	b.WriteString("\n")

	if m.sendErr != nil {
		b.WriteString(m.styles.Error.Render(m.sendErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("enter: send • ↑/↓ pgup/pgdn: scroll • esc/ctrl+c: quit"))

	return b.String()
}

// Lines returns the lines currently held for display.
func (m *Model) Lines() []string {
	return m.lines
}

func (m *Model) statusLine() string {
	switch {
	case m.exited != nil && m.exited.Success:
		return m.styles.Success.Render(m.exited.Status)
	case m.exited != nil:
		return m.styles.Failed.Render(m.exited.Status)
	case m.outputErr != nil && !errors.Is(m.outputErr, io.EOF):
		return m.styles.Error.Render(fmt.Sprintf("output error: %v", m.outputErr))
	default:
		return m.styles.Running.Render("running")
	}
}

func (m *Model) submit() {
	line := m.input.Value()
	m.input.SetValue("")

	if m.send == nil || m.exited != nil {
		return
	}

	m.sendErr = m.send(line)
	m.follow = true
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.styles.Output.Render(strings.Join(m.lines, "\n")))

	if m.follow {
		m.viewport.GotoBottom()
	}
}
