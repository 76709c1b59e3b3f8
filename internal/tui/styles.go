// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.AdaptiveColor{Light: "25", Dark: "75"}
	warning = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	good    = lipgloss.AdaptiveColor{Light: "28", Dark: "78"}
	bad     = lipgloss.AdaptiveColor{Light: "124", Dark: "203"}
	muted   = lipgloss.AdaptiveColor{Light: "245", Dark: "241"}
)

// Styles holds the viewer's lipgloss styles.
type Styles struct {
	Title   lipgloss.Style
	Running lipgloss.Style
	Success lipgloss.Style
	Failed  lipgloss.Style
	Output  lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles returns the viewer's default styles.
func NewStyles() *Styles {
	status := lipgloss.NewStyle().Padding(0, 1)

	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1),
		Running: status.Foreground(warning),
		Success: status.Foreground(good),
		Failed:  status.Foreground(bad).Bold(true),
		Output:  lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle().Foreground(bad).Italic(true),
		Help:    lipgloss.NewStyle().Foreground(muted).Faint(true),
	}
}
