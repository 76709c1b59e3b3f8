// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/interp/internal/ctxlog"
)

// LineReader yields output lines.
type LineReader interface {
	ReadLineContext(ctx context.Context) (string, error)
}

// Runner runs the viewer and feeds it output.
type Runner struct {
	model   *Model
	program *tea.Program
}

// NewRunner creates a runner. Options are passed to the bubbletea program.
func NewRunner(title string, send func(string) error, opts ...tea.ProgramOption) *Runner {
	model := NewModel(title, send)

	return &Runner{
		model:   model,
		program: tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...),
	}
}

// Exited tells the viewer that the interpreter exited.
func (r *Runner) Exited(status string, success bool) {
	r.program.Send(ExitedMsg{Status: status, Success: success})
}

// Run shows the viewer until the user quits or ctx ends, feeding it lines
// from lines. The reader goroutine is cancelled on return; a read that is
// blocked on the interpreter ends when the interpreter's output ends.
func (r *Runner) Run(ctx context.Context, lines LineReader) error {
	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			line, err := lines.ReadLineContext(pumpCtx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}

				if pumpCtx.Err() == nil {
					r.program.Send(OutputEndMsg{Err: err})
				}

				return
			}

			r.program.Send(OutputLineMsg{Line: line})
		}
	}()

	go func() {
		<-pumpCtx.Done()
		r.program.Quit()
	}()

	if _, err := r.program.Run(); err != nil {
		ctxlog.Error(ctx, "viewer failed", "error", err)
		return err //nolint:wrapcheck
	}

	return nil
}

// Model returns the viewer model.
func (r *Runner) Model() *Model {
	return r.model
}
