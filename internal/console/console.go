// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package console

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/matt-FFFFFF/interp/internal/ctxlog"
	"github.com/peterh/liner"
)

// QuitCommand ends the console session without sending anything.
const QuitCommand = ":quit"

// ErrPromptFailed is returned when the line editor fails.
var ErrPromptFailed = errors.New("could not read input")

// Prompter reads edited lines from the user.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// Session reads input lines and sends them to the interpreter.
type Session struct {
	prompter  Prompter
	send      func(string) error
	interrupt func() error
	history   string
}

// Option configures a Session.
type Option func(*Session)

// WithInterrupt sets what Ctrl+C does, for example forwarding SIGINT.
// Without it Ctrl+C ends the session.
func WithInterrupt(fn func() error) Option {
	return func(s *Session) {
		s.interrupt = fn
	}
}

// WithHistory loads and saves input history in path.
func WithHistory(path string) Option {
	return func(s *Session) {
		s.history = path
	}
}

// WithPrompter replaces the terminal line editor.
func WithPrompter(p Prompter) Option {
	return func(s *Session) {
		s.prompter = p
	}
}

// NewSession creates a session that passes each entered line to send.
func NewSession(send func(string) error, opts ...Option) *Session {
	s := &Session{send: send}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run reads lines until end of input, QuitCommand or a send failure.
// The interpreter prints its own prompt, so the editor prompt is empty.
// A blocked prompt does not observe ctx; Run checks it between lines.
func (s *Session) Run(ctx context.Context) error {
	if s.prompter == nil {
		line := liner.NewLiner()
		line.SetCtrlCAborts(true)
		s.readHistory(ctx, line)

		defer s.writeHistory(ctx, line)

		s.prompter = line
	}

	defer s.prompter.Close() //nolint:errcheck

	for ctx.Err() == nil {
		input, err := s.prompter.Prompt("")

		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted):
			if s.interrupt == nil {
				return nil
			}

			if err := s.interrupt(); err != nil {
				ctxlog.Warn(ctx, "could not interrupt interpreter", "error", err)
			}

			continue
		case errors.Is(err, io.EOF):
			return nil
		default:
			return errors.Join(ErrPromptFailed, err)
		}

		if input == QuitCommand {
			return nil
		}

		if input != "" {
			s.prompter.AppendHistory(input)
		}

		if err := s.send(input); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) readHistory(ctx context.Context, line *liner.State) {
	if s.history == "" {
		return
	}

	f, err := os.Open(s.history)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ctxlog.Debug(ctx, "could not open history", "path", s.history, "error", err)
		}

		return
	}

	defer f.Close() //nolint:errcheck

	if _, err := line.ReadHistory(f); err != nil {
		ctxlog.Debug(ctx, "could not read history", "path", s.history, "error", err)
	}
}

func (s *Session) writeHistory(ctx context.Context, line *liner.State) {
	if s.history == "" {
		return
	}

	f, err := os.Create(s.history)
	if err != nil {
		ctxlog.Debug(ctx, "could not create history", "path", s.history, "error", err)
		return
	}

	defer f.Close() //nolint:errcheck

	if _, err := line.WriteHistory(f); err != nil {
		ctxlog.Debug(ctx, "could not write history", "path", s.history, "error", err)
	}
}
