// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/interp/internal/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

func record(level slog.Level, msg string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC), level, msg, 0)
	r.AddAttrs(attrs...)

	return r
}

func TestPrettyHandler_Handle(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		record  slog.Record
		want    []string
		notWant []string
	}{
		{
			name:   "plain with attrs",
			record: record(slog.LevelInfo, "started", slog.Int("pid", 7)),
			want:   []string{"[03:04:05.006] INFO: started ", `"pid": 7`},
		},
		{
			name:    "no attrs",
			record:  record(slog.LevelWarn, "careful"),
			want:    []string{"WARN: careful \n"},
			notWant: []string{"{}"},
		},
		{
			name:   "empty attrs printed on request",
			opts:   []Option{WithOutputEmptyAttrs()},
			record: record(slog.LevelWarn, "careful"),
			want:   []string{"{}"},
		},
		{
			name:   "colour",
			opts:   []Option{WithColour()},
			record: record(slog.LevelError, "boom"),
			want:   []string{color.Wrap("ERROR:", color.FgRed), color.Wrap("boom", color.FgHiWhite)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			h := NewPrettyHandler(nil, append(tt.opts, WithDestinationWriter(&buf))...)
			require.NoError(t, h.Handle(context.Background(), tt.record))

			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}

			for _, w := range tt.notWant {
				assert.NotContains(t, buf.String(), w)
			}

			if !h.colour {
				assert.NotContains(t, buf.String(), "\033[")
			}
		})
	}
}

func TestPrettyHandler_ReplaceAttr(t *testing.T) {
	var buf bytes.Buffer

	drop := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey || a.Key == "secret" {
			return slog.Attr{}
		}

		return a
	}

	h := NewPrettyHandler(&slog.HandlerOptions{ReplaceAttr: drop}, WithDestinationWriter(&buf))
	require.NoError(t, h.Handle(context.Background(), record(slog.LevelInfo, "msg", slog.String("secret", "x"))))

	assert.True(t, strings.HasPrefix(buf.String(), "INFO: msg"), buf.String())
	assert.NotContains(t, buf.String(), "secret")
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewPrettyHandler(nil, WithDestinationWriter(&buf))).
		With("interpreter", "python").
		WithGroup("proc")

	logger.Info("started", "pid", 9)

	assert.Contains(t, buf.String(), `"interpreter": "python"`)
	assert.Contains(t, buf.String(), `"proc": {`)
	assert.Contains(t, buf.String(), `"pid": 9`)
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelInfo})

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_WriteError(t *testing.T) {
	h := NewPrettyHandler(nil, WithDestinationWriter(failingWriter{}))

	err := h.Handle(context.Background(), record(slog.LevelInfo, "x"))
	require.ErrorIs(t, err, ErrIoWrite)
	require.ErrorIs(t, err, assert.AnError)
}

func TestPrettyHandler_Concurrent(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewPrettyHandler(nil, WithDestinationWriter(&buf)))

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			logger.Info("line", "n", i)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "INFO: line"))
}

func TestLevelColour(t *testing.T) {
	assert.Equal(t, color.FgWhite, levelColour(slog.LevelDebug))
	assert.Equal(t, color.FgCyan, levelColour(slog.LevelInfo))
	assert.Equal(t, color.FgYellow, levelColour(slog.LevelWarn))
	assert.Equal(t, color.FgRed, levelColour(slog.LevelError))
	assert.Equal(t, color.FgHiMagenta, levelColour(slog.LevelError+4))
}
