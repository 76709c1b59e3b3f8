// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package teereader

import (
	"context"
	"errors"
	"io"

	"github.com/matt-FFFFFF/interp/internal/replaylog"
)

var (
	// ErrInterrupted is returned when a read was cancelled while waiting for the log.
	ErrInterrupted = replaylog.ErrInterrupted
	// ErrSourceRead is returned when the underlying stream failed.
	ErrSourceRead = replaylog.ErrSourceRead
)

var (
	_ io.Reader     = (*TeeReader)(nil)
	_ io.ByteReader = (*TeeReader)(nil)
)

// TeeReader reads the shared log from its own cursor.
// It is not safe for concurrent use.
type TeeReader struct {
	log       *replaylog.Log
	cursor    int
	pendingCR bool // last line ended in a bare '\r' taken from the log
}

// New creates a reader positioned at the start of the log.
func New(log *replaylog.Log) *TeeReader {
	return &TeeReader{log: log}
}

// Offset returns the position of the next byte this reader will return.
func (t *TeeReader) Offset() int {
	return t.cursor
}

// ReadByte implements io.ByteReader.
func (t *TeeReader) ReadByte() (byte, error) {
	return t.ReadByteContext(context.Background())
}

// ReadByteContext returns the next byte. Replayed bytes are returned without
// locking. At the tail one byte is pulled from the source.
func (t *TeeReader) ReadByteContext(ctx context.Context) (byte, error) {
	if t.cursor < t.log.Len() {
		return t.next(), nil
	}

	tail, err := t.log.Lock(ctx)
	if err != nil {
		return 0, err
	}
	defer tail.Unlock()

	// Another reader may have appended while we waited.
	if t.cursor < t.log.Len() {
		return t.next(), nil
	}

	b, err := tail.Source().ReadByte()
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	tail.AppendByte(b)
	t.cursor++

	return b, nil
}

// Read implements io.Reader.
func (t *TeeReader) Read(p []byte) (int, error) {
	return t.ReadContext(context.Background(), p)
}

// ReadContext reads up to len(p) bytes.
//
// Replayed bytes are served first. If that leaves p short, bytes the source
// has already buffered are added when the lock is free, but a read that has
// already produced data never waits on the source. A reader at the tail waits
// for one read of the source. io.EOF is only returned when nothing was read.
func (t *TeeReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := t.replay(p)
	if n == len(p) {
		return n, nil
	}

	if n > 0 {
		tail, ok := t.log.TryLock()
		if !ok {
			return n, nil
		}
		defer tail.Unlock()

		n += t.replay(p[n:])
		if n < len(p) {
			m := tail.Source().ReadBuffered(p[n:])
			tail.Append(p[n : n+m])
			t.cursor += m
			n += m
		}

		return n, nil
	}

	tail, err := t.log.Lock(ctx)
	if err != nil {
		return 0, err
	}
	defer tail.Unlock()

	if n = t.replay(p); n > 0 {
		return n, nil
	}

	m, err := tail.Source().Read(p)
	tail.Append(p[:m])
	t.cursor += m

	if err != nil {
		if m > 0 && errors.Is(err, io.EOF) {
			return m, nil
		}

		return m, err //nolint:wrapcheck
	}

	return m, nil
}

// ReadLine implements line reading with a background context.
func (t *TeeReader) ReadLine() (string, error) {
	return t.ReadLineContext(context.Background())
}

// ReadLineContext returns the next line without its terminator.
// "\n", "\r" and "\r\n" each end a line.
//
// Lines pulled from the source are stored in the log with a single '\n', so
// readers that replay them later see the same lines. An empty line that
// directly follows a bare '\r' already in the log is stored as "\n\n". A final line without a
// terminator is returned as is; io.EOF follows on the next call.
//
// If the read fails or is cancelled the reader is rewound to where it started,
// so the call can be retried.
func (t *TeeReader) ReadLineContext(ctx context.Context) (string, error) {
	start, startCR := t.cursor, t.pendingCR

	var acc []byte
	if done := t.scanLine(&acc); done {
		return string(acc), nil
	}

	tail, err := t.log.Lock(ctx)
	if err != nil {
		t.cursor, t.pendingCR = start, startCR
		return "", err
	}
	defer tail.Unlock()

	if done := t.scanLine(&acc); done {
		return string(acc), nil
	}

	src := tail.Source()

	for {
		text, term, err := src.ReadLine()
		if err != nil && !errors.Is(err, io.EOF) {
			// Keep what was consumed so a retry replays it.
			tail.Append(text)
			t.cursor, t.pendingCR = start, startCR

			return "", err //nolint:wrapcheck
		}

		switch {
		case t.pendingCR && term == '\r' && len(text) == 0:
			// A lone '\n' after the log's '\r' would replay as part of a
			// "\r\n"; the second one is this empty line.
			tail.Append([]byte("\n\n"))
			t.cursor += 2
		case term != 0:
			tail.Append(append(text, '\n'))
			t.cursor += len(text) + 1
		case len(text) > 0:
			tail.Append(text)
			t.cursor += len(text)
		}

		if t.pendingCR {
			t.pendingCR = false

			// The "\n" of a "\r\n" whose '\r' came from the log.
			if term == '\n' && len(text) == 0 {
				continue
			}
		}

		acc = append(acc, text...)

		if term != 0 || len(acc) > 0 {
			return string(acc), nil
		}

		return "", io.EOF
	}
}

// scanLine consumes committed bytes into acc until a terminator.
// It reports whether a complete line was found.
func (t *TeeReader) scanLine(acc *[]byte) bool {
	for _, c := range t.log.Slice(t.cursor, t.log.Len()) {
		t.cursor++

		if t.pendingCR {
			t.pendingCR = false

			if c == '\n' {
				continue
			}
		}

		switch c {
		case '\n':
			return true
		case '\r':
			t.pendingCR = true
			return true
		}

		*acc = append(*acc, c)
	}

	return false
}

func (t *TeeReader) next() byte {
	b := t.log.At(t.cursor)
	t.cursor++

	return b
}

func (t *TeeReader) replay(p []byte) int {
	n := t.log.CopyAt(p, t.cursor)
	t.cursor += n

	return n
}
