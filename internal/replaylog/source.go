// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package replaylog

import (
	"bufio"
	"errors"
	"io"
	"sync/atomic"
)

const (
	sourceBufferSize = 8192
)

var (
	// ErrSourceRead is returned when the underlying stream fails with an error other than io.EOF.
	ErrSourceRead = errors.New("failed to read from source")
)

// Source is the single-consume stream behind a Log.
// It is not safe for concurrent use; callers reach it through a held Tail.
//
// Source keeps the line-ending state of its own line reads: when ReadLine stops
// at a bare '\r', a '\n' that immediately follows is dropped by the next read of
// any kind, so "\r\n" counts as one terminator.
type Source struct {
	r       *bufio.Reader
	counter *countingReader
	skipLF  bool
	eof     bool
}

// NewSource wraps r in a buffered source.
func NewSource(r io.Reader) *Source {
	c := &countingReader{r: r}

	return &Source{
		r:       bufio.NewReaderSize(c, sourceBufferSize),
		counter: c,
	}
}

// Consumed returns the number of bytes read from the underlying reader.
// It is safe to call without holding the lock.
func (s *Source) Consumed() int64 {
	return s.counter.n.Load()
}

// Buffered returns the number of bytes that can be read without touching the underlying reader.
func (s *Source) Buffered() int {
	return s.r.Buffered()
}

// ReadByte reads one byte. It returns io.EOF once the stream has ended, on every call.
func (s *Source) ReadByte() (byte, error) {
	for {
		if s.eof {
			return 0, io.EOF
		}

		b, err := s.r.ReadByte()
		if err != nil {
			return 0, s.fail(err)
		}

		if s.skipLF {
			s.skipLF = false

			if b == '\n' {
				continue
			}
		}

		return b, nil
	}
}

// Read performs at most one read of the underlying reader.
func (s *Source) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if s.eof {
		return 0, io.EOF
	}

	if s.skipLF {
		b, err := s.r.Peek(1)
		if err != nil {
			return 0, s.fail(err)
		}

		s.skipLF = false

		if b[0] == '\n' {
			_, _ = s.r.Discard(1)

			if s.r.Buffered() == 0 {
				// nothing left without another physical read
				return s.Read(p)
			}
		}
	}

	n, err := s.r.Read(p)
	if err != nil {
		return n, s.fail(err)
	}

	return n, nil
}

// ReadBuffered reads only bytes that are already buffered. It never blocks and
// never touches the underlying reader.
func (s *Source) ReadBuffered(p []byte) int {
	if s.eof || s.r.Buffered() == 0 {
		return 0
	}

	if s.skipLF {
		b, _ := s.r.Peek(1)
		s.skipLF = false

		if b[0] == '\n' {
			_, _ = s.r.Discard(1)
		}
	}

	n := min(len(p), s.r.Buffered())
	if n == 0 {
		return 0
	}

	n, _ = s.r.Read(p[:n])

	return n
}

// ReadLine reads up to the next line terminator: '\n', '\r' or "\r\n".
// The terminator is not part of line; term reports which byte ended the line,
// or zero if the stream ended first. At the end of the stream err is io.EOF and
// line holds whatever was read before it.
func (s *Source) ReadLine() (line []byte, term byte, err error) {
	for {
		b, err := s.ReadByte()
		if err != nil {
			return line, 0, err
		}

		switch b {
		case '\n':
			return line, b, nil
		case '\r':
			s.skipLF = true
			return line, b, nil
		}

		line = append(line, b)
	}
}

func (s *Source) fail(err error) error {
	if errors.Is(err, io.EOF) {
		s.eof = true
		return io.EOF
	}

	return errors.Join(ErrSourceRead, err)
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))

	return n, err //nolint:wrapcheck
}
