// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package replaylog

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const (
	initialCapacity = 8192 // matches the source buffer size
)

var (
	// ErrInterrupted is returned when waiting for the append lock was cancelled.
	ErrInterrupted = errors.New("interrupted while waiting for the replay log")
)

// Log is the shared replay log. Committed bytes are immutable and can be read
// concurrently without the lock. Appends require a Tail obtained from Lock.
type Log struct {
	data atomic.Pointer[[]byte]
	sem  *semaphore.Weighted
	src  *Source
}

// New creates an empty log over the given single-consume stream.
func New(r io.Reader) *Log {
	l := &Log{
		sem: semaphore.NewWeighted(1),
		src: NewSource(r),
	}

	empty := make([]byte, 0, initialCapacity)
	l.data.Store(&empty)

	return l
}

// Len returns the number of committed bytes. It never decreases.
func (l *Log) Len() int {
	return len(*l.data.Load())
}

// At returns the committed byte at index i.
// It panics if i is outside [0, Len()).
func (l *Log) At(i int) byte {
	return (*l.data.Load())[i]
}

// Slice returns the committed bytes in [from, to), clamped to the current length.
// The returned slice aliases the log and must not be modified.
func (l *Log) Slice(from, to int) []byte {
	b := *l.data.Load()
	to = min(to, len(b))

	if from < 0 || from >= to {
		return nil
	}

	return b[from:to:to]
}

// CopyAt copies committed bytes starting at offset into p and returns the number copied.
func (l *Log) CopyAt(p []byte, offset int) int {
	b := *l.data.Load()
	if offset < 0 || offset >= len(b) {
		return 0
	}

	return copy(p, b[offset:])
}

// Bytes returns a copy of everything committed so far.
func (l *Log) Bytes() []byte {
	b := *l.data.Load()
	out := make([]byte, len(b))
	copy(out, b)

	return out
}

// Consumed returns the number of bytes physically read from the underlying stream.
func (l *Log) Consumed() int64 {
	return l.src.Consumed()
}

// Lock acquires the append lock. It blocks until the lock is free or ctx is done.
// On cancellation the log is left untouched and the error wraps both
// ErrInterrupted and the context error.
func (l *Log) Lock(ctx context.Context) (*Tail, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Join(ErrInterrupted, err)
	}

	return &Tail{log: l}, nil
}

// TryLock acquires the append lock only if it is free.
func (l *Log) TryLock() (*Tail, bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}

	return &Tail{log: l}, true
}

// Tail is a held append lock. It is the only way to reach the Source and to
// append to the log. A Tail must be released with Unlock.
type Tail struct {
	log  *Log
	once sync.Once
}

// Source returns the underlying stream.
func (t *Tail) Source() *Source {
	return t.log.src
}

// Append commits p to the log. Bytes below the previous length are never touched,
// so concurrent lock-free readers of older snapshots stay valid.
func (t *Tail) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	cur := *t.log.data.Load()
	next := append(cur, p...)
	t.log.data.Store(&next)
}

// AppendByte commits a single byte to the log.
func (t *Tail) AppendByte(b byte) {
	cur := *t.log.data.Load()
	next := append(cur, b)
	t.log.data.Store(&next)
}

// Unlock releases the append lock. Calling it more than once is a no-op.
func (t *Tail) Unlock() {
	t.once.Do(func() {
		t.log.sem.Release(1)
	})
}
