// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package replaylog

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain is used to run the goleak verification before and after tests.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew_Empty(t *testing.T) {
	l := New(strings.NewReader("data"))

	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Bytes())
	assert.Nil(t, l.Slice(0, 10))
	assert.Equal(t, 0, l.CopyAt(make([]byte, 4), 0))
}

func TestTail_Append(t *testing.T) {
	l := New(strings.NewReader(""))

	tail, err := l.Lock(context.Background())
	require.NoError(t, err)

	tail.Append([]byte("hello"))
	tail.AppendByte(' ')
	tail.Append(nil)
	tail.Append([]byte("world"))
	tail.Unlock()

	assert.Equal(t, 11, l.Len())
	assert.Equal(t, "hello world", string(l.Bytes()))
	assert.Equal(t, byte('w'), l.At(6))
}

func TestLog_Slice(t *testing.T) {
	l := New(strings.NewReader(""))
	tail, err := l.Lock(context.Background())
	require.NoError(t, err)
	tail.Append([]byte("0123456789"))
	tail.Unlock()

	tests := []struct {
		name     string
		from, to int
		want     string
	}{
		{name: "full range", from: 0, to: 10, want: "0123456789"},
		{name: "middle", from: 3, to: 6, want: "345"},
		{name: "clamped to length", from: 8, to: 100, want: "89"},
		{name: "empty range", from: 5, to: 5, want: ""},
		{name: "from beyond length", from: 11, to: 20, want: ""},
		{name: "negative from", from: -1, to: 3, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(l.Slice(tt.from, tt.to)))
		})
	}
}

func TestLog_SliceIsStableAcrossAppends(t *testing.T) {
	l := New(strings.NewReader(""))
	tail, err := l.Lock(context.Background())
	require.NoError(t, err)

	tail.Append([]byte("abc"))
	snap := l.Slice(0, 3)

	for range 10000 {
		tail.AppendByte('x')
	}

	tail.Unlock()

	assert.Equal(t, "abc", string(snap))
	assert.Equal(t, 10003, l.Len())
}

func TestLog_CopyAt(t *testing.T) {
	l := New(strings.NewReader(""))
	tail, err := l.Lock(context.Background())
	require.NoError(t, err)
	tail.Append([]byte("abcdef"))
	tail.Unlock()

	p := make([]byte, 4)
	n := l.CopyAt(p, 3)
	assert.Equal(t, 3, n)
	assert.Equal(t, "def", string(p[:n]))

	n = l.CopyAt(p, 0)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", string(p))
}

func TestLog_LockCancelled(t *testing.T) {
	l := New(strings.NewReader("data"))

	held, err := l.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	tail, err := l.Lock(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, tail)
	assert.Equal(t, 0, l.Len())

	held.Unlock()

	tail, err = l.Lock(context.Background())
	require.NoError(t, err)
	tail.Unlock()
}

func TestLog_TryLock(t *testing.T) {
	l := New(strings.NewReader(""))

	tail, ok := l.TryLock()
	require.True(t, ok)

	_, ok = l.TryLock()
	assert.False(t, ok, "lock should be held")

	tail.Unlock()
	tail.Unlock() // second unlock is a no-op

	other, ok := l.TryLock()
	require.True(t, ok)

	_, ok = l.TryLock()
	assert.False(t, ok, "double unlock must not release someone else's lock")

	other.Unlock()
}

func TestLog_ConcurrentReadersDuringAppend(t *testing.T) {
	l := New(strings.NewReader(""))

	const total = 5000

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := range total {
			tail, err := l.Lock(context.Background())
			if !assert.NoError(t, err) {
				return
			}

			tail.AppendByte(byte('a' + i%26))
			tail.Unlock()
		}
	}()

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			last := 0
			for last < total {
				n := l.Len()
				assert.GreaterOrEqual(t, n, last, "length must never decrease")

				for i, b := range l.Slice(last, n) {
					assert.Equal(t, byte('a'+(last+i)%26), b)
				}

				last = n
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, total, l.Len())
}
