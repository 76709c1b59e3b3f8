// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package process

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/matt-FFFFFF/interp/internal/descriptor"
	"github.com/matt-FFFFFF/interp/internal/teereader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 10 * time.Second

func shell(script string) descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:   "sh",
		Binary: "/bin/sh",
		Args:   []string{"-c", script},
	}
}

func readAllLines(t *testing.T, r *teereader.TeeReader) []string {
	t.Helper()

	var lines []string

	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines
		}

		require.NoError(t, err)

		lines = append(lines, line)
	}
}

func startInterpreter(t *testing.T, i *Interpreter) chan ExitStatus {
	t.Helper()

	exited := make(chan ExitStatus, 1)

	require.NoError(t, i.Start(context.Background(), func(s ExitStatus) { exited <- s }))

	t.Cleanup(func() {
		_ = i.Kill(context.Background())
		_ = i.Close()
	})

	return exited
}

func waitExit(t *testing.T, exited chan ExitStatus) ExitStatus {
	t.Helper()

	select {
	case s := <-exited:
		return s
	case <-time.After(testTimeout):
		t.Fatal("interpreter did not exit")
	}

	return ExitStatus{}
}

func TestStart_CapturesOutput(t *testing.T) {
	i := New(shell("echo hello; echo world >&2"), nil)
	exited := startInterpreter(t, i)

	assert.Equal(t, []string{"hello", "world"}, readAllLines(t, i.OutputReader()))

	status := waitExit(t, exited)
	assert.True(t, status.Success(), status.String())
	assert.Positive(t, status.Duration)

	// A reader created after the process ended still sees everything.
	assert.Equal(t, []string{"hello", "world"}, readAllLines(t, i.OutputReader()))
}

func TestStart_InteractiveCommandAndProxyEnv(t *testing.T) {
	proxy := &fakeProxy{host: "127.0.0.1", port: 8123, secret: "s3cret"}
	desc := descriptor.Descriptor{
		Binary:             "/bin/sh",
		Args:               []string{"-c"},
		InteractiveCommand: `echo "$AP_HOST:$AP_PORT:$AP_HANDSHAKE:$GREETING"`,
		Env:                map[string]string{"GREETING": "hi"},
	}

	i := New(desc, proxy)
	exited := startInterpreter(t, i)

	assert.Equal(t, []string{"127.0.0.1:8123:s3cret:hi"}, readAllLines(t, i.OutputReader()))
	waitExit(t, exited)
}

func TestStart_ExitCode(t *testing.T) {
	i := New(shell("exit 3"), nil)
	exited := startInterpreter(t, i)

	status := waitExit(t, exited)
	assert.Equal(t, 3, status.Code)
	assert.False(t, status.Success())

	waited, err := i.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status, waited)
	assert.False(t, i.Alive())
}

func TestStart_Twice(t *testing.T) {
	i := New(shell("exit 0"), nil)
	exited := startInterpreter(t, i)

	require.ErrorIs(t, i.Start(context.Background(), nil), ErrAlreadyStarted)
	waitExit(t, exited)
}

func TestStart_BadBinary(t *testing.T) {
	i := New(descriptor.Descriptor{Binary: "/nonexistent/interpreter"}, nil)

	var got []ExitStatus

	err := i.Start(context.Background(), func(s ExitStatus) { got = append(got, s) })
	require.ErrorIs(t, err, ErrCouldNotStartProcess)
	require.Len(t, got, 1)
	assert.Equal(t, -1, got[0].Code)
	require.ErrorIs(t, got[0].Err, ErrCouldNotStartProcess)
	assert.Nil(t, i.OutputReader())
}

func TestWriteLine(t *testing.T) {
	i := New(shell(`read line; echo "got:$line"`), nil)
	exited := startInterpreter(t, i)

	require.NoError(t, i.WriteLine("ping"))

	line, err := i.OutputReader().ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "got:ping", line)

	waitExit(t, exited)
}

func TestCloseInput(t *testing.T) {
	i := New(shell(`cat; echo done`), nil)
	exited := startInterpreter(t, i)

	require.NoError(t, i.WriteLine("one"))
	require.NoError(t, i.CloseInput())

	status := waitExit(t, exited)
	assert.True(t, status.Success())
	assert.Equal(t, []string{"one", "done"}, readAllLines(t, i.OutputReader()))
}

func TestCloseInput_NotStarted(t *testing.T) {
	i := New(shell("true"), nil)
	assert.ErrorIs(t, i.CloseInput(), ErrNotStarted)
}

func TestConcurrentReaders(t *testing.T) {
	i := New(shell(`i=0; while [ $i -lt 200 ]; do echo "line $i"; i=$((i+1)); done`), nil)
	exited := startInterpreter(t, i)

	results := make([][]string, 4)

	var wg sync.WaitGroup

	for n := range results {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			r := i.OutputReader()

			for {
				line, err := r.ReadLine()
				if err != nil {
					assert.ErrorIs(t, err, io.EOF)
					return
				}

				results[n] = append(results[n], line)
			}
		}(n)
	}

	wg.Wait()
	waitExit(t, exited)

	require.Len(t, results[0], 200)

	for n := range results {
		assert.Equal(t, results[0], results[n], "reader %d", n)
	}

	assert.Equal(t, int64(i.Output().Len()), i.Output().Consumed())
}

func TestKill_Terminates(t *testing.T) {
	proxy := &fakeProxy{}
	i := New(shell("exec sleep 30"), proxy)
	exited := startInterpreter(t, i)

	require.True(t, i.Alive())
	require.NoError(t, i.Kill(context.Background()))

	status := waitExit(t, exited)
	assert.Equal(t, syscall.SIGTERM.String(), status.Signal)
	require.ErrorIs(t, status.Err, ErrKilled)
	assert.False(t, i.Alive())
	assert.GreaterOrEqual(t, proxy.shutdown.Load(), int32(1))
}

func TestKill_ProxyErrorAfterTermination(t *testing.T) {
	proxy := &fakeProxy{err: assert.AnError}
	i := New(shell("exec sleep 30"), proxy)
	proxy.child = i
	exited := startInterpreter(t, i)

	err := i.Kill(context.Background())
	require.ErrorIs(t, err, ErrProxyShutdown)
	require.ErrorIs(t, err, assert.AnError)

	status := waitExit(t, exited)
	assert.Equal(t, syscall.SIGTERM.String(), status.Signal)
	assert.ErrorIs(t, status.Err, ErrKilled)
	assert.False(t, i.Alive())

	assert.Equal(t, int32(1), proxy.shutdown.Load())
	assert.False(t, proxy.childAliveAtEnd.Load(), "proxy shut down before the interpreter exited")
}

func TestKill_AfterExitKeepsCleanStatus(t *testing.T) {
	i := New(shell("exit 0"), nil)
	exited := startInterpreter(t, i)

	status := waitExit(t, exited)
	require.NoError(t, i.Kill(context.Background()))

	assert.True(t, status.Success())

	got, err := i.Wait(context.Background())
	require.NoError(t, err)
	assert.NoError(t, got.Err)
}

func TestKill_EscalatesAfterGracePeriod(t *testing.T) {
	i := New(shell(`trap "" TERM; exec sleep 30`), nil, WithGracePeriod(100*time.Millisecond))
	exited := startInterpreter(t, i)

	// Give the shell time to install the trap.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, i.Kill(context.Background()))

	status := waitExit(t, exited)
	assert.Equal(t, syscall.SIGKILL.String(), status.Signal)
}

func TestContextCancelTerminates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	i := New(shell("exec sleep 30"), nil)
	exited := make(chan ExitStatus, 1)

	require.NoError(t, i.Start(ctx, func(s ExitStatus) { exited <- s }))

	t.Cleanup(func() { _ = i.Close() })

	cancel()

	status := waitExit(t, exited)
	require.ErrorIs(t, status.Err, ErrContextDone)
}

func TestSignal(t *testing.T) {
	i := New(shell("exec sleep 30"), nil)
	exited := startInterpreter(t, i)

	require.NoError(t, i.Signal(os.Interrupt))

	status := waitExit(t, exited)
	assert.Equal(t, syscall.SIGINT.String(), status.Signal)
}

func TestWait_ContextEnds(t *testing.T) {
	i := New(shell("exec sleep 30"), nil)
	startInterpreter(t, i)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := i.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStats(t *testing.T) {
	i := New(shell("exec sleep 30"), nil)
	startInterpreter(t, i)

	stats, err := i.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(i.Pid()), stats.PID) //nolint:gosec
	assert.Positive(t, stats.RSS)
	assert.Positive(t, stats.Threads)
}

func TestStart_PTY(t *testing.T) {
	desc := shell("echo hi")
	desc.PTY = true
	desc.SetDefaults()

	i := New(desc, nil)
	exited := make(chan ExitStatus, 1)

	if err := i.Start(context.Background(), func(s ExitStatus) { exited <- s }); err != nil {
		t.Skipf("pseudo terminal unavailable: %v", err)
	}

	t.Cleanup(func() {
		_ = i.Kill(context.Background())
		_ = i.Close()
	})

	lines := readAllLines(t, i.OutputReader())
	require.NotEmpty(t, lines)
	assert.Equal(t, "hi", lines[0])

	waitExit(t, exited)
}
