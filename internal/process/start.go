// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/matt-FFFFFF/interp/internal/ctxlog"
	"github.com/matt-FFFFFF/interp/internal/replaylog"
)

// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
var ErrFailedToCreatePipe = errors.New("failed to create pipe")

// Start launches the interpreter. Its combined output becomes readable through
// OutputReader. onExit, if not nil, is called exactly once when the process
// ends, or when it could not be started.
//
// When ctx ends the interpreter is terminated.
func (i *Interpreter) Start(ctx context.Context, onExit func(ExitStatus)) error {
	logger := ctxlog.Logger(ctx).With("interpreter", i.desc.Name)

	i.mu.Lock()

	if i.done != nil {
		i.mu.Unlock()
		return ErrAlreadyStarted
	}

	fail := func(err error) error {
		i.mu.Unlock()

		status := ExitStatus{Code: -1, Err: errors.Join(ErrCouldNotStartProcess, err)}
		logger.Error("could not start interpreter", "error", err)

		if onExit != nil {
			onExit(status)
		}

		return status.Err
	}

	path, err := exec.LookPath(i.desc.Binary)
	if err != nil {
		return fail(err)
	}

	argv := slices.Concat([]string{filepath.Base(path)}, i.Args())
	attr := &os.ProcAttr{
		Dir: i.desc.Dir,
		Env: i.Env(),
	}

	logger.Debug("starting process", "path", path, "args", argv[1:], "pty", i.desc.PTY)

	var (
		ps     *os.Process
		stdin  io.WriteCloser
		output io.ReadCloser
	)

	if i.desc.PTY {
		ps, stdin, output, err = startPTY(path, argv, attr, i.desc.Rows, i.desc.Cols)
	} else {
		ps, stdin, output, err = startPipes(path, argv, attr)
	}

	if err != nil {
		return fail(err)
	}

	done := make(chan struct{})

	i.ps = ps
	i.stdin = stdin
	i.output = output
	i.log = replaylog.New(output)
	i.startTime = time.Now()
	i.done = done

	i.mu.Unlock()

	logger.Debug("process started", "pid", ps.Pid)

	go i.watch(ctx, ps, done)
	go i.wait(ctx, ps, done, onExit)

	return nil
}

// watch terminates the process when ctx ends.
func (i *Interpreter) watch(ctx context.Context, ps *os.Process, done chan struct{}) {
	select {
	case <-ctx.Done():
		ctxlog.Info(ctx, "context done, terminating interpreter", "pid", ps.Pid)

		if err := i.terminate(context.WithoutCancel(ctx), ps, done, ErrContextDone); err != nil {
			ctxlog.Error(ctx, "could not terminate interpreter", "pid", ps.Pid, "error", err)
		}
	case <-done:
	}
}

func (i *Interpreter) wait(ctx context.Context, ps *os.Process, done chan struct{}, onExit func(ExitStatus)) {
	state, err := ps.Wait()

	i.mu.Lock()
	status := newExitStatus(state, err, time.Since(i.startTime))
	status.Err = errors.Join(status.Err, terminationReason(status, i.reason))
	i.status = status
	close(done)
	i.mu.Unlock()

	ctxlog.Debug(ctx, "process finished", "pid", ps.Pid, "exitCode", status.Code, "signal", status.Signal)

	if onExit != nil {
		onExit(status)
	}
}

// terminationReason returns reason when the process died from a signal. A
// process that exited by itself before the signal landed keeps a clean status.
func terminationReason(status ExitStatus, reason error) error {
	if status.Signal == "" {
		return nil
	}

	return reason
}

// startPipes runs the process with a pipe for input and one pipe shared by
// stdout and stderr.
func startPipes(path string, argv []string, attr *os.ProcAttr) (*os.Process, io.WriteCloser, io.ReadCloser, error) {
	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		_ = inR.Close()
		_ = inW.Close()

		return nil, nil, nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	attr.Files = []*os.File{inR, outW, outW}

	ps, err := os.StartProcess(path, argv, attr)

	// The child holds its own copies.
	_ = inR.Close()
	_ = outW.Close()

	if err != nil {
		_ = inW.Close()
		_ = outR.Close()

		return nil, nil, nil, err //nolint:wrapcheck
	}

	return ps, inW, &outputReader{f: outR}, nil
}
