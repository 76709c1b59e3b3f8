// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/matt-FFFFFF/interp/internal/ctxlog"
)

const killTimeout = 5 * time.Second

// Kill terminates the interpreter, then shuts the proxy down.
// The interpreter gets SIGTERM and, if it is still running after the grace
// period or when ctx ends, SIGKILL. Calling Kill on an interpreter that was
// never started only shuts the proxy down.
func (i *Interpreter) Kill(ctx context.Context) error {
	i.mu.Lock()
	ps, done := i.ps, i.done
	i.mu.Unlock()

	var err error

	if ps != nil {
		err = i.terminate(ctx, ps, done, ErrKilled)
	}

	if i.proxy != nil {
		if perr := i.proxy.Shutdown(ctx); perr != nil {
			ctxlog.Warn(ctx, "proxy shutdown failed", "error", perr)
			err = errors.Join(err, ErrProxyShutdown, perr)
		}
	}

	return err
}

// terminate sends SIGTERM and, after the grace period, SIGKILL. reason is
// recorded for the exit status only when a signal was delivered.
func (i *Interpreter) terminate(ctx context.Context, ps *os.Process, done chan struct{}, reason error) error {
	i.mu.Lock()

	select {
	case <-done:
		i.mu.Unlock()
		return nil
	default:
	}

	err := ps.Signal(syscall.SIGTERM)
	if err == nil && i.reason == nil {
		i.reason = reason
	}

	i.mu.Unlock()

	if err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}

		ctxlog.Debug(ctx, "could not send SIGTERM", "pid", ps.Pid, "error", err)
	}

	grace := time.NewTimer(i.gracePeriod)
	defer grace.Stop()

	select {
	case <-done:
		return nil
	case <-grace.C:
		ctxlog.Info(ctx, "grace period expired, killing interpreter", "pid", ps.Pid)
	case <-ctx.Done():
	}

	killPs(ctx, ps)

	select {
	case <-done:
		return nil
	case <-time.After(killTimeout):
		return ErrCouldNotKillProcess
	}
}

// killPs sends SIGKILL to the process.
func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Error(ctx, "process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Info(ctx, "process killed", "pid", ps.Pid)
}
