// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// ExitStatus describes how the interpreter ended.
type ExitStatus struct {
	Code     int           // Exit code, -1 if the process was signalled or never ran.
	Signal   string        // Name of the terminating signal, if any.
	Err      error         // Wait error, start error or the reason the process was terminated.
	Duration time.Duration // How long the process ran.
}

// Success reports whether the interpreter exited normally with code 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == "" && s.Err == nil
}

func (s ExitStatus) String() string {
	switch {
	case s.Signal != "":
		return fmt.Sprintf("terminated by signal %s after %s", s.Signal, s.Duration.Round(time.Millisecond))
	case s.Err != nil && s.Code == -1:
		return fmt.Sprintf("failed: %v", s.Err)
	default:
		return fmt.Sprintf("exited with code %d after %s", s.Code, s.Duration.Round(time.Millisecond))
	}
}

func newExitStatus(state *os.ProcessState, err error, d time.Duration) ExitStatus {
	status := ExitStatus{
		Code:     -1,
		Err:      err,
		Duration: d,
	}

	if state == nil {
		return status
	}

	status.Code = state.ExitCode()

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = ws.Signal().String()
	}

	return status
}
