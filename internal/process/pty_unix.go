// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package process

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/creack/pty"
)

// ErrFailedToCreatePTY is returned when a pseudo terminal could not be opened.
var ErrFailedToCreatePTY = errors.New("failed to create pseudo terminal")

// startPTY runs the process as the session leader of a new pseudo terminal.
func startPTY(path string, argv []string, attr *os.ProcAttr, rows, cols int) (*os.Process, io.WriteCloser, io.ReadCloser, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, nil, nil, errors.Join(ErrFailedToCreatePTY, err)
	}

	defer tty.Close() //nolint:errcheck

	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil { //nolint:gosec
		_ = ptmx.Close()
		return nil, nil, nil, errors.Join(ErrFailedToCreatePTY, err)
	}

	attr.Files = []*os.File{tty, tty, tty}
	attr.Sys = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	ps, err := os.StartProcess(path, argv, attr)
	if err != nil {
		_ = ptmx.Close()
		return nil, nil, nil, err //nolint:wrapcheck
	}

	return ps, ptmx, &outputReader{f: ptmx}, nil
}
