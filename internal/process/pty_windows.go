// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package process

import (
	"errors"
	"io"
	"os"
)

// ErrFailedToCreatePTY is returned when a pseudo terminal could not be opened.
var ErrFailedToCreatePTY = errors.New("pseudo terminals are not supported on windows")

func startPTY(_ string, _ []string, _ *os.ProcAttr, _, _ int) (*os.Process, io.WriteCloser, io.ReadCloser, error) {
	return nil, nil, nil, ErrFailedToCreatePTY
}
