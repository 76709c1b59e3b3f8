// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// outputReader reads the interpreter's output. A pseudo terminal reports EIO
// once the child side is gone, and a closed descriptor reports os.ErrClosed;
// both are the end of the stream.
type outputReader struct {
	f *os.File
}

func (o *outputReader) Read(p []byte) (int, error) {
	n, err := o.f.Read(p)
	if err != nil && (errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)) {
		err = io.EOF
	}

	return n, err //nolint:wrapcheck
}

func (o *outputReader) Close() error {
	return o.f.Close() //nolint:wrapcheck
}
