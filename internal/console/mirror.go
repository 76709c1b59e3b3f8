// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package console

import (
	"context"
	"errors"
	"io"
)

const mirrorChunkSize = 4096

// ChunkReader reads whatever output is available.
type ChunkReader interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// Mirror copies r to w until the output ends or ctx ends. Partial lines such as
// prompts are written as soon as they arrive. It returns nil at the end of the
// output.
func Mirror(ctx context.Context, r ChunkReader, w io.Writer) error {
	buf := make([]byte, mirrorChunkSize)

	for {
		n, err := r.ReadContext(ctx, buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr //nolint:wrapcheck
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err //nolint:wrapcheck
		}
	}
}
