// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/matt-FFFFFF/interp/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer

	root := &cli.Command{
		Name:     "interp",
		Commands: []*cli.Command{versionCmd},
		Writer:   &out,
	}

	require.NoError(t, root.Run(context.Background(), []string{"interp", "version"}))
	assert.Equal(t, "interp dev (commit: unknown)\n", out.String())
}

func TestRootBefore_LogJSON(t *testing.T) {
	var got context.Context

	root := &cli.Command{
		Name:   "interp",
		Flags:  rootCmd.Flags,
		Before: rootCmd.Before,
		Action: func(ctx context.Context, _ *cli.Command) error {
			got = ctx

			return nil
		},
	}

	require.NoError(t, root.Run(context.Background(), []string{"interp", "--" + logJSONFlag}))
	assert.Same(t, ctxlog.JSONLogger, ctxlog.Logger(got))
}
