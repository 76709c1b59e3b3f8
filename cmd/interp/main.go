// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the interp command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/interp"
	"github.com/matt-FFFFFF/interp/cmd/interp/run"
	"github.com/matt-FFFFFF/interp/cmd/interp/show"
	"github.com/matt-FFFFFF/interp/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

const logJSONFlag = "log-json"

var versionCmd = &cli.Command{
	Name:  "version",
	Usage: "Print the version",
	Action: func(_ context.Context, cmd *cli.Command) error {
		_, err := fmt.Fprintf(cmd.Root().Writer, "interp %s (commit: %s)\n", interp.Version, interp.Commit)
		return err //nolint:wrapcheck
	},
}

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		show.ShowCmd,
		versionCmd,
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  logJSONFlag,
			Usage: "Write log records as JSON lines",
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Bool(logJSONFlag) {
			return ctxlog.New(ctx, ctxlog.JSONLogger), nil
		}

		return ctx, nil
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "interp",
	Description: `interp runs an interactive interpreter as a child process and shares its output.
Every consumer, the console, the full-screen viewer and remote readers connected
through the proxy, sees the complete output from the start, while the interpreter's
output stream is read exactly once.

Set INTERP_LOG_LEVEL to DEBUG, INFO, WARN or ERROR to change the log level.`,
	Usage:     "interp run -f python.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", interp.Version, interp.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Error(ctx, "command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1) //nolint:gocritic
	}

	if err != nil {
		ctxlog.Error(ctx, "command execution failed", "error", err)
		os.Exit(1)
	}
}
