// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run contains the run command, which starts an interpreter and
// shares its output with the console, the viewer and the proxy.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matt-FFFFFF/interp/internal/console"
	"github.com/matt-FFFFFF/interp/internal/ctxlog"
	"github.com/matt-FFFFFF/interp/internal/descriptor"
	"github.com/matt-FFFFFF/interp/internal/process"
	"github.com/matt-FFFFFF/interp/internal/proxy"
	"github.com/matt-FFFFFF/interp/internal/signalbroker"
	"github.com/matt-FFFFFF/interp/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag      = "file"
	tuiFlag       = "tui"
	noProxyFlag   = "no-proxy"
	handshakeFlag = "handshake"
	noInputFlag   = "no-input"
	ptyFlag       = "pty"
	historyFlag   = "history"
	timeoutFlag   = "timeout"
	graceFlag     = "grace-period"
	statsFlag     = "stats-interval"
)

const (
	cliExitStr   = "interp run failed"
	drainTimeout = 2 * time.Second
	killTimeout  = 10 * time.Second
)

var errInterpreterExited = errors.New("interpreter has exited")

// RunCmd is the command that runs an interpreter.
var RunCmd = NewCommand()

// NewCommand returns a new run command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run an interpreter and share its output",
		Description: `Run the interpreter described by a YAML or HCL descriptor.
The descriptor may be a local path or any go-getter URL.

Input typed at the console is sent to the interpreter a line at a time.
Type :quit or press Ctrl+D to end input. Ctrl+C interrupts the interpreter.

Unless --no-proxy is given, the output is also served over HTTP. The address
and handshake secret are passed to the interpreter as AP_HOST, AP_PORT and
AP_HANDSHAKE. Configure the proxy with INTERP_PROXY_HOST, INTERP_PROXY_PORT,
INTERP_PROXY_HANDSHAKE and INTERP_PROXY_SHUTDOWN_TIMEOUT.`,
		Action: actionFunc,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     fileFlag,
				Aliases:  []string{"f"},
				Usage:    "Path or go-getter URL of the interpreter descriptor",
				Required: true,
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     tuiFlag,
				Usage:    "Show the output in a full-screen viewer",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     noProxyFlag,
				Usage:    "Do not serve the output over HTTP",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     handshakeFlag,
				Usage:    "Require the handshake secret on the proxy, overriding INTERP_PROXY_HANDSHAKE",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     noInputFlag,
				Usage:    "Do not read console input, mirror the output until the interpreter exits",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     ptyFlag,
				Usage:    "Run under a pseudo terminal, overriding the descriptor",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:     historyFlag,
				Usage:    "File used to keep console history between sessions",
				OnlyOnce: true,
			},
			&cli.DurationFlag{
				Name:     timeoutFlag,
				Usage:    "Terminate the interpreter after this long, 0 disables",
				OnlyOnce: true,
			},
			&cli.DurationFlag{
				Name:     graceFlag,
				Usage:    "Time between SIGTERM and SIGKILL, and to wait for exit after input ends",
				Value:    2 * time.Second,
				OnlyOnce: true,
			},
			&cli.DurationFlag{
				Name:     statsFlag,
				Usage:    "Log process statistics at this interval, 0 disables",
				OnlyOnce: true,
			},
		},
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	useTUI := cmd.Bool(tuiFlag)

	var logBuf bytes.Buffer

	if useTUI {
		ctx = ctxlog.NewForTUI(ctx, &logBuf)

		defer logBuf.WriteTo(cmd.Root().ErrWriter) //nolint:errcheck
	}

	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	ctx = ctxlog.New(ctx, logger)

	desc, err := descriptor.Get(ctx, cmd.String(fileFlag))
	if err != nil {
		logger.Error("failed to load descriptor", "error", err)
		return cli.Exit(fmt.Sprintf("%s: %v", cliExitStr, err), 1)
	}

	if cmd.IsSet(ptyFlag) {
		desc.PTY = cmd.Bool(ptyFlag)
	}

	px, err := startProxy(ctx, cmd)
	if err != nil {
		logger.Error("failed to start proxy", "error", err)
		return cli.Exit(fmt.Sprintf("%s: %v", cliExitStr, err), 1)
	}

	var p process.Proxy
	if px != nil {
		p = px
	}

	interp := process.New(*desc, p, process.WithGracePeriod(cmd.Duration(graceFlag)))

	runCtx := ctx
	if d := cmd.Duration(timeoutFlag); d > 0 {
		var runCancel context.CancelFunc

		runCtx, runCancel = context.WithTimeout(ctx, d)
		defer runCancel()
	}

	var exited <-chan process.ExitStatus

	exitCh := make(chan process.ExitStatus, 1)
	exited = exitCh

	if err := interp.Start(runCtx, func(s process.ExitStatus) { exitCh <- s }); err != nil {
		if kerr := interp.Kill(context.WithoutCancel(ctx)); kerr != nil {
			logger.Warn("proxy shutdown failed", "error", kerr)
		}

		logger.Error("failed to start interpreter", "binary", desc.Binary, "error", err)

		return cli.Exit(fmt.Sprintf("%s: %v", cliExitStr, err), 1)
	}

	logger.Info("interpreter started", "name", interp.NiceName(), "pid", interp.Pid())

	if px != nil {
		px.Attach(interp)
	}

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Forward(ctx, sigCh, interp, cancel)

	if d := cmd.Duration(statsFlag); d > 0 {
		go reportStats(runCtx, interp, d)
	}

	var drained <-chan error

	if useTUI {
		viewer := tui.NewRunner(interp.NiceName(), sendFunc(interp))
		exited = relayExit(exited, viewer)

		if err := viewer.Run(ctx, interp.OutputReader()); err != nil {
			logger.Warn("viewer failed", "error", err)
		}
	} else {
		drained = mirror(ctx, interp, cmd)
		interact(ctx, cmd, interp)
	}

	status, ok := awaitExit(ctx, exited, waitLimit(cmd, useTUI))

	killCtx, killCancel := context.WithTimeout(context.WithoutCancel(ctx), killTimeout)
	defer killCancel()

	if err := interp.Kill(killCtx); err != nil {
		logger.Warn("could not stop interpreter", "error", err)
	}

	if !ok {
		status, ok = awaitExit(killCtx, exited, 0)
	}

	if drained != nil {
		select {
		case <-drained:
		case <-time.After(drainTimeout):
			logger.Debug("output still open after exit")
		}
	}

	if err := interp.Close(); err != nil {
		logger.Debug("could not close interpreter descriptors", "error", err)
	}

	if !ok {
		return cli.Exit(fmt.Sprintf("%s: %v", cliExitStr, process.ErrCouldNotKillProcess), 1)
	}

	logger.Info("interpreter exited", "status", status.String(), "duration", status.Duration.String())

	if !status.Success() {
		code := status.Code
		if code <= 0 {
			code = 1
		}

		return cli.Exit(fmt.Sprintf("%s: %s", cliExitStr, status), code)
	}

	return nil
}

func startProxy(ctx context.Context, cmd *cli.Command) (*proxy.Proxy, error) {
	if cmd.Bool(noProxyFlag) {
		return nil, nil //nolint:nilnil
	}

	cfg, err := proxy.ConfigFromEnv()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if cmd.IsSet(handshakeFlag) {
		cfg.Handshake = cmd.Bool(handshakeFlag)
	}

	px := proxy.New(cfg)
	if err := px.Start(ctx); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return px, nil
}

// relayExit passes the exit status on after showing it in the viewer.
func relayExit(exited <-chan process.ExitStatus, viewer *tui.Runner) <-chan process.ExitStatus {
	relay := make(chan process.ExitStatus, 1)

	go func() {
		s := <-exited
		viewer.Exited(s.String(), s.Success())
		relay <- s
	}()

	return relay
}

func sendFunc(interp *process.Interpreter) func(string) error {
	return func(s string) error {
		if !interp.Alive() {
			return errInterpreterExited
		}

		return interp.WriteLine(s)
	}
}

func mirror(ctx context.Context, interp *process.Interpreter, cmd *cli.Command) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- console.Mirror(ctx, interp.OutputReader(), cmd.Root().Writer)
	}()

	return done
}

func interact(ctx context.Context, cmd *cli.Command, interp *process.Interpreter) {
	if cmd.Bool(noInputFlag) {
		return
	}

	session := console.NewSession(
		sendFunc(interp),
		console.WithHistory(cmd.String(historyFlag)),
		console.WithInterrupt(func() error { return interp.Signal(os.Interrupt) }),
	)

	if err := session.Run(ctx); err != nil && !errors.Is(err, errInterpreterExited) {
		ctxlog.Warn(ctx, "console input ended with error", "error", err)
	}

	if err := interp.CloseInput(); err != nil {
		ctxlog.Debug(ctx, "could not close interpreter input", "error", err)
	}
}

// waitLimit is how long to wait for the interpreter to exit by itself once the
// console or viewer is done. Zero waits until ctx ends.
func waitLimit(cmd *cli.Command, useTUI bool) time.Duration {
	switch {
	case useTUI:
		return time.Nanosecond
	case cmd.Bool(noInputFlag):
		return 0
	default:
		return cmd.Duration(graceFlag)
	}
}

func awaitExit(ctx context.Context, exited <-chan process.ExitStatus, limit time.Duration) (process.ExitStatus, bool) {
	var timeout <-chan time.Time

	if limit > 0 {
		t := time.NewTimer(limit)
		defer t.Stop()

		timeout = t.C
	}

	select {
	case s := <-exited:
		return s, true
	case <-ctx.Done():
		return process.ExitStatus{}, false
	case <-timeout:
		return process.ExitStatus{}, false
	}
}

func reportStats(ctx context.Context, interp *process.Interpreter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !interp.Alive() {
				return
			}

			stats, err := interp.Stats(ctx)
			if err != nil {
				ctxlog.Debug(ctx, "could not collect statistics", "error", err)
				continue
			}

			ctxlog.Info(ctx, "interpreter running",
				"name", interp.NiceName(),
				"pid", stats.PID,
				"cpu_percent", fmt.Sprintf("%.1f", stats.CPUPercent),
				"rss", stats.RSS,
				"threads", stats.Threads,
			)
		}
	}
}
