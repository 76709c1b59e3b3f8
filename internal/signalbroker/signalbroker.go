// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/interp/internal/ctxlog"
)

var termSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// Signaler receives forwarded signals.
type Signaler interface {
	Signal(sig os.Signal) error
}

// New returns a channel notified of sigs, or of the termination signals when
// none are given. Release it with Stop.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop stops delivering signals to ch.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}

// Forward passes the first signal of each type to target, which may be nil, and
// calls cancel on the second signal of a type. It returns when ctx ends, sigCh
// is closed or cancel was called.
func Forward(ctx context.Context, sigCh <-chan os.Signal, target Signaler, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				ctxlog.Info(ctx, "received second signal of type, terminating", "signal", sig.String())
				cancel()

				return
			}

			seen[sig] = struct{}{}

			if target == nil {
				ctxlog.Info(ctx, "received signal", "signal", sig.String())
				continue
			}

			ctxlog.Info(ctx, "forwarding signal", "signal", sig.String())

			if err := target.Signal(sig); err != nil {
				ctxlog.Warn(ctx, "failed to forward signal", "signal", sig.String(), "error", err)
			}
		}
	}
}
