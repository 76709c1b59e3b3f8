// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/interp/internal/ctxlog"
	"github.com/matt-FFFFFF/interp/internal/teereader"
)

const readHeaderTimeout = 5 * time.Second

var (
	// ErrListen is returned when the proxy cannot listen on its address.
	ErrListen = errors.New("proxy could not listen")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("proxy already started")
)

// Source provides readers over the interpreter output.
// OutputReader returns nil while there is no output yet.
type Source interface {
	OutputReader() *teereader.TeeReader
}

// Proxy is an HTTP endpoint for the interpreter output.
type Proxy struct {
	cfg    Config
	secret string

	mu       sync.RWMutex
	src      Source
	listener net.Listener
	server   *http.Server
	stop     context.CancelFunc
	served   chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a proxy. When cfg.Handshake is set a random secret is generated
// and required by the output endpoints.
func New(cfg Config) *Proxy {
	p := &Proxy{cfg: cfg}

	if cfg.Handshake {
		p.secret = uuid.NewString()
	}

	return p
}

// Start listens on the configured address and serves in the background until
// Shutdown.
func (p *Proxy) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port)))
	if err != nil {
		return errors.Join(ErrListen, err)
	}

	baseCtx, stop := context.WithCancel(ctx)

	p.listener = ln
	p.stop = stop
	p.served = make(chan struct{})
	p.server = &http.Server{
		Handler:           p.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	ctxlog.Info(ctx, "proxy listening", "addr", ln.Addr().String())

	go func(server *http.Server, served chan struct{}) {
		defer close(served)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctxlog.Error(ctx, "proxy server error", "error", err)
		}
	}(p.server, p.served)

	return nil
}

// Attach sets the output source.
func (p *Proxy) Attach(src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.src = src
}

// Host returns the host the proxy listens on.
func (p *Proxy) Host() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.listener == nil {
		return p.cfg.Host
	}

	host, _, _ := net.SplitHostPort(p.listener.Addr().String())

	return host
}

// Port returns the port the proxy listens on, the configured port before Start.
func (p *Proxy) Port() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.listener == nil {
		return p.cfg.Port
	}

	if addr, ok := p.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}

	return p.cfg.Port
}

// Secret returns the handshake secret, empty when no handshake is required.
func (p *Proxy) Secret() string {
	return p.secret
}

// Addr returns host:port.
func (p *Proxy) Addr() string {
	return net.JoinHostPort(p.Host(), strconv.Itoa(p.Port()))
}

// Shutdown stops serving. Open streams are cancelled and the call waits for
// them until ctx ends or the configured shutdown timeout passes.
// Calling Shutdown more than once returns the first result.
func (p *Proxy) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.mu.RLock()
		server, stop, served := p.server, p.stop, p.served
		p.mu.RUnlock()

		if server == nil {
			return
		}

		stop()

		if p.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc

			ctx, cancel = context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
			defer cancel()
		}

		p.shutdownErr = server.Shutdown(ctx)

		<-served

		ctxlog.Debug(ctx, "proxy stopped")
	})

	return p.shutdownErr
}

func (p *Proxy) reader() *teereader.TeeReader {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.src == nil {
		return nil
	}

	return p.src.OutputReader()
}
