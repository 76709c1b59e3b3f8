// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package proxy

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/matt-FFFFFF/interp/internal/ctxlog"
)

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"

	// HandshakeHeader carries the secret on output requests.
	HandshakeHeader = "X-Handshake"
	// HandshakeQuery carries the secret when a header cannot be set.
	HandshakeQuery = "handshake"

	outputChunkSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Handler returns the proxy's router.
func (p *Proxy) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", p.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(p.requireHandshake)
		r.Get("/output", p.handleOutput)
		r.Get("/lines", p.handleLines)
	})

	return r
}

func (p *Proxy) requireHandshake(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get(HandshakeHeader)
		if got == "" {
			got = r.URL.Query().Get(HandshakeQuery)
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(p.secret)) != 1 {
			writeJSON(w, r, http.StatusUnauthorized, response{Status: "error", Error: "invalid handshake"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (p *Proxy) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, response{Status: "ok"})
}

// handleOutput streams the output from the beginning until it ends or the
// client goes away.
func (p *Proxy) handleOutput(w http.ResponseWriter, r *http.Request) {
	reader := p.reader()
	if reader == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, response{Status: "error", Error: "interpreter not running"})
		return
	}

	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, outputChunkSize)
	ctx := r.Context()

	for {
		n, err := reader.ReadContext(ctx, buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				ctxlog.Debug(ctx, "output stream ended", "error", err)
			}

			return
		}
	}
}

// handleLines sends one websocket text message per output line.
func (p *Proxy) handleLines(w http.ResponseWriter, r *http.Request) {
	reader := p.reader()
	if reader == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, response{Status: "error", Error: "interpreter not running"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ctxlog.Debug(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	defer conn.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Control frames are only processed while reading.
	closed := make(chan struct{})

	go func() {
		defer close(closed)
		defer cancel()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		line, err := reader.ReadLineContext(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of output")
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
			}

			break
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			break
		}
	}

	_ = conn.Close()

	<-closed
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ctxlog.Warn(r.Context(), "error encoding response", "error", err)
	}
}
