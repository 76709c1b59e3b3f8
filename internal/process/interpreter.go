// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matt-FFFFFF/interp/internal/descriptor"
	"github.com/matt-FFFFFF/interp/internal/replaylog"
	"github.com/matt-FFFFFF/interp/internal/teereader"
)

const (
	// EnvHost names the variable holding the proxy host.
	EnvHost = "AP_HOST"
	// EnvPort names the variable holding the proxy port.
	EnvPort = "AP_PORT"
	// EnvHandshake names the variable holding the proxy secret.
	EnvHandshake = "AP_HANDSHAKE"

	defaultGracePeriod = 2 * time.Second

	eot = 0x04
)

var (
	// ErrCouldNotStartProcess is returned when the interpreter could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrCouldNotKillProcess is returned when the interpreter did not exit after being killed.
	ErrCouldNotKillProcess = errors.New("could not kill process")
	// ErrAlreadyStarted is returned by Start on a running or finished interpreter.
	ErrAlreadyStarted = errors.New("interpreter already started")
	// ErrNotStarted is returned when an operation needs a started interpreter.
	ErrNotStarted = errors.New("interpreter not started")
	// ErrProxyShutdown is returned when the proxy failed to shut down.
	ErrProxyShutdown = errors.New("proxy shutdown failed")
	// ErrContextDone is recorded in the exit status when the interpreter was
	// terminated because its context ended.
	ErrContextDone = errors.New("context done, interpreter terminated")
	// ErrKilled is recorded in the exit status when Kill terminated the interpreter.
	ErrKilled = errors.New("interpreter killed")
)

// Proxy is the network endpoint the interpreter is told about through its
// environment. It is shut down together with the interpreter.
type Proxy interface {
	Host() string
	Port() int
	Secret() string
	Shutdown(ctx context.Context) error
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithGracePeriod sets how long Kill waits after SIGTERM before sending SIGKILL.
func WithGracePeriod(d time.Duration) Option {
	return func(i *Interpreter) {
		i.gracePeriod = d
	}
}

// WithEnviron replaces the base environment, os.Environ by default.
func WithEnviron(environ []string) Option {
	return func(i *Interpreter) {
		i.environ = func() []string { return slices.Clone(environ) }
	}
}

// Interpreter is an interactive interpreter child process.
type Interpreter struct {
	desc        descriptor.Descriptor
	proxy       Proxy
	gracePeriod time.Duration
	environ     func() []string

	mu        sync.Mutex
	ps        *os.Process
	stdin     io.WriteCloser
	output    io.Closer
	log       *replaylog.Log
	startTime time.Time
	done      chan struct{}
	status    ExitStatus
	reason    error
}

// New creates an interpreter from a descriptor. proxy may be nil, in which case
// no proxy variables are set.
func New(desc descriptor.Descriptor, proxy Proxy, opts ...Option) *Interpreter {
	i := &Interpreter{
		desc:        desc,
		proxy:       proxy,
		gracePeriod: defaultGracePeriod,
		environ:     os.Environ,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Name returns the interpreter name.
func (i *Interpreter) Name() string {
	return i.desc.Name
}

// NiceName returns the display name, falling back to Name.
func (i *Interpreter) NiceName() string {
	if i.desc.NiceName != "" {
		return i.desc.NiceName
	}

	return i.desc.Name
}

// Binary returns the interpreter executable.
func (i *Interpreter) Binary() string {
	return i.desc.Binary
}

// Args returns the arguments passed to the interpreter, the interactive
// command included.
func (i *Interpreter) Args() []string {
	args := slices.Clone(i.desc.Args)
	if i.desc.InteractiveCommand != "" {
		args = append(args, i.desc.InteractiveCommand)
	}

	return args
}

// Command returns the full command line.
func (i *Interpreter) Command() []string {
	return slices.Concat([]string{i.desc.Binary}, i.Args())
}

// Host returns the proxy host.
func (i *Interpreter) Host() string {
	if i.proxy == nil {
		return ""
	}

	return i.proxy.Host()
}

// Port returns the proxy port.
func (i *Interpreter) Port() int {
	if i.proxy == nil {
		return 0
	}

	return i.proxy.Port()
}

// Secret returns the proxy handshake secret, empty if there is none.
func (i *Interpreter) Secret() string {
	if i.proxy == nil {
		return ""
	}

	return i.proxy.Secret()
}

// Env returns the environment the interpreter runs with, sorted by name.
// Later layers win: the base environment, then the proxy variables, then the
// descriptor's own variables.
func (i *Interpreter) Env() []string {
	merged := make(map[string]string)

	for _, kv := range i.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			merged[k] = v
		}
	}

	if i.proxy != nil {
		merged[EnvHost] = i.proxy.Host()
		merged[EnvPort] = strconv.Itoa(i.proxy.Port())

		if secret := i.proxy.Secret(); secret != "" {
			merged[EnvHandshake] = secret
		}
	}

	for k, v := range i.desc.Env {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}

	return env
}

// Pid returns the process id, or 0 before Start.
func (i *Interpreter) Pid() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ps == nil {
		return 0
	}

	return i.ps.Pid
}

// StartTime returns when the interpreter was started.
func (i *Interpreter) StartTime() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.startTime
}

// Alive reports whether the interpreter is running.
func (i *Interpreter) Alive() bool {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()

	if done == nil {
		return false
	}

	select {
	case <-done:
		return false
	default:
		return true
	}
}

// OutputReader returns a new reader positioned at the start of the output.
// It returns nil before the interpreter has been started.
func (i *Interpreter) OutputReader() *teereader.TeeReader {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.log == nil {
		return nil
	}

	return teereader.New(i.log)
}

// Output returns the output log, nil before Start.
func (i *Interpreter) Output() *replaylog.Log {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.log
}

// Write sends input to the interpreter.
func (i *Interpreter) Write(p []byte) (int, error) {
	i.mu.Lock()
	stdin := i.stdin
	i.mu.Unlock()

	if stdin == nil {
		return 0, ErrNotStarted
	}

	return stdin.Write(p) //nolint:wrapcheck
}

// WriteLine sends s followed by a newline.
func (i *Interpreter) WriteLine(s string) error {
	_, err := i.Write([]byte(s + "\n"))
	return err
}

// CloseInput signals end of input. A pipe is closed; a pseudo terminal gets
// an end-of-transmission character so the output stays readable.
func (i *Interpreter) CloseInput() error {
	i.mu.Lock()
	stdin := i.stdin
	i.mu.Unlock()

	if stdin == nil {
		return ErrNotStarted
	}

	if i.desc.PTY {
		_, err := stdin.Write([]byte{eot})
		return err //nolint:wrapcheck
	}

	return ignoreClosed(stdin.Close())
}

// Signal sends sig to the interpreter.
func (i *Interpreter) Signal(sig os.Signal) error {
	i.mu.Lock()
	ps := i.ps
	i.mu.Unlock()

	if ps == nil {
		return ErrNotStarted
	}

	return ps.Signal(sig) //nolint:wrapcheck
}

// Wait blocks until the interpreter exits or ctx ends.
func (i *Interpreter) Wait(ctx context.Context) (ExitStatus, error) {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()

	if done == nil {
		return ExitStatus{}, ErrNotStarted
	}

	select {
	case <-done:
		i.mu.Lock()
		defer i.mu.Unlock()

		return i.status, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err() //nolint:wrapcheck
	}
}

// Close releases the interpreter's input and output descriptors.
// Readers blocked on the output see the end of the stream.
func (i *Interpreter) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var err error

	if i.stdin != nil {
		err = errors.Join(err, ignoreClosed(i.stdin.Close()))
	}

	if i.output != nil {
		err = errors.Join(err, ignoreClosed(i.output.Close()))
	}

	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}

	return err
}
