// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package run

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matt-FFFFFF/interp/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeDescriptor(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sh.yaml")
	body := "name: sh\nbinary: /bin/sh\nargs: [\"-c\", " + quote(script) + "]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := &cli.Command{
		Name:           "interp",
		Commands:       []*cli.Command{NewCommand()},
		Writer:         &out,
		ErrWriter:      &errOut,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	err := root.Run(ctx, append([]string{"interp", "run"}, args...))

	return out.String(), err
}

func TestRun_MirrorsOutput(t *testing.T) {
	path := writeDescriptor(t, "echo hello; echo world")

	out, err := runCLI(t, "-f", path, "--no-input", "--no-proxy")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", out)
}

func TestRun_ProxyEnvironment(t *testing.T) {
	t.Setenv("INTERP_PROXY_HOST", "127.0.0.1")
	t.Setenv("INTERP_PROXY_PORT", "0")
	t.Setenv("INTERP_PROXY_HANDSHAKE", "true")

	path := writeDescriptor(t, `echo "host=$AP_HOST"; test -n "$AP_PORT" && test "$AP_PORT" != 0 && echo port; test -n "$AP_HANDSHAKE" && echo secret`)

	out, err := runCLI(t, "-f", path, "--no-input")
	require.NoError(t, err)
	assert.Equal(t, "host=127.0.0.1\nport\nsecret\n", out)
}

func TestRun_ExitCode(t *testing.T) {
	path := writeDescriptor(t, "echo failing; exit 3")

	out, err := runCLI(t, "-f", path, "--no-input", "--no-proxy")
	require.Error(t, err)
	assert.Equal(t, "failing\n", out)

	var ec cli.ExitCoder
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, 3, ec.ExitCode())
}

func TestRun_Timeout(t *testing.T) {
	path := writeDescriptor(t, "echo started; exec sleep 30")

	start := time.Now()
	out, err := runCLI(t, "-f", path, "--no-input", "--no-proxy", "--timeout", "200ms", "--grace-period", "100ms")

	require.Error(t, err)
	assert.Less(t, time.Since(start), 15*time.Second)
	assert.Equal(t, "started\n", out)
	assert.Contains(t, err.Error(), "signal")
}

func TestRun_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "missing file flag", args: []string{"--no-input"}},
		{name: "descriptor not found", args: []string{"-f", filepath.Join(t.TempDir(), "nope.yaml"), "--no-input"}},
		{name: "bad binary", args: []string{"-f", badBinary(t), "--no-input", "--no-proxy"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, tc.args...)
			assert.Error(t, err)
		})
	}
}

func badBinary(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nbinary: /does/not/exist\n"), 0o600))

	return path
}

func TestWaitLimit(t *testing.T) {
	cmd := NewCommand()

	assert.Equal(t, time.Nanosecond, waitLimit(cmd, true))
}

func TestAwaitExit(t *testing.T) {
	exited := make(chan process.ExitStatus, 1)

	_, ok := awaitExit(context.Background(), exited, 10*time.Millisecond)
	assert.False(t, ok)

	exited <- process.ExitStatus{Code: 0}

	s, ok := awaitExit(context.Background(), exited, 0)
	assert.True(t, ok)
	assert.True(t, s.Success())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok = awaitExit(ctx, exited, 0)
	assert.False(t, ok)
}
