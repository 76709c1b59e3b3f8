// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show contains the show command, which prints how a descriptor resolves.
package show

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/interp/internal/descriptor"
	"github.com/matt-FFFFFF/interp/internal/process"
	"github.com/urfave/cli/v3"
)

const (
	fileArg  = "descriptor"
	fileFlag = "file"
	envFlag  = "env"
)

var (
	// ErrNoDescriptor is returned when no descriptor argument is given.
	ErrNoDescriptor = errors.New("no descriptor given")
	// ErrWriteResolved is returned when the resolved descriptor cannot be written.
	ErrWriteResolved = errors.New("failed to write resolved descriptor")
)

// Resolved is the printed form of a descriptor.
type Resolved struct {
	Name    string            `yaml:"name"`
	Command []string          `yaml:"command"`
	Dir     string            `yaml:"dir,omitempty"`
	PTY     bool              `yaml:"pty"`
	Size    string            `yaml:"size,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Environ []string          `yaml:"environ,omitempty"`
}

// ShowCmd is the command that prints a resolved descriptor.
var ShowCmd = &cli.Command{
	Name:        "show",
	Usage:       "Show how an interpreter descriptor resolves",
	Description: "Print the command line and environment an interpreter would be started with.",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name: fileArg,
		},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    fileFlag,
			Aliases: []string{"f"},
			Usage:   "Path or go-getter URL of the interpreter descriptor",
		},
		&cli.BoolFlag{
			Name:  envFlag,
			Usage: "Include the complete environment passed to the interpreter",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		src := cmd.String(fileFlag)
		if src == "" {
			src = cmd.StringArg(fileArg)
		}

		if src == "" {
			return ErrNoDescriptor
		}

		desc, err := descriptor.Get(ctx, src)
		if err != nil {
			return err //nolint:wrapcheck
		}

		return Write(cmd.Root().Writer, desc, cmd.Bool(envFlag))
	},
}

// Write prints desc as YAML. With environ set the complete environment is
// included.
func Write(w io.Writer, desc *descriptor.Descriptor, environ bool) error {
	interp := process.New(*desc, nil)

	r := Resolved{
		Name:    interp.NiceName(),
		Command: interp.Command(),
		Dir:     desc.Dir,
		PTY:     desc.PTY,
		Env:     desc.Env,
	}

	if desc.PTY {
		r.Size = fmt.Sprintf("%dx%d", desc.Cols, desc.Rows)
	}

	if environ {
		r.Environ = interp.Env()
	}

	out, err := yaml.Marshal(r)
	if err != nil {
		return errors.Join(ErrWriteResolved, err)
	}

	if _, err := w.Write(out); err != nil {
		return errors.Join(ErrWriteResolved, err)
	}

	return nil
}
