// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
)

const (
	// DefaultRows is the terminal height used when a pseudo terminal is requested without one.
	DefaultRows = 24
	// DefaultCols is the terminal width used when a pseudo terminal is requested without one.
	DefaultCols = 80
)

var (
	// ErrParse is returned when a descriptor cannot be decoded.
	ErrParse = errors.New("could not parse descriptor")
	// ErrUnknownFormat is returned when the file extension is not a known descriptor format.
	ErrUnknownFormat = errors.New("unknown descriptor format")
	// ErrInvalid is returned when a descriptor fails validation.
	ErrInvalid = errors.New("invalid descriptor")
	// ErrRead is returned when a descriptor file cannot be read.
	ErrRead = errors.New("could not read descriptor")
)

// Descriptor describes an interpreter and how to run it.
type Descriptor struct {
	Name               string            `yaml:"name" hcl:"name"`
	NiceName           string            `yaml:"nice_name,omitempty" hcl:"nice_name,optional"`
	Binary             string            `yaml:"binary" hcl:"binary"`
	Args               []string          `yaml:"args,omitempty" hcl:"args,optional"`
	InteractiveCommand string            `yaml:"interactive_command,omitempty" hcl:"interactive_command,optional"`
	Env                map[string]string `yaml:"env,omitempty" hcl:"env,optional"`
	Dir                string            `yaml:"dir,omitempty" hcl:"dir,optional"`
	PTY                bool              `yaml:"pty,omitempty" hcl:"pty,optional"`
	Rows               int               `yaml:"rows,omitempty" hcl:"rows,optional"`
	Cols               int               `yaml:"cols,omitempty" hcl:"cols,optional"`
}

// Parse decodes a descriptor, choosing the format from the extension of name,
// then applies defaults and validates it.
func Parse(name string, data []byte) (*Descriptor, error) {
	var (
		d   *Descriptor
		err error
	)

	switch formatOf(name) {
	case formatYAML:
		d, err = ParseYAML(data)
	case formatHCL:
		d, err = ParseHCL(name, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}

	if err != nil {
		return nil, err
	}

	d.SetDefaults()

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

type format int

const (
	formatUnknown format = iota
	formatYAML
	formatHCL
)

func formatOf(name string) format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".hcl":
		return formatHCL
	default:
		return formatUnknown
	}
}

// ParseYAML decodes a YAML descriptor. Unknown fields are rejected.
func ParseYAML(data []byte) (*Descriptor, error) {
	d := new(Descriptor)

	if err := yaml.UnmarshalWithOptions(data, d, yaml.Strict()); err != nil {
		return nil, errors.Join(ErrParse, err)
	}

	return d, nil
}

// ParseHCL decodes an HCL descriptor. Expressions can refer to the current
// process environment through the env object, e.g. env.HOME.
func ParseHCL(name string, data []byte) (*Descriptor, error) {
	d := new(Descriptor)

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": environObject(os.Environ()),
		},
	}

	if err := hclsimple.Decode(name, data, evalCtx, d); err != nil {
		return nil, errors.Join(ErrParse, err)
	}

	return d, nil
}

// Load reads and parses a descriptor file from FsFactory.
func Load(path string) (*Descriptor, error) {
	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrRead, err)
	}

	return Parse(path, data)
}

// SetDefaults fills in optional fields.
func (d *Descriptor) SetDefaults() {
	if d.NiceName == "" {
		d.NiceName = d.Name
	}

	if !d.PTY {
		return
	}

	if d.Rows == 0 {
		d.Rows = DefaultRows
	}

	if d.Cols == 0 {
		d.Cols = DefaultCols
	}
}

// Validate reports every problem with the descriptor.
func (d *Descriptor) Validate() error {
	var result *multierror.Error

	if d.Name == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}

	if d.Binary == "" {
		result = multierror.Append(result, errors.New("binary is required"))
	}

	if d.Rows < 0 || d.Rows > 0xffff {
		result = multierror.Append(result, fmt.Errorf("rows out of range: %d", d.Rows))
	}

	if d.Cols < 0 || d.Cols > 0xffff {
		result = multierror.Append(result, fmt.Errorf("cols out of range: %d", d.Cols))
	}

	for _, k := range d.EnvKeys() {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			result = multierror.Append(result, fmt.Errorf("invalid environment variable name: %q", k))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Join(ErrInvalid, err)
	}

	return nil
}

// EnvKeys returns the descriptor's environment variable names in sorted order.
func (d *Descriptor) EnvKeys() []string {
	keys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func environObject(environ []string) cty.Value {
	vals := make(map[string]cty.Value, len(environ))

	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		vals[k] = cty.StringVal(v)
	}

	if len(vals) == 0 {
		return cty.EmptyObjectVal
	}

	return cty.ObjectVal(vals)
}
