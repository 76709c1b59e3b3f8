// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package descriptor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/interp/internal/ctxlog"
	"github.com/spf13/afero"
)

// ErrFetch is returned when a descriptor cannot be fetched.
var ErrFetch = errors.New("could not fetch descriptor")

const (
	forcedGetterSep = "::"
	schemeSep       = "://"
	subdirSep       = "//"
)

// Get loads a descriptor from a local path, or fetches it with go-getter when
// src is not a file on FsFactory.
func Get(ctx context.Context, src string) (*Descriptor, error) {
	if src == "" {
		return nil, ErrFetch
	}

	if ok, _ := afero.Exists(FsFactory(), src); ok {
		ctxlog.Debug(ctx, "loading local descriptor", "path", src)
		return Load(src)
	}

	return Fetch(ctx, src)
}

// location is a descriptor source split into what go-getter downloads and
// where the descriptor sits inside the download.
type location struct {
	src  string
	mode getter.Mode
	name string
}

// locate splits src. A URL with a "//" subdirectory, such as
// git::https://example.com/repo.git//interp/python.yaml?ref=v1, downloads
// the directory holding the descriptor; go-getter fetches repositories whole.
// Any other URL names the descriptor file itself.
func locate(src string) (location, error) {
	query := ""
	if i := strings.IndexByte(src, '?'); i >= 0 {
		src, query = src[:i], src[i:]
	}

	start := 0
	if i := strings.Index(src, forcedGetterSep); i >= 0 {
		start = i + len(forcedGetterSep)
	}

	if i := strings.Index(src[start:], schemeSep); i >= 0 {
		start += i + len(schemeSep)
	}

	if i := strings.Index(src[start:], subdirSep); i >= 0 {
		root, sub := src[:start+i], src[start+i+len(subdirSep):]

		dir, name := path.Split(sub)
		if formatOf(name) == formatUnknown {
			return location{}, fmt.Errorf("%w: %w: %q", ErrFetch, ErrUnknownFormat, sub)
		}

		if dir = strings.Trim(dir, "/"); dir != "" {
			root += subdirSep + dir
		}

		return location{src: root + query, mode: getter.ModeDir, name: name}, nil
	}

	name := path.Base(src)
	if formatOf(name) == formatUnknown {
		return location{}, fmt.Errorf("%w: %w: %q", ErrFetch, ErrUnknownFormat, src)
	}

	return location{src: src + query, mode: getter.ModeFile, name: name}, nil
}

// Fetch downloads the descriptor at src with go-getter and parses it. The
// download is removed before returning.
func Fetch(ctx context.Context, src string) (*Descriptor, error) {
	loc, err := locate(src)
	if err != nil {
		return nil, err
	}

	ctxlog.Debug(ctx, "fetching descriptor", "source", loc.src, "file", loc.name)

	tmpDir, err := os.MkdirTemp("", "interp-getter-*")
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	// Files land directly in the download; directories go one level down so
	// the descriptor path is the same for both.
	dst := filepath.Join(tmpDir, loc.name)
	if loc.mode == getter.ModeDir {
		dst = filepath.Join(tmpDir, "src")
	}

	client := getter.Client{DisableSymlinks: true}

	res, err := client.Get(ctx, &getter.Request{
		Src:     loc.src,
		Dst:     dst,
		Pwd:     wd,
		GetMode: loc.mode,
		Copy:    true,
	})
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	download := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), tmpDir))

	rel, err := filepath.Rel(tmpDir, res.Dst)
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	if loc.mode == getter.ModeDir {
		rel = filepath.Join(rel, loc.name)
	}

	data, err := afero.ReadFile(download, rel)
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	return Parse(loc.name, data)
}
