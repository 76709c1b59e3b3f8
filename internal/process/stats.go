// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"context"
	"errors"

	gops "github.com/shirou/gopsutil/v3/process"
)

// ErrStats is returned when process statistics could not be collected.
var ErrStats = errors.New("could not collect process statistics")

// Stats is a snapshot of the interpreter's resource usage.
type Stats struct {
	PID        int32   `json:"pid" yaml:"pid"`
	CPUPercent float64 `json:"cpu_percent" yaml:"cpu_percent"`
	RSS        uint64  `json:"rss" yaml:"rss"`
	Threads    int32   `json:"threads" yaml:"threads"`
}

// Stats returns CPU and memory usage of the running interpreter.
func (i *Interpreter) Stats(ctx context.Context) (Stats, error) {
	if !i.Alive() {
		return Stats{}, ErrNotStarted
	}

	pid := int32(i.Pid()) //nolint:gosec

	p, err := gops.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Stats{}, errors.Join(ErrStats, err)
	}

	stats := Stats{PID: pid}

	if stats.CPUPercent, err = p.CPUPercentWithContext(ctx); err != nil {
		return Stats{}, errors.Join(ErrStats, err)
	}

	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return Stats{}, errors.Join(ErrStats, err)
	}

	stats.RSS = mem.RSS

	if stats.Threads, err = p.NumThreadsWithContext(ctx); err != nil {
		return Stats{}, errors.Join(ErrStats, err)
	}

	return stats, nil
}
