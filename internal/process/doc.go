// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package process supervises an interactive interpreter child process.
//
// The interpreter's output can be read only once, so it is captured in a
// replay log when the process starts. OutputReader hands out any number of
// independent readers over that log, each of which sees the whole output.
package process
