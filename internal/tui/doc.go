// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui is a full-screen viewer for a running interpreter. Output lines
// scroll in a viewport and an input line at the bottom sends statements to
// the interpreter.
package tui
