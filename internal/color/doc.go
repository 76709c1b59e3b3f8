// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color adds ANSI colours to terminal output.
//
// Colour is on when the output is a terminal, unless NO_COLOR is set.
// FORCE_COLOR turns it on for non-terminals.
package color
