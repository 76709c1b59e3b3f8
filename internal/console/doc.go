// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package console connects an interpreter to the terminal: output is mirrored
// as it arrives and input lines are read with a line editor.
package console
