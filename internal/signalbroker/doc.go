// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker listens for termination signals and forwards them to the
// interpreter. The first signal of a type is passed on so the interpreter can
// handle it, for example to interrupt a running statement. A second signal of
// the same type cancels the context, which terminates the interpreter.
package signalbroker
