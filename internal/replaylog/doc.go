// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package replaylog provides an append-only, in-memory log of everything read
// from a single-consume output stream.
//
// The committed bytes are published atomically, so any number of readers can
// replay them without locking. Pulling fresh bytes from the stream and appending
// them is serialised by a single lock, represented by a Tail. The stream itself
// (Source) is only reachable through a held Tail, which guarantees that every
// byte is read from the stream exactly once.
//
// The log is never truncated and never persisted. It lives as long as the
// interpreter process that owns it.
package replaylog
