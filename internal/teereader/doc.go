// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package teereader provides independent reader handles over a shared replay log.
//
// Every TeeReader starts at offset zero and sees the complete output of the
// underlying stream: it replays bytes that other readers already pulled, and
// when it reaches the tail it pulls fresh bytes itself, appending them to the
// log for everyone else. A TeeReader is meant for a single consumer; create one
// per goroutine.
package teereader
