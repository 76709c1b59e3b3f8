// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package proxy serves the interpreter's output over HTTP.
//
// The proxy listens before the interpreter starts, so its host, port and
// handshake secret can be passed to the interpreter through the environment.
// Once the interpreter is running it is attached as the output source and every
// request gets its own reader over the full output.
package proxy
