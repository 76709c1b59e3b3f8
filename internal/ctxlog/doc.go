// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a slog logger in a context.
//
// The default logger writes human readable lines to standard error. Its level
// comes from the INTERP_LOG_LEVEL environment variable: DEBUG, INFO, WARN or
// ERROR, anything else means WARN.
package ctxlog
