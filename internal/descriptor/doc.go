// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package descriptor loads interpreter descriptors.
//
// A descriptor names the interpreter binary, its arguments, the interactive
// command appended when it starts, and the environment it runs with. Descriptors
// are written in YAML or HCL and can be fetched from any go-getter source.
package descriptor
