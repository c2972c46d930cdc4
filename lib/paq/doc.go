// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package paq is the convenience layer over the engine: whole-buffer
// and stream compression and decompression, size-only variants that
// count output instead of keeping it, a byte-at-a-time
// [StreamingCompressor], and archive size estimation for files.
//
// Every function accepts a method descriptor (see package method) and
// returns *fault.Error values, so callers branch with errors.Is
// against fault.ErrMalformed, fault.ErrCallback and the other kinds.
//
// Compression with Options.Threads above 1 runs through package
// parallel and produces byte-identical output to the serial path.
package paq
