// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault is the error channel between the codec engine and its
// callers.
//
// Every exported engine operation runs inside [Channel.Run]: the
// owner's slot is cleared, the operation executes inside a recover
// boundary, and any failure (a returned error, a [Raise], a runtime
// panic in a backend) comes back as a [*Error] whose message is also
// left in the slot. No panic crosses a boundary call.
//
// Faults carry a [Kind] matching the error taxonomy:
//
//   - [KindMalformed]: bad descriptors, corrupt headers, checksum mismatch
//   - [KindCallback]: a caller source or sink failed
//   - [KindResource]: allocation or unexpected runtime failure
//   - [KindParallel]: first failure of a parallel run, cause wrapped
//   - [KindUsage]: a call made in the wrong session state
//
// Use errors.Is with the Err* sentinels to branch on kind.
//
// Go has no thread-local storage, so the per-thread slot is realized
// as a per-owner [Channel]. Each session owns one; each parallel worker
// goroutine owns one. Package-level helpers return the fault directly.
package fault
