// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package parallel compresses one stream as independent blocks on a
// pool of workers.
//
// The calling goroutine is the producer: it cuts the input with
// bridge.ReadBlock at method.BlockSize boundaries, tags each block with
// its position, and appends it to a queue guarded by a mutex and a
// condition variable. Workers take blocks off the queue, run a private
// engine session per block into a private sink, and record the result
// at the block's index. Completion order does not matter; results are
// summed or written by index.
//
// The first failing block wins: its message is latched, the queue is
// dropped, every waiter is woken, and the whole call fails with a
// fault.ErrParallel error wrapping the cause. No partial size or output
// is returned. There is no other cancellation.
//
// With one thread or fewer the pool is bypassed and engine.Compress
// runs inline. Block boundaries are the same either way, and since the
// backends are deterministic so are the sizes.
package parallel
