// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine implements the compression state machines.
//
// A [Compressor] writes a stream of blocks to one bridge.Writer. Each
// block starts with a header carrying its compiled method.Program and
// holds one or more segments; each segment has a filename, a comment,
// a chunked payload, and a trailer with an optional SHA-1. A
// [Decompressor] walks the same structure from a bridge.Source and
// reports each piece as it goes.
//
// Every exported method is a failure boundary built on fault.Channel:
// a codec panic, a callback failure or corrupt input comes back as a
// *fault.Error whose message is also available from LastError until the
// next call. Misordered calls are usage faults.
//
// [Compress], [CompressBlock] and [Decompress] drive the state machines
// for the common whole-stream case. Compress and the parallel
// compressor cut input at the same block boundaries, and since every
// backend encodes deterministically they produce the same number of
// bytes.
package engine
