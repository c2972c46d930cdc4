// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package method turns method descriptors into compiled programs.
//
// A descriptor is either a preset level "1" (fastest) through "5"
// (strongest), or an explicit pipeline such as "x6.2l4" (block
// exponent 6, BG4 preprocessing, lz4 level 4). See [Parse] for the
// grammar. The digits right after the first character set the block
// size through [BlockSize]; both the serial and the parallel
// compressors partition input with that one formula so they agree on
// block boundaries.
//
// A [Program] is what gets stored: it is encoded as deterministic CBOR
// in every block header so a decompressor needs nothing but the
// archive bytes.
package method
