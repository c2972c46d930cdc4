// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend holds the codecs that actually compress segment
// payloads. To the rest of the module they are black boxes selected by
// a compiled [method.Program]:
//
//   - store: bytes pass through unchanged
//   - lz4: github.com/pierrec/lz4/v4 frame format
//   - zstd: github.com/klauspost/compress/zstd, encoders pooled per level
//   - snappy: github.com/golang/snappy framing format
//   - lzma: github.com/ulikunitz/xz/lzma with an end-of-stream marker
//
// Each codec is used as a stream: [NewEncoder] wraps the framing
// writer, [NewDecoder] wraps the framing reader. The codecs' own
// framing marks the end of their data, so a decoder stops at exactly
// the byte the encoder stopped at.
//
// [Preprocess] and [Unpreprocess] implement the whole-segment
// transforms, currently the 4-byte byte-grouping (BG4) transpose.
package backend
