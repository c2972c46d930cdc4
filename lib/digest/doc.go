// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides incremental SHA-1, SHA-256 and BLAKE3.
//
// Each engine accepts one byte (Put) or a buffer (Write) at a
// time and yields a fixed-size array from Result, which also resets
// the engine. Len counts the bytes hashed into the current message.
// None of the engines lock; each belongs to one goroutine.
package digest
