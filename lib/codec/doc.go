// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides paqkit's standard CBOR encoding configuration.
//
// CBOR is used for exactly one thing on the wire: the compiled method
// program stored in every block header. The decoder of a stream needs
// the program to pick a backend and its parameters, and nothing else
// about the block header is self-describing.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, which keeps the
// serial and parallel compressors byte-for-byte comparable.
//
//	data, err := codec.Marshal(program)
//	err = codec.Unmarshal(data, &program)
//
// Types encoded here use `cbor` struct tags; they are never serialized
// as JSON.
package codec
