// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package crypt holds the primitives behind encrypted archives: an AES
// counter-mode cipher with random access to the key stream, scrypt key
// stretching at the format's fixed cost, and OS random bytes.
//
// Stretched passphrase keys are returned in a [secret.Buffer] so they
// never live on the Go heap. The CTR mode here is not authenticated;
// archive integrity comes from the segment SHA-1, not from the cipher.
package crypt
