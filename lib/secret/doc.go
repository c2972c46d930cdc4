// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps passphrases and derived cipher keys out of the
// Go heap.
//
// A [Buffer] is an anonymous mmap region locked with mlock and marked
// MADV_DONTDUMP. Close zeroes it before unmapping. crypt.StretchPassphrase
// returns its key in a Buffer, and the paq command reads passphrase
// files straight into one with [ReadFromPath].
//
// Depends on golang.org/x/sys/unix and go.uber.org/multierr.
package secret
