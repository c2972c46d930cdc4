// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// paq compresses, inspects and encrypts files with the paqkit engine.
//
//	paq compress [-m method] [-t threads] [-o out] [file]
//	paq decompress [-o out] [file.paq]
//	paq size [-m method] [--bytes] [files]
//	paq list [--program] [file.paq]
//	paq hash [-a sha1|sha256|blake3] [files]
//	paq encrypt --passphrase-file path -o out file
//	paq decrypt --passphrase-file path -o out file
//
// Defaults for method, threads, checksums, log level and the
// passphrase file come from the config file named by --config or
// PAQ_CONFIG. Logs go to stderr as slog text.
package main
