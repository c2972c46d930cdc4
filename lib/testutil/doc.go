// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for paqkit packages.
//
// [RequireReceive] wraps a channel receive in a timeout so tests of
// the parallel compressor fail instead of hanging when a worker
// deadlocks. It is the only wall-clock timeout in the test suite.
//
// [Text], [Random] and [Float32s] build deterministic inputs with
// known compressibility. [WriteFile] and [ReadFile] handle fixture
// files in a per-test temporary directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no paqkit-internal dependencies.
package testutil
