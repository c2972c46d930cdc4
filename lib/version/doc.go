// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the paq
// binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/paqkit/paqkit/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is not injected, [Info] uses the VCS revision the go
// tool stamped into the binary, if any. [Full] also lists the codec
// module versions linked in, which determine the exact compressed
// bytes a build produces.
package version
