// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"
)

// Info returns a formatted version string for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit(), dirty, BuildTime)
}

// Full returns Info plus the Go version, platform and the codec
// library versions linked into the binary.
func Full() string {
	text := fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	for _, dependency := range Codecs() {
		text += fmt.Sprintf("\n  %s %s", dependency.Path, dependency.Version)
	}
	return text
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Dependency is one linked module.
type Dependency struct {
	Path    string
	Version string
}

var codecModules = map[string]bool{
	"github.com/klauspost/compress": true,
	"github.com/pierrec/lz4/v4":     true,
	"github.com/golang/snappy":      true,
	"github.com/ulikunitz/xz":       true,
}

// Codecs lists the codec modules in the build, or nothing when build
// information is unavailable, as in tests.
func Codecs() []Dependency {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	var dependencies []Dependency
	for _, module := range info.Deps {
		if codecModules[module.Path] {
			dependencies = append(dependencies, Dependency{Path: module.Path, Version: module.Version})
		}
	}
	return dependencies
}

// commit falls back to the VCS revision recorded by the go tool when
// GitCommit was not injected.
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	return GitCommit
}

// Print writes "<binary> <Info>" to stdout for --version handling.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, Info())
}
