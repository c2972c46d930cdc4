// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads defaults for the paq command.
//
// The file is named by the --config flag or the PAQ_CONFIG environment
// variable; with neither, [Default] applies. There is no discovery of
// files in standard locations. YAML is the primary format; files ending
// in .json or .jsonc are read as JSON with comments and trailing
// commas allowed.
//
// A file may define named profiles (for example "fast" and "archive")
// and select one with the profile key; the selected profile's fields
// override the base values.
package config
