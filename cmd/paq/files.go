// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/term"
)

// archiveExtension is appended by compress and removed by decompress.
const archiveExtension = ".paq"

// openInput opens path, or returns stdin for "" and "-". The close
// function is always safe to call.
func (a *app) openInput(path string) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return a.stdin, func() error { return nil }, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return file, file.Close, nil
}

// outputPath picks the destination: the explicit flag, stdout for
// stdin input, or the input name with transform applied.
func outputPath(flag, input string, transform func(string) (string, error)) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if input == "" || input == "-" {
		return "-", nil
	}
	return transform(input)
}

func withExtension(input string) (string, error) {
	return input + archiveExtension, nil
}

func withoutExtension(input string) (string, error) {
	if !strings.HasSuffix(input, archiveExtension) || len(input) == len(archiveExtension) {
		return "", fmt.Errorf("%s does not end in %s; use --output", input, archiveExtension)
	}
	return strings.TrimSuffix(input, archiveExtension), nil
}

// createOutput creates path, or returns stdout for "-". Binary output
// to a terminal is refused unless force is set. An existing file is
// only replaced with force.
func (a *app) createOutput(path string, force bool) (io.Writer, func() error, error) {
	if path == "-" {
		if file, ok := a.stdout.(*os.File); ok && !force && term.IsTerminal(int(file.Fd())) {
			return nil, nil, fmt.Errorf("refusing to write binary data to a terminal (use --force or --output)")
		}
		return a.stdout, func() error { return nil }, nil
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return file, func() error {
		return multierr.Append(file.Sync(), file.Close())
	}, nil
}
