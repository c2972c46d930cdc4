// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/paqkit/paqkit/lib/config"
	"github.com/paqkit/paqkit/lib/version"
)

func main() {
	app := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := app.run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the process streams so commands can run against buffers
// in tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	config *config.Config
	logger *slog.Logger
}

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{"compress", "Compress a file or stdin", (*app).runCompress},
	{"decompress", "Decompress a file or stdin", (*app).runDecompress},
	{"size", "Report compressed sizes without writing output", (*app).runSize},
	{"list", "List the blocks and segments of a compressed file", (*app).runList},
	{"hash", "Print SHA-1, SHA-256 or BLAKE3 digests", (*app).runHash},
	{"encrypt", "Encrypt a file with a passphrase", (*app).runEncrypt},
	{"decrypt", "Decrypt a file written by encrypt", (*app).runDecrypt},
}

func (a *app) run(args []string) error {
	if len(args) < 1 {
		a.printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := args[0]
	switch subcommand {
	case "version", "--version":
		fmt.Fprintf(a.stdout, "paq %s\n", version.Full())
		return nil
	case "-h", "--help", "help":
		a.printUsage()
		return nil
	}
	for _, command := range commands {
		if command.name == subcommand {
			return command.run(a, args[1:])
		}
	}
	a.printUsage()
	return fmt.Errorf("unknown subcommand: %q", subcommand)
}

func (a *app) printUsage() {
	fmt.Fprintf(a.stderr, "Usage: paq <subcommand> [flags] [files]\n\nSubcommands:\n")
	for _, command := range commands {
		fmt.Fprintf(a.stderr, "  %-11s %s\n", command.name, command.summary)
	}
	fmt.Fprintf(a.stderr, "  %-11s %s\n\nRun 'paq <subcommand> --help' for subcommand flags.\n",
		"version", "Print version information")
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	verbose    bool
}

func newFlagSet(name string, common *commonFlags) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("paq "+name, pflag.ContinueOnError)
	flagSet.StringVar(&common.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVarP(&common.verbose, "verbose", "v", false, "log at debug level")
	return flagSet
}

// parse parses flags, then loads the config and builds the logger. It
// returns false with a nil error when --help was requested.
func (a *app) parse(flagSet *pflag.FlagSet, common *commonFlags, args []string) (bool, error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}

	cfg, err := config.Resolve(common.configPath)
	if err != nil {
		return false, err
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("invalid config: %w", err)
	}
	a.config = cfg

	level := cfg.SlogLevel()
	if common.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return true, nil
}
