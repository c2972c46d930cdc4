// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/paqkit/paqkit/lib/method"
	"github.com/paqkit/paqkit/lib/paq"
)

// methodFlags are the compression flags that default from the config.
type methodFlags struct {
	method     string
	threads    int
	noChecksum bool
	comment    string
}

func (m *methodFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&m.method, "method", "m", "", "method descriptor: 1-5 or x/s/i/0 form (default from config)")
	flagSet.IntVarP(&m.threads, "threads", "t", -1, "compression workers, 0 for one per CPU (default from config)")
	flagSet.BoolVar(&m.noChecksum, "no-checksum", false, "omit segment SHA-1 checksums")
	flagSet.StringVar(&m.comment, "comment", "", "segment comment")
}

// resolve fills unset flags from the config and validates the method.
func (m *methodFlags) resolve(a *app) (paq.Options, error) {
	if m.method == "" {
		m.method = a.config.Method
	}
	if _, err := method.Compile(m.method); err != nil {
		return paq.Options{}, err
	}
	threads := a.config.WorkerCount()
	switch {
	case m.threads > 0:
		threads = m.threads
	case m.threads == 0:
		threads = runtime.NumCPU()
	}
	return paq.Options{
		Comment:    m.comment,
		NoChecksum: m.noChecksum || !a.config.Checksum,
		Threads:    threads,
		Logger:     a.logger,
	}, nil
}

func (a *app) runCompress(args []string) error {
	var (
		common commonFlags
		flags  methodFlags
		output string
		force  bool
		noName bool
	)
	flagSet := newFlagSet("compress", &common)
	flags.register(flagSet)
	flagSet.StringVarP(&output, "output", "o", "", "output path, - for stdout (default: input + .paq)")
	flagSet.BoolVarP(&force, "force", "f", false, "overwrite output and allow writing to a terminal")
	flagSet.BoolVar(&noName, "no-name", false, "do not store the input file name")
	if ok, err := a.parse(flagSet, &common, args); !ok {
		return err
	}
	if flagSet.NArg() > 1 {
		return fmt.Errorf("compress takes at most one input, got %d", flagSet.NArg())
	}
	input := flagSet.Arg(0)

	opts, err := flags.resolve(a)
	if err != nil {
		return err
	}
	if input != "" && input != "-" && !noName {
		opts.Filename = filepath.Base(input)
	}
	destination, err := outputPath(output, input, withExtension)
	if err != nil {
		return err
	}

	reader, closeInput, err := a.openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()
	writer, closeOutput, err := a.createOutput(destination, force)
	if err != nil {
		return err
	}

	start := time.Now()
	written, err := paq.CompressStream(reader, writer, flags.method, opts)
	if err = multierr.Append(err, closeOutput()); err != nil {
		return err
	}
	a.logger.Info("compressed",
		"input", displayName(input),
		"output", destination,
		"method", flags.method,
		"size", humanize.Bytes(written),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func (a *app) runDecompress(args []string) error {
	var (
		common commonFlags
		output string
		force  bool
	)
	flagSet := newFlagSet("decompress", &common)
	flagSet.StringVarP(&output, "output", "o", "", "output path, - for stdout (default: input without .paq)")
	flagSet.BoolVarP(&force, "force", "f", false, "overwrite output and allow writing to a terminal")
	if ok, err := a.parse(flagSet, &common, args); !ok {
		return err
	}
	if flagSet.NArg() > 1 {
		return fmt.Errorf("decompress takes at most one input, got %d", flagSet.NArg())
	}
	input := flagSet.Arg(0)

	destination, err := outputPath(output, input, withoutExtension)
	if err != nil {
		return err
	}
	reader, closeInput, err := a.openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()
	writer, closeOutput, err := a.createOutput(destination, force)
	if err != nil {
		return err
	}

	err = paq.DecompressStream(reader, writer)
	if err = multierr.Append(err, closeOutput()); err != nil {
		return err
	}
	a.logger.Debug("decompressed", "input", displayName(input), "output", destination)
	return nil
}

func (a *app) runSize(args []string) error {
	var (
		common commonFlags
		flags  methodFlags
		exact  bool
	)
	flagSet := newFlagSet("size", &common)
	flags.register(flagSet)
	flagSet.BoolVar(&exact, "bytes", false, "print sizes in bytes instead of human units")
	if ok, err := a.parse(flagSet, &common, args); !ok {
		return err
	}
	opts, err := flags.resolve(a)
	if err != nil {
		return err
	}

	inputs := flagSet.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	format := func(n uint64) string {
		if exact {
			return fmt.Sprint(n)
		}
		return humanize.Bytes(n)
	}

	for _, input := range inputs {
		reader, closeInput, err := a.openInput(input)
		if err != nil {
			return err
		}
		counted := &countingReader{reader: reader}
		perFile := opts
		if input != "-" {
			perFile.Filename = filepath.Base(input)
		}
		size, err := paq.CompressSizeStream(counted, flags.method, perFile)
		closeInput()
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(input), err)
		}

		ratio := 0.0
		if counted.count > 0 {
			ratio = float64(size) / float64(counted.count)
		}
		fmt.Fprintf(a.stdout, "%s\t%s -> %s\t%.3f\n",
			displayName(input), format(counted.count), format(size), ratio)
	}
	return nil
}

func displayName(input string) string {
	if input == "" || input == "-" {
		return "(stdin)"
	}
	return input
}
