// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/paqkit/paqkit/lib/digest"
)

func (a *app) runHash(args []string) error {
	var (
		common    commonFlags
		algorithm string
	)
	flagSet := newFlagSet("hash", &common)
	flagSet.StringVarP(&algorithm, "algorithm", "a", string(digest.AlgorithmSHA1), "sha1, sha256 or blake3")
	if ok, err := a.parse(flagSet, &common, args); !ok {
		return err
	}

	inputs := flagSet.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	for _, input := range inputs {
		hasher := digest.New(digest.Algorithm(algorithm))
		if hasher == nil {
			return fmt.Errorf("unknown algorithm %q", algorithm)
		}
		reader, closeInput, err := a.openInput(input)
		if err != nil {
			return err
		}
		_, err = io.Copy(hasher, reader)
		closeInput()
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(input), err)
		}
		fmt.Fprintf(a.stdout, "%x  %s\n", hasher.Sum(nil), input)
	}
	return nil
}
