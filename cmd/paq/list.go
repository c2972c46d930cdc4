// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/codec"
	"github.com/paqkit/paqkit/lib/engine"
)

func (a *app) runList(args []string) error {
	var (
		common  commonFlags
		program bool
	)
	flagSet := newFlagSet("list", &common)
	flagSet.BoolVar(&program, "program", false, "print each block's program in CBOR diagnostic notation")
	if ok, err := a.parse(flagSet, &common, args); !ok {
		return err
	}
	if flagSet.NArg() > 1 {
		return fmt.Errorf("list takes at most one input, got %d", flagSet.NArg())
	}
	input := flagSet.Arg(0)

	reader, closeInput, err := a.openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()

	decompressor := engine.NewDecompressor()
	if err := decompressor.SetInput(bridge.FromReader(bufio.NewReader(reader))); err != nil {
		return err
	}
	if err := decompressor.SetVerify(true); err != nil {
		return err
	}
	var counter bridge.Counter
	if err := decompressor.SetOutput(&counter); err != nil {
		return err
	}

	out := bufio.NewWriter(a.stdout)
	defer out.Flush()

	var total uint64
	for block := 0; ; block++ {
		found, memory, err := decompressor.FindBlock()
		if err != nil {
			return err
		}
		if !found {
			break
		}
		fmt.Fprintf(out, "block %d: method %s, memory %s\n",
			block, decompressor.Program(), humanize.Bytes(uint64(memory)))
		if program {
			encoded, err := decompressor.Program().Encode()
			if err != nil {
				return err
			}
			diagnostic, err := codec.Diagnose(encoded)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  program %s\n", diagnostic)
		}

		for {
			var filename, comment bytes.Buffer
			found, err := decompressor.FindFilename(&filename)
			if err != nil {
				return err
			}
			if !found {
				break
			}
			if err := decompressor.ReadComment(&comment); err != nil {
				return err
			}
			if _, err := decompressor.Decompress(-1); err != nil {
				return err
			}
			trailer, err := decompressor.ReadSegmentEnd()
			if err != nil {
				return err
			}

			checksum := "no checksum"
			if trailer[0] == 1 {
				checksum = fmt.Sprintf("sha1 %x", trailer[1:])
			}
			size := decompressor.DecodedSize()
			total += size
			fmt.Fprintf(out, "  segment %q %s, %s", filename.String(), humanize.Bytes(size), checksum)
			if comment.Len() > 0 {
				fmt.Fprintf(out, ", comment %q", comment.String())
			}
			fmt.Fprintln(out)
		}
	}
	if skipped := decompressor.Skipped(); skipped > 0 {
		fmt.Fprintf(out, "skipped %d bytes outside blocks\n", skipped)
	}
	fmt.Fprintf(out, "total %s\n", humanize.Bytes(total))
	return nil
}
