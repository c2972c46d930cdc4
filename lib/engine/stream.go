// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"crypto/sha1"
	"io"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/fault"
	"github.com/paqkit/paqkit/lib/method"
)

// Options configures a whole-stream compression.
type Options struct {
	// Method is a method descriptor; see method.Parse.
	Method string

	// Filename and Comment label the first segment of the first
	// block. Later blocks carry empty labels.
	Filename string
	Comment  string

	// Checksum stores the SHA-1 of every segment in its trailer.
	Checksum bool
}

// Compress reads in to the end and writes it to out as a sequence of
// independent blocks of method.BlockSize(opts.Method) input bytes, one
// segment per block. Empty input produces no output.
func Compress(in bridge.Source, out bridge.Writer, opts Options) error {
	program, err := method.Compile(opts.Method)
	if err != nil {
		return err
	}

	var block []byte
	for index := 0; ; index++ {
		var readErr error
		block, readErr = bridge.ReadBlock(in, block, program.BlockSize())
		if readErr != nil && readErr != io.EOF {
			return fault.From(readErr, fault.KindCallback)
		}
		if len(block) > 0 {
			segment := opts
			if index > 0 {
				segment.Filename, segment.Comment = "", ""
			}
			if err := compressBlock(block, out, program, segment); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
	}
}

// CompressBlock writes block to out as one complete block holding one
// segment.
func CompressBlock(block []byte, out bridge.Writer, opts Options) error {
	program, err := method.Compile(opts.Method)
	if err != nil {
		return err
	}
	return compressBlock(block, out, program, opts)
}

func compressBlock(block []byte, out bridge.Writer, program method.Program, opts Options) error {
	compressor := NewCompressor()
	if err := compressor.SetOutput(out); err != nil {
		return err
	}
	if err := compressor.channel.Run(fault.KindMalformed, func() error {
		return compressor.startBlock(program)
	}); err != nil {
		return err
	}
	if err := compressor.StartSegment(opts.Filename, opts.Comment); err != nil {
		return err
	}
	if err := compressor.SetInput(bytes.NewReader(block)); err != nil {
		return err
	}
	if _, err := compressor.Compress(-1); err != nil {
		return err
	}

	var checksum *[20]byte
	if opts.Checksum {
		sum := sha1.Sum(block)
		checksum = &sum
	}
	if err := compressor.EndSegment(checksum); err != nil {
		return err
	}
	return compressor.EndBlock()
}

// Decompress decodes every block in in and writes the concatenated
// segment contents to out, verifying stored checksums. Input holding no
// block at all is an error unless it is empty.
func Decompress(in bridge.Source, out bridge.Writer) error {
	decompressor := NewDecompressor()
	if err := decompressor.SetInput(in); err != nil {
		return err
	}
	if err := decompressor.SetVerify(true); err != nil {
		return err
	}
	if err := decompressor.SetOutput(out); err != nil {
		return err
	}

	blocks := 0
	for {
		found, _, err := decompressor.FindBlock()
		if err != nil {
			return err
		}
		if !found {
			break
		}
		blocks++
		for {
			found, err := decompressor.FindFilename(nil)
			if err != nil {
				return err
			}
			if !found {
				break
			}
			if err := decompressor.ReadComment(nil); err != nil {
				return err
			}
			if _, err := decompressor.Decompress(-1); err != nil {
				return err
			}
			if _, err := decompressor.ReadSegmentEnd(); err != nil {
				return err
			}
		}
	}

	if blocks == 0 && decompressor.Skipped() > 0 {
		return fault.New(fault.KindMalformed, "no compressed block in %d bytes of input", decompressor.Skipped())
	}
	return nil
}
