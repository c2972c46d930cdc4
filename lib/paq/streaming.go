// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package paq

import (
	"io"
	"strings"

	"go.uber.org/multierr"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/engine"
	"github.com/paqkit/paqkit/lib/fault"
	"github.com/paqkit/paqkit/lib/method"
)

// StreamingCompressor accepts input one byte at a time into a single
// open segment and reports how much output that has produced so far.
// It only accepts streamable methods: presets 1 to 3 and explicit
// descriptors without segment preprocessing.
//
// Codecs buffer internally, so Bits grows in steps rather than per
// byte. A StreamingCompressor is not safe for concurrent use.
type StreamingCompressor struct {
	compressor *engine.Compressor
	sink       *bridge.Sink
	single     [1]byte
	finished   bool
}

// NewStreamingCompressor writes the locator tag and block header to w
// and opens the segment. A nil w discards the output and only counts
// it.
func NewStreamingCompressor(descriptor string, w io.Writer) (*StreamingCompressor, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, fault.New(fault.KindMalformed, "method descriptor is empty")
	}
	program, err := method.Compile(descriptor)
	if err != nil {
		return nil, err
	}
	encoded, err := program.Encode()
	if err != nil {
		return nil, err
	}

	s := &StreamingCompressor{compressor: engine.NewCompressor()}
	var out bridge.Writer = new(bridge.Counter)
	if w != nil {
		s.sink = bridge.NewSink(w)
		out = s.sink
	}

	steps := []func() error{
		func() error { return s.compressor.SetOutput(out) },
		func() error { return s.compressor.SetStreaming(true) },
		func() error { return s.compressor.SetVerify(true) },
		s.compressor.WriteTag,
		func() error { return s.compressor.StartBlockProgram(encoded) },
		func() error { return s.compressor.StartSegment("", "") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Push compresses one byte.
func (s *StreamingCompressor) Push(b byte) error {
	s.single[0] = b
	_, err := s.Write(s.single[:])
	return err
}

// Write compresses p.
func (s *StreamingCompressor) Write(p []byte) (int, error) {
	if s.finished {
		return 0, fault.New(fault.KindUsage, "write after Finish")
	}
	return s.compressor.Write(p)
}

// Bits returns the number of output bits produced so far, including
// the tag and block header.
func (s *StreamingCompressor) Bits() uint64 { return s.compressor.Bits() }

// Size returns Bits in bytes.
func (s *StreamingCompressor) Size() uint64 { return s.compressor.Size() }

// Finish closes the segment with a stored SHA-1 and ends the block.
// The output is a complete stream afterwards.
func (s *StreamingCompressor) Finish() error {
	if s.finished {
		return nil
	}
	s.finished = true
	if _, _, err := s.compressor.EndSegmentChecksum(true); err != nil {
		return err
	}
	return s.compressor.EndBlock()
}

// Close finishes the stream if needed and flushes the writer.
func (s *StreamingCompressor) Close() error {
	err := s.Finish()
	if s.sink != nil {
		err = multierr.Append(err, s.sink.Close())
	}
	return err
}
