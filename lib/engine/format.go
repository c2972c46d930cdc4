// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/fault"
)

// Container layout:
//
//	tag     13-byte locator tag (optional, before any block)
//	block   "zPQ" 0x01 uvarint(len(program)) program
//	        segment*
//	        0xFF
//	segment 0x01 filename 0x00 comment 0x00 0x00
//	        chunk* 0x00          chunk = uvarint(n > 0) followed by n payload bytes
//	        0xFD sha1[20] | 0xFE
//
// Payload chunking makes every segment self-delimiting, so a decoder
// never reads past the end of its segment whatever the codec does.

// LocatorTag marks the start of a block inside unrelated data (an
// executable stub, a concatenated stream). A decompressor skips it.
var LocatorTag = [13]byte{0x37, 0x6b, 0x53, 0x74, 0xa0, 0x31, 0x83, 0xd3, 0x8c, 0xb2, 0x28, 0xb0, 0xd3}

var blockMagic = [4]byte{'z', 'P', 'Q', 0x01}

const (
	segmentStart    = 0x01
	blockEnd        = 0xFF
	trailerChecksum = 0xFD
	trailerNone     = 0xFE

	// maxChunk bounds one payload chunk. The writer emits chunks of
	// exactly this size except the last.
	maxChunk = 64 << 10

	// maxProgram bounds the program bytes in a block header.
	maxProgram = 1 << 12

	// TrailerSize is the length of a segment trailer as reported by
	// ReadSegmentEnd: a presence byte followed by a SHA-1 digest.
	TrailerSize = 21
)

// countingWriter tracks how many bytes the compressor has handed to
// its sink.
type countingWriter struct {
	w     bridge.Writer
	count uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += uint64(n)
	return n, err
}

func (c *countingWriter) WriteByte(b byte) error {
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	c.count++
	return nil
}

// chunkWriter frames an encoded payload into length-prefixed chunks.
type chunkWriter struct {
	out    io.Writer
	buffer []byte
	header [binary.MaxVarintLen64]byte
}

func newChunkWriter(out io.Writer) *chunkWriter {
	return &chunkWriter{out: out, buffer: make([]byte, 0, maxChunk)}
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := copy(w.buffer[len(w.buffer):cap(w.buffer)], p)
		w.buffer = w.buffer[:len(w.buffer)+n]
		p = p[n:]
		written += n
		if len(w.buffer) == cap(w.buffer) {
			if err := w.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (w *chunkWriter) flush() error {
	if len(w.buffer) == 0 {
		return nil
	}
	length := binary.PutUvarint(w.header[:], uint64(len(w.buffer)))
	if _, err := w.out.Write(w.header[:length]); err != nil {
		return err
	}
	if _, err := w.out.Write(w.buffer); err != nil {
		return err
	}
	w.buffer = w.buffer[:0]
	return nil
}

// Close emits the final partial chunk and the zero-length terminator.
func (w *chunkWriter) Close() error {
	if err := w.flush(); err != nil {
		return err
	}
	_, err := w.out.Write([]byte{0})
	return err
}

// chunkReader is the inverse of chunkWriter. It returns io.EOF at the
// terminator and a malformed fault if the input ends first.
type chunkReader struct {
	in        bridge.Source
	remaining uint64
	done      bool
}

func (r *chunkReader) next() error {
	length, err := binary.ReadUvarint(r.in)
	if err != nil {
		return truncated(err, "payload chunk header")
	}
	if length == 0 {
		r.done = true
		return io.EOF
	}
	if length > maxChunk {
		return fault.New(fault.KindMalformed, "payload chunk of %d bytes exceeds %d", length, maxChunk)
	}
	r.remaining = length
	return nil
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.remaining == 0 {
		if err := r.next(); err != nil {
			return 0, err
		}
	}
	if uint64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.in.Read(p)
	r.remaining -= uint64(n)
	if err != nil && n == 0 {
		return 0, truncated(err, "payload chunk")
	}
	return n, nil
}

func (r *chunkReader) ReadByte() (byte, error) {
	if r.done {
		return 0, io.EOF
	}
	if r.remaining == 0 {
		if err := r.next(); err != nil {
			return 0, err
		}
	}
	c, err := r.in.ReadByte()
	if err != nil {
		return 0, truncated(err, "payload chunk")
	}
	r.remaining--
	return c, nil
}

// drain discards the rest of the payload and reports how many bytes it
// skipped.
func (r *chunkReader) drain() (uint64, error) {
	var skipped uint64
	scratch := make([]byte, 4096)
	for {
		n, err := r.Read(scratch)
		skipped += uint64(n)
		if err == io.EOF {
			return skipped, nil
		}
		if err != nil {
			return skipped, err
		}
	}
}

// truncated converts an end of input in the middle of a structure into
// a malformed fault. Callback faults pass through unchanged.
func truncated(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fault.New(fault.KindMalformed, "unexpected end of input in %s", what)
	}
	return fault.From(err, fault.KindMalformed)
}

// readString copies bytes up to and excluding a NUL into w, which may
// be nil. Length is unbounded.
func readString(in bridge.Source, w io.ByteWriter, what string) error {
	for {
		c, err := in.ReadByte()
		if err != nil {
			return truncated(err, what)
		}
		if c == 0 {
			return nil
		}
		if w != nil {
			if err := w.WriteByte(c); err != nil {
				return err
			}
		}
	}
}
