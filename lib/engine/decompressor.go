// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"hash"
	"io"

	"github.com/paqkit/paqkit/lib/backend"
	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/fault"
	"github.com/paqkit/paqkit/lib/method"
)

type decompressorState uint8

const (
	decompressorUnbound decompressorState = iota
	decompressorSearching
	decompressorBlock
	decompressorFilename
	decompressorData
	decompressorSegmentEnd
)

func (s decompressorState) String() string {
	switch s {
	case decompressorUnbound:
		return "unbound"
	case decompressorSearching:
		return "between blocks"
	case decompressorBlock:
		return "between segments"
	case decompressorFilename:
		return "reading segment header"
	case decompressorData:
		return "decoding"
	case decompressorSegmentEnd:
		return "at segment end"
	default:
		return "invalid"
	}
}

// Decompressor reads blocks of segments from one input for its whole
// life. The call sequence is
//
//	SetInput, then while FindBlock reports a block:
//	    while FindFilename reports a segment:
//	        ReadComment, SetOutput, Decompress..., ReadSegmentEnd
//
// Like Compressor, every method is a failure boundary and a failed
// decompressor should be discarded.
type Decompressor struct {
	channel fault.Channel
	state   decompressorState

	input  bridge.Source
	output bridge.Writer

	program method.Program
	skipped uint64

	payload  *chunkReader
	decoder  io.ReadCloser
	pending  []byte
	loaded   bool
	complete bool
	scratch  []byte

	verify  bool
	hasher  hash.Hash
	decoded uint64
}

// NewDecompressor returns an unbound decompressor.
func NewDecompressor() *Decompressor {
	return &Decompressor{}
}

// LastError returns the message of the failure from the most recent
// call, if that call failed.
func (d *Decompressor) LastError() (string, bool) {
	return d.channel.Last()
}

func (d *Decompressor) expect(operation string, states ...decompressorState) error {
	for _, state := range states {
		if d.state == state {
			return nil
		}
	}
	return fault.New(fault.KindUsage, "%s called while %s", operation, d.state)
}

// SetInput binds the compressed stream. It can only be called once.
func (d *Decompressor) SetInput(source bridge.Source) error {
	return d.channel.Run(fault.KindUsage, func() error {
		if err := d.expect("SetInput", decompressorUnbound); err != nil {
			return err
		}
		if source == nil {
			return fault.New(fault.KindUsage, "SetInput with a nil source")
		}
		d.input = source
		d.state = decompressorSearching
		return nil
	})
}

// SetOutput binds the sink for decoded bytes. A nil sink discards
// them. It may be changed between Decompress calls.
func (d *Decompressor) SetOutput(w bridge.Writer) error {
	return d.channel.Run(fault.KindUsage, func() error {
		d.output = w
		return nil
	})
}

// SetVerify makes ReadSegmentEnd compare a stored checksum against the
// SHA-1 of the decoded segment and fail on mismatch. It takes effect at
// the next ReadComment.
func (d *Decompressor) SetVerify(verify bool) error {
	return d.channel.Run(fault.KindUsage, func() error {
		d.verify = verify
		return nil
	})
}

// FindBlock advances to the next block header, skipping a locator tag
// and any unrelated bytes before it. It reports false at the end of the
// input. On success it returns an estimate of the memory, in bytes,
// needed to decode the block.
func (d *Decompressor) FindBlock() (found bool, memory float64, err error) {
	err = d.channel.Run(fault.KindMalformed, func() error {
		if err := d.expect("FindBlock", decompressorSearching); err != nil {
			return err
		}
		ok, err := d.scan()
		if err != nil || !ok {
			return err
		}

		length, err := binary.ReadUvarint(d.input)
		if err != nil {
			return truncated(err, "block header")
		}
		if length == 0 || length > maxProgram {
			return fault.New(fault.KindMalformed, "block program length %d outside [1,%d]", length, maxProgram)
		}
		encoded := make([]byte, length)
		if _, err := bridge.ReadFull(d.input, encoded); err != nil {
			return truncated(err, "block program")
		}
		program, err := method.Decode(encoded)
		if err != nil {
			return err
		}

		d.program = program
		d.state = decompressorBlock
		found, memory = true, program.Memory()
		return nil
	})
	return found, memory, err
}

// scan consumes input up to and including the next block magic.
func (d *Decompressor) scan() (bool, error) {
	window := make([]byte, 0, len(LocatorTag)+len(blockMagic))
	for {
		c, err := d.input.ReadByte()
		if err == io.EOF {
			d.skipped += uint64(len(window))
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if len(window) == cap(window) {
			copy(window, window[1:])
			window = window[:len(window)-1]
			d.skipped++
		}
		window = append(window, c)
		if !bytes.HasSuffix(window, blockMagic[:]) {
			continue
		}
		prefix := window[:len(window)-len(blockMagic)]
		if !bytes.Equal(prefix, LocatorTag[:]) {
			d.skipped += uint64(len(prefix))
		}
		return true, nil
	}
}

// Skipped returns how many input bytes FindBlock discarded that were
// neither a block nor a locator tag.
func (d *Decompressor) Skipped() uint64 { return d.skipped }

// Program returns the program of the current block.
func (d *Decompressor) Program() method.Program { return d.program }

// FindFilename advances to the next segment and copies its filename to
// w, which may be nil. It reports false at the end of the block.
func (d *Decompressor) FindFilename(w io.ByteWriter) (found bool, err error) {
	err = d.channel.Run(fault.KindMalformed, func() error {
		if err := d.expect("FindFilename", decompressorBlock); err != nil {
			return err
		}
		marker, err := d.input.ReadByte()
		if err != nil {
			return truncated(err, "block")
		}
		switch marker {
		case blockEnd:
			d.state = decompressorSearching
			return nil
		case segmentStart:
		default:
			return fault.New(fault.KindMalformed, "expected segment or block end, found 0x%02x", marker)
		}
		if err := readString(d.input, w, "segment filename"); err != nil {
			return err
		}
		d.state = decompressorFilename
		found = true
		return nil
	})
	return found, err
}

// ReadComment copies the segment comment to w, which may be nil, and
// positions the decompressor at the segment payload.
func (d *Decompressor) ReadComment(w io.ByteWriter) error {
	return d.channel.Run(fault.KindMalformed, func() error {
		if err := d.expect("ReadComment", decompressorFilename); err != nil {
			return err
		}
		if err := readString(d.input, w, "segment comment"); err != nil {
			return err
		}
		reserved, err := d.input.ReadByte()
		if err != nil {
			return truncated(err, "segment header")
		}
		if reserved != 0 {
			return fault.New(fault.KindMalformed, "segment header reserved byte is 0x%02x", reserved)
		}

		d.payload = &chunkReader{in: d.input}
		d.decoder = nil
		d.pending = nil
		d.loaded = false
		d.complete = false
		d.decoded = 0
		d.hasher = nil
		if d.verify {
			d.hasher = sha1.New()
		}
		d.state = decompressorData
		return nil
	})
}

// Decompress decodes up to n bytes of the segment to the output, or
// the rest of the segment when n is negative. It reports whether
// decoded data remains.
func (d *Decompressor) Decompress(n int) (more bool, err error) {
	err = d.channel.Run(fault.KindMalformed, func() error {
		if d.state == decompressorSegmentEnd {
			return nil
		}
		if err := d.expect("Decompress", decompressorData); err != nil {
			return err
		}
		if d.program.Streamable() {
			more, err = d.decompressStream(n)
		} else {
			more, err = d.decompressWhole(n)
		}
		return err
	})
	return more, err
}

func (d *Decompressor) decompressStream(n int) (bool, error) {
	if d.decoder == nil {
		decoder, err := backend.NewDecoder(d.program, d.payload)
		if err != nil {
			return false, fault.Wrap(fault.KindMalformed, err, "segment payload")
		}
		d.decoder = decoder
	}
	if d.scratch == nil {
		d.scratch = make([]byte, maxChunk)
	}

	remaining := n
	for remaining != 0 {
		buffer := d.scratch
		if remaining > 0 && remaining < len(buffer) {
			buffer = buffer[:remaining]
		}
		got, readErr := d.decoder.Read(buffer)
		if got > 0 {
			if err := d.emit(buffer[:got]); err != nil {
				return false, err
			}
			if remaining > 0 {
				remaining -= got
			}
		}
		if readErr == io.EOF {
			return false, d.finishStream()
		}
		if readErr != nil {
			return false, fault.Wrap(fault.KindMalformed, readErr, "%s decode", d.program.Codec)
		}
	}
	return true, nil
}

// finishStream consumes the payload terminator after the codec stream
// has ended. Payload bytes beyond the codec's own end mean corruption.
func (d *Decompressor) finishStream() error {
	d.decoder.Close()
	d.decoder = nil
	leftover, err := d.payload.drain()
	if err != nil {
		return err
	}
	if leftover > 0 {
		return fault.New(fault.KindMalformed, "%d bytes follow the end of the %s stream", leftover, d.program.Codec)
	}
	d.complete = true
	d.state = decompressorSegmentEnd
	return nil
}

func (d *Decompressor) decompressWhole(n int) (bool, error) {
	if !d.loaded {
		body, err := io.ReadAll(d.payload)
		if err != nil {
			return false, err
		}
		if len(body) == 0 {
			return false, fault.New(fault.KindMalformed, "empty whole-segment payload")
		}
		switch body[0] {
		case wholeRaw:
			d.pending = body[1:]
		case wholeCoded:
			decoded, err := backend.Decode(d.program, body[1:])
			if err != nil {
				return false, fault.Wrap(fault.KindMalformed, err, "segment payload")
			}
			d.pending, err = backend.Unpreprocess(d.program.Preprocess, decoded)
			if err != nil {
				return false, fault.Wrap(fault.KindMalformed, err, "segment payload")
			}
		default:
			return false, fault.New(fault.KindMalformed, "unknown whole-segment flag 0x%02x", body[0])
		}
		d.loaded = true
	}

	take := len(d.pending)
	if n >= 0 && n < take {
		take = n
	}
	if err := d.emit(d.pending[:take]); err != nil {
		return false, err
	}
	d.pending = d.pending[take:]
	if len(d.pending) > 0 {
		return true, nil
	}
	d.pending = nil
	d.complete = true
	d.state = decompressorSegmentEnd
	return false, nil
}

func (d *Decompressor) emit(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	d.decoded += uint64(len(p))
	if d.hasher != nil {
		d.hasher.Write(p)
	}
	if d.output == nil {
		return nil
	}
	_, err := d.output.Write(p)
	return err
}

// ReadSegmentEnd reads the segment trailer. Undecoded payload is
// skipped. The result is TrailerSize bytes: 1 followed by the stored
// SHA-1, or all zero when the segment carries no checksum. With
// verification enabled, a stored checksum that does not match a fully
// decoded segment is a malformed-input failure.
func (d *Decompressor) ReadSegmentEnd() (trailer [TrailerSize]byte, err error) {
	err = d.channel.Run(fault.KindMalformed, func() error {
		if err := d.expect("ReadSegmentEnd", decompressorData, decompressorSegmentEnd); err != nil {
			return err
		}
		if d.state == decompressorData {
			if d.decoder != nil {
				d.decoder.Close()
				d.decoder = nil
			}
			if _, err := d.payload.drain(); err != nil {
				return err
			}
			d.pending = nil
		}
		d.payload = nil

		marker, err := d.input.ReadByte()
		if err != nil {
			return truncated(err, "segment trailer")
		}
		switch marker {
		case trailerNone:
		case trailerChecksum:
			trailer[0] = 1
			if _, err := bridge.ReadFull(d.input, trailer[1:]); err != nil {
				return truncated(err, "segment checksum")
			}
		default:
			return fault.New(fault.KindMalformed, "bad segment trailer marker 0x%02x", marker)
		}

		if d.hasher != nil && d.complete && trailer[0] == 1 {
			var computed [20]byte
			d.hasher.Sum(computed[:0])
			if !bytes.Equal(computed[:], trailer[1:]) {
				return fault.New(fault.KindMalformed, "segment checksum mismatch: stored %x, computed %x", trailer[1:], computed)
			}
		}
		d.state = decompressorBlock
		return nil
	})
	return trailer, err
}

// Buffered reports decoded bytes not yet delivered to the caller: those
// held by the output sink plus any decoded but not yet written.
func (d *Decompressor) Buffered() int {
	buffered := len(d.pending)
	if sink, ok := d.output.(interface{ Buffered() int }); ok {
		buffered += sink.Buffered()
	}
	return buffered
}

// DecodedSize returns the bytes decoded in the current segment so far.
func (d *Decompressor) DecodedSize() uint64 { return d.decoded }
