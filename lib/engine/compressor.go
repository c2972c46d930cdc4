// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"hash"
	"io"
	"strings"

	"github.com/paqkit/paqkit/lib/backend"
	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/fault"
	"github.com/paqkit/paqkit/lib/method"
)

type compressorState uint8

const (
	compressorUnbound compressorState = iota
	compressorBlockReady
	compressorSegmentReady
	compressorCompressing
)

func (s compressorState) String() string {
	switch s {
	case compressorUnbound:
		return "unbound"
	case compressorBlockReady:
		return "block ready"
	case compressorSegmentReady:
		return "segment ready"
	case compressorCompressing:
		return "compressing"
	default:
		return "invalid"
	}
}

// Compressor writes blocks of segments to one output for its whole
// life. The call sequence is
//
//	SetOutput, then for each block:
//	    StartBlockLevel | StartBlockMethod | StartBlockProgram
//	    for each segment: StartSegment, Compress..., EndSegment | EndSegmentChecksum
//	    EndBlock
//
// Every method is a failure boundary: faults inside the call, including
// panics from a codec, come back as a *fault.Error and their message is
// kept for LastError. After a failure the compressor should be
// discarded.
//
// A Compressor is not safe for concurrent use.
type Compressor struct {
	channel fault.Channel
	state   compressorState

	out   *countingWriter
	input bridge.Source

	program   method.Program
	streaming bool

	chunks  *chunkWriter
	encoder io.WriteCloser
	whole   *bytes.Buffer
	scratch []byte

	verify    bool
	hasher    hash.Hash
	inputSize uint64
	checksum  [20]byte
}

// NewCompressor returns an unbound compressor.
func NewCompressor() *Compressor {
	return &Compressor{}
}

// LastError returns the message of the failure from the most recent
// call, if that call failed.
func (c *Compressor) LastError() (string, bool) {
	return c.channel.Last()
}

func (c *Compressor) expect(operation string, states ...compressorState) error {
	for _, state := range states {
		if c.state == state {
			return nil
		}
	}
	return fault.New(fault.KindUsage, "%s called while %s", operation, c.state)
}

// SetOutput binds the sink that receives the compressed stream. It can
// only be called once.
func (c *Compressor) SetOutput(w bridge.Writer) error {
	return c.channel.Run(fault.KindUsage, func() error {
		if err := c.expect("SetOutput", compressorUnbound); err != nil {
			return err
		}
		if w == nil {
			return fault.New(fault.KindUsage, "SetOutput with a nil writer")
		}
		c.out = &countingWriter{w: w}
		c.state = compressorBlockReady
		return nil
	})
}

// SetInput binds the source Compress reads from. It may be rebound
// between segments.
func (c *Compressor) SetInput(source bridge.Source) error {
	return c.channel.Run(fault.KindUsage, func() error {
		if c.state == compressorCompressing && c.input != nil {
			return fault.New(fault.KindUsage, "SetInput called while compressing")
		}
		c.input = source
		return nil
	})
}

// SetVerify enables SHA-1 hashing of segment input, needed by
// EndSegmentChecksum. It takes effect at the next StartSegment.
func (c *Compressor) SetVerify(verify bool) error {
	return c.channel.Run(fault.KindUsage, func() error {
		c.verify = verify
		return nil
	})
}

// SetStreaming restricts the compressor to programs that encode a
// segment without buffering it whole.
func (c *Compressor) SetStreaming(streaming bool) error {
	return c.channel.Run(fault.KindUsage, func() error {
		c.streaming = streaming
		return nil
	})
}

// WriteTag writes the locator tag. It is only valid between blocks.
func (c *Compressor) WriteTag() error {
	return c.channel.Run(fault.KindCallback, func() error {
		if err := c.expect("WriteTag", compressorBlockReady); err != nil {
			return err
		}
		_, err := c.out.Write(LocatorTag[:])
		return err
	})
}

// StartBlockLevel starts a block with preset level 1 through 5.
func (c *Compressor) StartBlockLevel(level int) error {
	return c.channel.Run(fault.KindMalformed, func() error {
		program, err := method.Level(level)
		if err != nil {
			return err
		}
		return c.startBlock(program)
	})
}

// StartBlockMethod starts a block with an explicit descriptor such as
// "x4.2l3". Presets go through StartBlockLevel.
func (c *Compressor) StartBlockMethod(descriptor string) error {
	return c.channel.Run(fault.KindMalformed, func() error {
		if method.IsPreset(descriptor) {
			return fault.New(fault.KindUsage, "StartBlockMethod(%q): presets go through StartBlockLevel", descriptor)
		}
		program, err := method.Compile(descriptor)
		if err != nil {
			return err
		}
		return c.startBlock(program)
	})
}

// StartBlockProgram starts a block with precompiled program bytes, as
// produced by method.Program.Encode.
func (c *Compressor) StartBlockProgram(encoded []byte) error {
	return c.channel.Run(fault.KindMalformed, func() error {
		program, err := method.Decode(encoded)
		if err != nil {
			return err
		}
		return c.startBlock(program)
	})
}

func (c *Compressor) startBlock(program method.Program) error {
	if err := c.expect("StartBlock", compressorBlockReady); err != nil {
		return err
	}
	if c.streaming && !program.Streamable() {
		return fault.New(fault.KindUsage,
			"method %s uses block preprocessing (args[1]=%d); not streamable", program, program.Preprocess)
	}
	encoded, err := program.Encode()
	if err != nil {
		return err
	}

	var header [len(blockMagic) + binary.MaxVarintLen64]byte
	length := copy(header[:], blockMagic[:])
	length += binary.PutUvarint(header[length:], uint64(len(encoded)))
	if _, err := c.out.Write(header[:length]); err != nil {
		return err
	}
	if _, err := c.out.Write(encoded); err != nil {
		return err
	}

	c.program = program
	c.state = compressorSegmentReady
	return nil
}

// StartSegment writes a segment header. Neither string may contain a
// NUL byte.
func (c *Compressor) StartSegment(filename, comment string) error {
	return c.channel.Run(fault.KindCallback, func() error {
		if err := c.expect("StartSegment", compressorSegmentReady); err != nil {
			return err
		}
		if strings.IndexByte(filename, 0) >= 0 || strings.IndexByte(comment, 0) >= 0 {
			return fault.New(fault.KindUsage, "segment filename and comment cannot contain NUL")
		}

		header := make([]byte, 0, len(filename)+len(comment)+4)
		header = append(header, segmentStart)
		header = append(header, filename...)
		header = append(header, 0)
		header = append(header, comment...)
		header = append(header, 0, 0)
		if _, err := c.out.Write(header); err != nil {
			return err
		}

		c.chunks = newChunkWriter(c.out)
		if c.program.Streamable() {
			encoder, err := backend.NewEncoder(c.program, c.chunks)
			if err != nil {
				return fault.Wrap(fault.KindResource, err, "starting segment")
			}
			c.encoder = encoder
		} else {
			if c.whole == nil {
				c.whole = new(bytes.Buffer)
			}
			c.whole.Reset()
		}

		c.inputSize = 0
		c.hasher = nil
		if c.verify {
			c.hasher = sha1.New()
		}
		c.state = compressorCompressing
		return nil
	})
}

// Compress reads up to n bytes from the bound input, or everything
// when n is negative, and encodes them. It reports false once the input
// has reported end of data. Stopping because n was reached reports true
// even if the input happens to be exhausted.
func (c *Compressor) Compress(n int) (more bool, err error) {
	err = c.channel.Run(fault.KindResource, func() error {
		if err := c.expect("Compress", compressorCompressing); err != nil {
			return err
		}
		if c.input == nil {
			return fault.New(fault.KindUsage, "Compress called without an input")
		}
		if c.scratch == nil {
			c.scratch = make([]byte, maxChunk)
		}

		remaining := n
		for remaining != 0 {
			buffer := c.scratch
			if remaining > 0 && remaining < len(buffer) {
				buffer = buffer[:remaining]
			}
			got, readErr := c.input.Read(buffer)
			if got > 0 {
				if err := c.consume(buffer[:got]); err != nil {
					return err
				}
				if remaining > 0 {
					remaining -= got
				}
			}
			if readErr == io.EOF {
				more = false
				return nil
			}
			if readErr != nil {
				return readErr
			}
		}
		more = true
		return nil
	})
	return more, err
}

// Write feeds p to the current segment directly, bypassing the bound
// input.
func (c *Compressor) Write(p []byte) (int, error) {
	err := c.channel.Run(fault.KindResource, func() error {
		if err := c.expect("Write", compressorCompressing); err != nil {
			return err
		}
		return c.consume(p)
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Compressor) consume(p []byte) error {
	c.inputSize += uint64(len(p))
	if c.hasher != nil {
		c.hasher.Write(p)
	}
	if c.encoder != nil {
		if _, err := c.encoder.Write(p); err != nil {
			return fault.Wrap(fault.KindResource, err, "%s encode", c.program.Codec)
		}
		return nil
	}
	c.whole.Write(p)
	return nil
}

// EndSegment finishes the segment. A non-nil checksum is stored in the
// trailer and reported by Checksum.
func (c *Compressor) EndSegment(checksum *[20]byte) error {
	return c.channel.Run(fault.KindResource, func() error {
		if err := c.expect("EndSegment", compressorCompressing); err != nil {
			return err
		}
		c.checksum = [20]byte{}
		if checksum != nil {
			c.checksum = *checksum
		}
		return c.endSegment(checksum)
	})
}

// EndSegmentChecksum finishes the segment using the SHA-1 of the input
// hashed since StartSegment, which requires SetVerify(true). The digest
// is written to the trailer only when store is true. It returns the
// number of input bytes in the segment and their digest.
func (c *Compressor) EndSegmentChecksum(store bool) (size uint64, sum [20]byte, err error) {
	err = c.channel.Run(fault.KindResource, func() error {
		if err := c.expect("EndSegmentChecksum", compressorCompressing); err != nil {
			return err
		}
		if c.hasher == nil {
			return fault.New(fault.KindUsage, "EndSegmentChecksum requires SetVerify(true) before StartSegment")
		}
		c.hasher.Sum(sum[:0])
		size = c.inputSize
		c.checksum = sum
		if store {
			return c.endSegment(&sum)
		}
		return c.endSegment(nil)
	})
	return size, sum, err
}

func (c *Compressor) endSegment(checksum *[20]byte) error {
	if c.encoder != nil {
		encoder := c.encoder
		c.encoder = nil
		if err := encoder.Close(); err != nil {
			return fault.Wrap(fault.KindResource, err, "%s encode", c.program.Codec)
		}
	} else if err := c.flushWhole(); err != nil {
		return err
	}
	if err := c.chunks.Close(); err != nil {
		return err
	}
	c.chunks = nil

	trailer := []byte{trailerNone}
	if checksum != nil {
		trailer = append([]byte{trailerChecksum}, checksum[:]...)
	}
	if _, err := c.out.Write(trailer); err != nil {
		return err
	}
	c.state = compressorSegmentReady
	return nil
}

// flushWhole encodes a buffered segment. The payload starts with a
// flag byte: wholeCoded, or wholeRaw when the program allows a raw
// fallback and encoding did not shrink the data.
func (c *Compressor) flushWhole() error {
	data, err := backend.Preprocess(c.program.Preprocess, c.whole.Bytes())
	if err != nil {
		return fault.Wrap(fault.KindResource, err, "preprocessing segment")
	}
	encoded, err := backend.Encode(c.program, data)
	if err != nil {
		return fault.Wrap(fault.KindResource, err, "encoding segment")
	}
	flag, body := byte(wholeCoded), encoded
	if c.program.Fallback && len(encoded) >= c.whole.Len() {
		flag, body = wholeRaw, c.whole.Bytes()
	}
	if _, err := c.chunks.Write([]byte{flag}); err != nil {
		return err
	}
	if _, err := c.chunks.Write(body); err != nil {
		return err
	}
	c.whole.Reset()
	return nil
}

const (
	wholeCoded = 0
	wholeRaw   = 1
)

// EndBlock closes the block. It is only valid between segments.
func (c *Compressor) EndBlock() error {
	return c.channel.Run(fault.KindCallback, func() error {
		if err := c.expect("EndBlock", compressorSegmentReady); err != nil {
			return err
		}
		if err := c.out.WriteByte(blockEnd); err != nil {
			return err
		}
		c.state = compressorBlockReady
		return nil
	})
}

// Size returns the number of bytes written to the output so far.
func (c *Compressor) Size() uint64 {
	if c.out == nil {
		return 0
	}
	return c.out.count
}

// Bits returns Size in bits.
func (c *Compressor) Bits() uint64 { return 8 * c.Size() }

// Checksum returns the checksum of the most recently ended segment, or
// zero if it carried none.
func (c *Compressor) Checksum() [20]byte { return c.checksum }

// InputSize returns the number of input bytes in the current or most
// recently ended segment.
func (c *Compressor) InputSize() uint64 { return c.inputSize }

// Program returns the program of the current block.
func (c *Compressor) Program() method.Program { return c.program }
