// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package method

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paqkit/paqkit/lib/codec"
	"github.com/paqkit/paqkit/lib/fault"
)

// Codec names the black-box backend that encodes a segment payload.
// Values are stored in compiled programs; renaming one breaks every
// archive that carries it.
type Codec string

const (
	CodecStore  Codec = "store"
	CodecLZ4    Codec = "lz4"
	CodecZstd   Codec = "zstd"
	CodecSnappy Codec = "snappy"
	CodecLZMA   Codec = "lzma"
)

// Preprocess selects how a segment is prepared before encoding. Any
// mode other than PreprocessNone needs the whole segment in memory and
// so cannot be used by a streaming compressor.
type Preprocess uint8

const (
	PreprocessNone Preprocess = 0

	// PreprocessWhole buffers the segment and encodes it in one pass.
	PreprocessWhole Preprocess = 1

	// PreprocessBG4 buffers the segment and transposes it in 4-byte
	// groups (all byte-0s, then all byte-1s, ...) before encoding.
	PreprocessBG4 Preprocess = 2
)

func (p Preprocess) String() string {
	switch p {
	case PreprocessNone:
		return "none"
	case PreprocessWhole:
		return "whole"
	case PreprocessBG4:
		return "bg4"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

const (
	// MaxExponent is the largest block-size exponent. Larger values
	// in a descriptor are clamped to it.
	MaxExponent = 11

	// DefaultExponent applies when a descriptor names none.
	DefaultExponent = 4

	minDictExponent     = 12
	maxDictExponent     = 30
	defaultDictExponent = 24
)

// Program is a compiled method: everything a compressor and the
// matching decompressor need to agree on. It is written into every
// block header as deterministic CBOR.
type Program struct {
	Codec Codec `cbor:"codec"`

	// Level is the zstd speed (1-4) or the lz4 level (0 fast, 1-9).
	Level int `cbor:"level,omitempty"`

	// Dict is the lzma dictionary size as a power of two.
	Dict int `cbor:"dict,omitempty"`

	// Exponent sets the block size used by partitioning callers; see
	// [BlockSize].
	Exponent int `cbor:"exponent"`

	Preprocess Preprocess `cbor:"preprocess,omitempty"`

	// Fallback stores a segment raw when encoding would not make it
	// smaller. It requires a whole-segment preprocessing mode.
	Fallback bool `cbor:"fallback,omitempty"`
}

// Validate reports whether every field is within the range the
// backends accept.
func (p Program) Validate() error {
	if p.Exponent < 0 || p.Exponent > MaxExponent {
		return fault.New(fault.KindMalformed, "block exponent %d outside [0,%d]", p.Exponent, MaxExponent)
	}
	if p.Preprocess > PreprocessBG4 {
		return fault.New(fault.KindMalformed, "unknown preprocessing mode %d", p.Preprocess)
	}
	if p.Fallback && p.Preprocess == PreprocessNone {
		return fault.New(fault.KindMalformed, "raw fallback requires whole-segment preprocessing")
	}

	switch p.Codec {
	case CodecStore, CodecSnappy:
		if p.Level != 0 || p.Dict != 0 {
			return fault.New(fault.KindMalformed, "codec %s takes no parameters", p.Codec)
		}
	case CodecZstd:
		if p.Level < 1 || p.Level > 4 {
			return fault.New(fault.KindMalformed, "zstd level %d outside [1,4]", p.Level)
		}
	case CodecLZ4:
		if p.Level < 0 || p.Level > 9 {
			return fault.New(fault.KindMalformed, "lz4 level %d outside [0,9]", p.Level)
		}
	case CodecLZMA:
		if p.Dict < minDictExponent || p.Dict > maxDictExponent {
			return fault.New(fault.KindMalformed, "lzma dictionary exponent %d outside [%d,%d]",
				p.Dict, minDictExponent, maxDictExponent)
		}
	default:
		return fault.New(fault.KindMalformed, "unknown codec %q", p.Codec)
	}
	return nil
}

// Streamable reports whether the program can encode a segment without
// seeing all of it first.
func (p Program) Streamable() bool {
	return p.Preprocess == PreprocessNone
}

// BlockSize returns the number of input bytes per block for the
// program's exponent.
func (p Program) BlockSize() int {
	return blockBytes(p.Exponent)
}

// Memory estimates, in bytes, what a decoder for this program holds
// while decoding one segment.
func (p Program) Memory() float64 {
	var window float64
	switch p.Codec {
	case CodecStore:
		window = 0
	case CodecSnappy:
		window = 2 * 64 << 10
	case CodecLZ4:
		window = 2 * 4 << 20
	case CodecZstd:
		window = 8 << 20
	case CodecLZMA:
		window = float64(uint64(1) << p.Dict)
	}
	if !p.Streamable() {
		// The decoded segment is held whole, twice for BG4.
		window += 2 * float64(p.BlockSize())
	}
	return window + chunkOverhead
}

// chunkOverhead covers the framing buffers every session allocates.
const chunkOverhead = 64 << 10

// String returns the canonical descriptor. Parsing it yields an equal
// Program.
func (p Program) String() string {
	var builder strings.Builder
	switch {
	case p.Codec == CodecStore:
		builder.WriteByte('0')
	case p.Fallback:
		builder.WriteByte('i')
	default:
		builder.WriteByte('x')
	}
	builder.WriteString(strconv.Itoa(p.Exponent))
	builder.WriteByte('.')
	builder.WriteString(strconv.Itoa(int(p.Preprocess)))

	switch p.Codec {
	case CodecZstd:
		fmt.Fprintf(&builder, "z%d", p.Level)
	case CodecLZ4:
		fmt.Fprintf(&builder, "l%d", p.Level)
	case CodecSnappy:
		builder.WriteByte('n')
	case CodecLZMA:
		fmt.Fprintf(&builder, "m%d", p.Dict)
	}
	return builder.String()
}

// Encode returns the program as deterministic CBOR.
func (p Program) Encode() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding program: %w", err)
	}
	return data, nil
}

// Decode parses and validates program bytes produced by Encode.
func Decode(data []byte) (Program, error) {
	var program Program
	if err := codec.Unmarshal(data, &program); err != nil {
		return Program{}, fault.Wrap(fault.KindMalformed, err, "decoding program")
	}
	if err := program.Validate(); err != nil {
		return Program{}, err
	}
	return program, nil
}
