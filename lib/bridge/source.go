// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"io"
	"slices"

	"github.com/paqkit/paqkit/lib/fault"
)

// CallbackError is the reserved return value a caller callback uses to
// report failure. It is never interpreted as end of data or as a
// zero-length write.
const CallbackError = -2

// maxEmptyReads bounds how many consecutive (0, nil) results an
// io.Reader may return before the source gives up.
const maxEmptyReads = 100

// Source is the pull side of the bridge: a bulk read plus a single-byte
// read. End of data is io.EOF. A failed caller callback surfaces as a
// fault.ErrCallback error, never as io.EOF.
type Source interface {
	io.Reader
	io.ByteReader
}

// GetFunc returns the next byte (0..255), -1 at end of data, or
// CallbackError on failure.
type GetFunc func() int

// ReadFunc fills up to len(p) bytes and returns the count, 0 at end of
// data, or CallbackError on failure.
type ReadFunc func(p []byte) int

// FromFuncs adapts the callback pair to a Source. The bulk form is
// preferred; whichever form is missing is derived from the other. If
// both are nil the source is empty.
func FromFuncs(get GetFunc, read ReadFunc) Source {
	return &funcSource{get: get, read: read}
}

type funcSource struct {
	get  GetFunc
	read ReadFunc
}

func (s *funcSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.read != nil {
		n := s.read(p)
		switch {
		case n == CallbackError:
			return 0, fault.New(fault.KindCallback, "reader callback failed")
		case n <= 0:
			return 0, io.EOF
		case n > len(p):
			return 0, fault.New(fault.KindCallback, "reader callback returned %d bytes for a %d byte buffer", n, len(p))
		}
		return n, nil
	}

	// Single-unit fallback.
	for index := range p {
		c, err := s.ReadByte()
		if err != nil {
			if index > 0 && err == io.EOF {
				return index, nil
			}
			return index, err
		}
		p[index] = c
	}
	return len(p), nil
}

func (s *funcSource) ReadByte() (byte, error) {
	if s.get != nil {
		value := s.get()
		switch {
		case value == CallbackError:
			return 0, fault.New(fault.KindCallback, "reader callback failed")
		case value < 0:
			return 0, io.EOF
		case value > 255:
			return 0, fault.New(fault.KindCallback, "reader callback returned %d, not a byte", value)
		}
		return byte(value), nil
	}
	if s.read == nil {
		return 0, io.EOF
	}
	var one [1]byte
	if _, err := s.Read(one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// FromReader adapts an io.Reader to a Source. Errors other than io.EOF
// become callback faults wrapping the reader's error. A value that is
// already a Source is returned unchanged.
func FromReader(reader io.Reader) Source {
	if source, ok := reader.(Source); ok {
		return source
	}
	return &readerSource{reader: reader}
}

type readerSource struct {
	reader  io.Reader
	pending error
}

func (s *readerSource) Read(p []byte) (int, error) {
	if s.pending != nil {
		return 0, s.pending
	}
	if len(p) == 0 {
		return 0, nil
	}
	for attempt := 0; attempt < maxEmptyReads; attempt++ {
		n, err := s.reader.Read(p)
		if err != nil {
			converted := s.convert(err)
			if n > 0 {
				// Deliver the data now and the error on the next call.
				s.pending = converted
				return n, nil
			}
			s.pending = converted
			return 0, converted
		}
		if n > 0 {
			return n, nil
		}
	}
	s.pending = fault.Wrap(fault.KindCallback, io.ErrNoProgress, "reader callback failed")
	return 0, s.pending
}

func (s *readerSource) ReadByte() (byte, error) {
	var one [1]byte
	if _, err := s.Read(one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

func (s *readerSource) convert(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fault.Wrap(fault.KindCallback, err, "reader callback failed")
}

// ReadFull fills p from source unless the source is exhausted first.
// It returns the number of bytes read and io.EOF if the source ended
// before p was full (including n == 0). Both block partitioners use it
// so short reads from a caller never move block boundaries.
func ReadFull(source io.Reader, p []byte) (int, error) {
	filled := 0
	for filled < len(p) {
		n, err := source.Read(p[filled:])
		filled += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return filled, io.EOF
			}
			return filled, err
		}
		if n == 0 {
			// A Source never returns (0, nil) for a non-empty buffer;
			// a raw io.Reader might.
			return filled, fault.Wrap(fault.KindCallback, io.ErrNoProgress, "reader callback failed")
		}
	}
	return filled, nil
}

// readStep bounds how much ReadBlock grows its buffer at a time, so a
// short input never forces a full block-sized allocation.
const readStep = 1 << 20

// ReadBlock reads up to size bytes from source, appending to dst[:0]
// and returning the extended slice. It returns io.EOF, together with
// whatever was read, when the source ends before size bytes. Both the
// serial and the parallel compressors cut their input into blocks with
// it so that block boundaries depend only on the bytes and size.
func ReadBlock(source io.Reader, dst []byte, size int) ([]byte, error) {
	dst = dst[:0]
	for len(dst) < size {
		step := min(size-len(dst), readStep)
		dst = slices.Grow(dst, step)
		n, err := ReadFull(source, dst[len(dst):len(dst)+step])
		dst = dst[:len(dst)+n]
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}
