// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"io"

	"github.com/paqkit/paqkit/lib/fault"
)

// DefaultBufferSize is the number of bytes a Sink accumulates before
// handing them to the destination.
const DefaultBufferSize = 1 << 15

// PutFunc delivers one byte. It returns CallbackError on failure; any
// other value is success.
type PutFunc func(c byte) int

// WriteFunc delivers a run of bytes. It returns CallbackError on
// failure; any other value is success.
type WriteFunc func(p []byte) int

// Writer is what the engine writes encoded or decoded bytes to. Sink
// and Counter implement it; so does *bufio.Writer.
type Writer interface {
	io.Writer
	io.ByteWriter
}

// Sink is the push side of the bridge. Bytes are accumulated in a
// fixed buffer and delivered when the buffer fills, before any bulk
// write, and when the sink is closed.
//
// The first delivery failure is sticky: every later write, flush, or
// close reports it again without calling the destination.
type Sink struct {
	deliver func(p []byte) error
	buffer  []byte
	err     error
	closed  bool
}

// NewSink returns a Sink delivering to w. Errors from w become
// callback faults wrapping the cause.
func NewSink(w io.Writer) *Sink {
	return newSink(func(p []byte) error {
		n, err := w.Write(p)
		if err != nil {
			return fault.Wrap(fault.KindCallback, err, "writer callback failed")
		}
		if n != len(p) {
			return fault.Wrap(fault.KindCallback, io.ErrShortWrite, "writer callback failed")
		}
		return nil
	})
}

// SinkFromFuncs returns a Sink delivering through the callback pair.
// The bulk form is preferred; with only put, bytes are delivered one at
// a time. With neither, output is discarded.
func SinkFromFuncs(put PutFunc, write WriteFunc) *Sink {
	return newSink(func(p []byte) error {
		switch {
		case write != nil:
			if write(p) == CallbackError {
				return fault.New(fault.KindCallback, "writer callback failed")
			}
		case put != nil:
			for _, c := range p {
				if put(c) == CallbackError {
					return fault.New(fault.KindCallback, "writer callback failed")
				}
			}
		}
		return nil
	})
}

func newSink(deliver func(p []byte) error) *Sink {
	return &Sink{
		deliver: deliver,
		buffer:  make([]byte, 0, DefaultBufferSize),
	}
}

// WriteByte appends one byte, flushing first if the buffer is full.
func (s *Sink) WriteByte(c byte) error {
	if err := s.usable(); err != nil {
		return err
	}
	if len(s.buffer) == cap(s.buffer) {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	s.buffer = append(s.buffer, c)
	return nil
}

// Write flushes anything buffered and then delivers p directly, so
// byte order is preserved across mixed single and bulk writes.
func (s *Sink) Write(p []byte) (int, error) {
	if err := s.usable(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.Flush(); err != nil {
		return 0, err
	}
	if err := s.deliver(p); err != nil {
		s.err = err
		return 0, err
	}
	return len(p), nil
}

// Flush delivers buffered bytes.
func (s *Sink) Flush() error {
	if s.err != nil {
		return s.err
	}
	if len(s.buffer) == 0 {
		return nil
	}
	err := s.deliver(s.buffer)
	s.buffer = s.buffer[:0]
	if err != nil {
		s.err = err
	}
	return err
}

// Buffered reports how many bytes are held but not yet delivered.
func (s *Sink) Buffered() int { return len(s.buffer) }

// Close flushes remaining bytes. Only the first call does anything;
// later calls return the sticky error, if any.
func (s *Sink) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true
	return s.Flush()
}

func (s *Sink) usable() error {
	if s.err != nil {
		return s.err
	}
	if s.closed {
		return fault.New(fault.KindUsage, "write to closed sink")
	}
	return nil
}

// Counter is a Writer that discards bytes and counts them.
type Counter struct {
	count uint64
}

func (c *Counter) Write(p []byte) (int, error) {
	c.count += uint64(len(p))
	return len(p), nil
}

func (c *Counter) WriteByte(byte) error {
	c.count++
	return nil
}

// Count returns the number of bytes written so far.
func (c *Counter) Count() uint64 { return c.count }
