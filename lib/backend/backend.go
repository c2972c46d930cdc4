// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"

	"github.com/paqkit/paqkit/lib/method"
)

// lz4Levels maps descriptor levels to lz4 compression levels.
var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// NewEncoder returns a writer that encodes everything written to it
// into w with the program's codec. Close finishes the codec stream; it
// does not close w.
//
// Every encoder runs single-threaded so that identical input always
// produces identical output. The parallel compressor relies on that to
// report the same size as the serial path.
func NewEncoder(program method.Program, w io.Writer) (io.WriteCloser, error) {
	switch program.Codec {
	case method.CodecStore:
		return nopWriteCloser{w}, nil

	case method.CodecLZ4:
		encoder := lz4.NewWriter(w)
		if err := encoder.Apply(
			lz4.CompressionLevelOption(lz4Levels[program.Level]),
			lz4.ConcurrencyOption(1),
		); err != nil {
			return nil, fmt.Errorf("lz4 encoder: %w", err)
		}
		return encoder, nil

	case method.CodecZstd:
		encoder, err := zstdEncoder(program.Level, w)
		if err != nil {
			return nil, err
		}
		return &pooledZstdWriter{Encoder: encoder, level: program.Level}, nil

	case method.CodecSnappy:
		return snappy.NewBufferedWriter(w), nil

	case method.CodecLZMA:
		encoder, err := lzma.WriterConfig{
			DictCap:    1 << program.Dict,
			Properties: &lzma.Properties{LC: 3, LP: 0, PB: 2},
			EOSMarker:  true,
		}.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("lzma encoder: %w", err)
		}
		return encoder, nil

	default:
		return nil, fmt.Errorf("unsupported codec %q", program.Codec)
	}
}

// NewDecoder returns a reader producing the decoded form of the codec
// stream read from r. It returns io.EOF once the codec stream ends.
// Close releases decoder resources; it does not close r.
func NewDecoder(program method.Program, r io.Reader) (io.ReadCloser, error) {
	switch program.Codec {
	case method.CodecStore:
		return io.NopCloser(r), nil

	case method.CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	case method.CodecZstd:
		decoder, err := zstd.NewReader(r,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return decoder.IOReadCloser(), nil

	case method.CodecSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil

	case method.CodecLZMA:
		decoder, err := lzma.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("lzma decoder: %w", err)
		}
		return io.NopCloser(decoder), nil

	default:
		return nil, fmt.Errorf("unsupported codec %q", program.Codec)
	}
}

// Encode encodes data in one pass and returns the complete codec
// stream.
func Encode(program method.Program, data []byte) ([]byte, error) {
	var output bytes.Buffer
	encoder, err := NewEncoder(program, &output)
	if err != nil {
		return nil, err
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("%s encode: %w", program.Codec, err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("%s encode: %w", program.Codec, err)
	}
	return output.Bytes(), nil
}

// Decode decodes one complete codec stream.
func Decode(program method.Program, encoded []byte) ([]byte, error) {
	decoder, err := NewDecoder(program, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	decoded, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", program.Codec, err)
	}
	return decoded, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// zstd encoders are expensive to build and a compressor starts one per
// segment, so finished encoders go back to a per-level pool.
var zstdPools [5]sync.Pool

func zstdEncoder(level int, w io.Writer) (*zstd.Encoder, error) {
	if pooled, ok := zstdPools[level].Get().(*zstd.Encoder); ok {
		pooled.Reset(w)
		return pooled, nil
	}
	encoder, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevel(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return encoder, nil
}

type pooledZstdWriter struct {
	*zstd.Encoder
	level  int
	closed bool
}

func (w *pooledZstdWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.Encoder.Close()
	// An encoder that failed mid-stream may hold a sticky error; only
	// clean ones are reused.
	if err == nil {
		w.Encoder.Reset(nil)
		zstdPools[w.level].Put(w.Encoder)
	}
	return err
}
