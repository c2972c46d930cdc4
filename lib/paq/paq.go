// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package paq

import (
	"bytes"
	"io"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/digest"
	"github.com/paqkit/paqkit/lib/engine"
	"github.com/paqkit/paqkit/lib/parallel"
)

// Options adjusts a compression. The zero value compresses on the
// calling goroutine with a SHA-1 in every segment trailer.
type Options struct {
	// Filename and Comment label the first segment.
	Filename string
	Comment  string

	// NoChecksum leaves segment trailers without a SHA-1.
	NoChecksum bool

	// Threads above 1 compresses blocks concurrently. Output is the
	// same for every thread count.
	Threads int

	// Logger receives per-run debug summaries. Nil means
	// slog.Default().
	Logger *slog.Logger
}

func (o Options) parallel(method string) parallel.Options {
	return parallel.Options{
		Method:   method,
		Filename: o.Filename,
		Comment:  o.Comment,
		Checksum: !o.NoChecksum,
		Threads:  o.Threads,
		Logger:   o.Logger,
	}
}

// CompressBytes compresses input with method and returns the encoded
// stream.
func CompressBytes(input []byte, method string) ([]byte, error) {
	var output bytes.Buffer
	if _, err := parallel.Compress(bytes.NewReader(input), &output, Options{}.parallel(method)); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// DecompressBytes decodes a stream produced by any of the compress
// functions.
func DecompressBytes(data []byte) ([]byte, error) {
	var output bytes.Buffer
	if err := engine.Decompress(bytes.NewReader(data), &output); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// CompressStream reads r to the end and writes the compressed stream
// to w through a buffered sink. It returns the number of compressed
// bytes produced.
func CompressStream(r io.Reader, w io.Writer, method string, opts Options) (uint64, error) {
	sink := bridge.NewSink(w)
	written, err := parallel.Compress(bridge.FromReader(r), sink, opts.parallel(method))
	return written, multierr.Append(err, sink.Close())
}

// DecompressStream decodes r into w through a buffered sink.
func DecompressStream(r io.Reader, w io.Writer) error {
	sink := bridge.NewSink(w)
	err := engine.Decompress(bridge.FromReader(r), sink)
	return multierr.Append(err, sink.Close())
}

// SHA1Sum returns the SHA-1 digest of data.
func SHA1Sum(data []byte) [digest.SHA1Size]byte {
	hasher := digest.NewSHA1()
	hasher.Write(data)
	return hasher.Result()
}

// SHA256Sum returns the SHA-256 digest of data.
func SHA256Sum(data []byte) [digest.SHA256Size]byte {
	hasher := digest.NewSHA256()
	hasher.Write(data)
	return hasher.Result()
}
