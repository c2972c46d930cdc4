// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package paq

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/engine"
	"github.com/paqkit/paqkit/lib/fault"
	"github.com/paqkit/paqkit/lib/parallel"
)

// CompressSize returns len(CompressBytes(input, method)) without
// keeping the output.
func CompressSize(input []byte, method string) (uint64, error) {
	return CompressSizeStream(bytes.NewReader(input), method, Options{})
}

// CompressSizeParallel is CompressSize with blocks compressed on
// threads goroutines. The result does not depend on threads.
func CompressSizeParallel(input []byte, method string, threads int) (uint64, error) {
	return CompressSizeStream(bytes.NewReader(input), method, Options{Threads: threads})
}

// CompressSizeStream returns the number of bytes CompressStream would
// write for r with the same method and options.
func CompressSizeStream(r io.Reader, method string, opts Options) (uint64, error) {
	return parallel.Size(bridge.FromReader(r), opts.parallel(method))
}

// DecompressSize returns the decoded length of a compressed stream
// without keeping the output. Checksums are still verified.
func DecompressSize(data []byte) (uint64, error) {
	return DecompressSizeStream(bytes.NewReader(data))
}

// DecompressSizeStream is DecompressSize over a reader.
func DecompressSizeStream(r io.Reader) (uint64, error) {
	var counter bridge.Counter
	if err := engine.Decompress(bridge.FromReader(r), &counter); err != nil {
		return 0, err
	}
	return counter.Count(), nil
}

// ArchiveSizeFile returns the size of the archive that compressing the
// file at path would produce, with the file's base name as the segment
// filename.
func ArchiveSizeFile(path, method string, threads int) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()
	return CompressSizeStream(file, method, Options{
		Filename: filepath.Base(path),
		Threads:  threads,
	})
}

var summarySize = regexp.MustCompile(`=\s*([0-9]+(?:\.[0-9]*)?)\s*MB`)

// ParseSummarySize extracts the size from an archiver's summary text:
// the last "= <n> MB" figure, converted to bytes as round(n * 1e6).
func ParseSummarySize(text string) (uint64, error) {
	matches := summarySize.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, fault.New(fault.KindMalformed, "no \"= <n> MB\" size in summary")
	}
	megabytes, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return 0, fault.Wrap(fault.KindMalformed, err, "parsing summary size")
	}
	return uint64(math.Round(megabytes * 1e6)), nil
}
