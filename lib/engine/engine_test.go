// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"strings"
	"testing"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/fault"
	"github.com/paqkit/paqkit/lib/testutil"
)

func compressBytes(t *testing.T, data []byte, opts Options) []byte {
	t.Helper()
	var output bytes.Buffer
	if err := Compress(bytes.NewReader(data), &output, opts); err != nil {
		t.Fatalf("Compress(%q) failed: %v", opts.Method, err)
	}
	return output.Bytes()
}

func decompressBytes(t *testing.T, compressed []byte) []byte {
	t.Helper()
	var output bytes.Buffer
	if err := Decompress(bytes.NewReader(compressed), &output); err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	return output.Bytes()
}

func TestRoundtrip(t *testing.T) {
	inputs := map[string][]byte{
		"byte":   {0},
		"text":   testutil.Text(200_000),
		"random": testutil.Random(70_000, 7),
		"floats": testutil.Float32s(30_000),
	}
	descriptors := []string{"1", "2", "3", "4", "5", "0", "x4.2l3", "s4n", "x4.1m16", "i4.2z1", "x4,1z3"}

	for _, descriptor := range descriptors {
		for name, input := range inputs {
			t.Run(descriptor+"/"+name, func(t *testing.T) {
				compressed := compressBytes(t, input, Options{Method: descriptor, Checksum: true})
				if got := decompressBytes(t, compressed); !bytes.Equal(got, input) {
					t.Fatalf("roundtrip returned %d bytes, want %d", len(got), len(input))
				}
			})
		}
	}
}

func TestEmptyInput(t *testing.T) {
	compressed := compressBytes(t, nil, Options{Method: "3"})
	if len(compressed) != 0 {
		t.Errorf("Compress of empty input wrote %d bytes, want 0", len(compressed))
	}
	if got := decompressBytes(t, compressed); len(got) != 0 {
		t.Errorf("Decompress of empty input returned %d bytes", len(got))
	}
}

func TestCompressSplitsBlocks(t *testing.T) {
	// "x0" blocks hold 1 MiB - 4096 bytes.
	input := testutil.Random(2_500_000, 3)
	compressed := compressBytes(t, input, Options{Method: "x0", Filename: "big.bin", Comment: "c"})

	decompressor := NewDecompressor()
	decompressor.SetInput(bytes.NewReader(compressed))
	var filenames []string
	blocks := 0
	for {
		found, memory, err := decompressor.FindBlock()
		if err != nil {
			t.Fatalf("FindBlock failed: %v", err)
		}
		if !found {
			break
		}
		if memory <= 0 {
			t.Errorf("block %d memory estimate %v", blocks, memory)
		}
		blocks++
		for {
			var filename bytes.Buffer
			found, err := decompressor.FindFilename(&filename)
			if err != nil {
				t.Fatalf("FindFilename failed: %v", err)
			}
			if !found {
				break
			}
			filenames = append(filenames, filename.String())
			if err := decompressor.ReadComment(nil); err != nil {
				t.Fatalf("ReadComment failed: %v", err)
			}
			if _, err := decompressor.ReadSegmentEnd(); err != nil {
				t.Fatalf("ReadSegmentEnd failed: %v", err)
			}
		}
	}

	if blocks != 3 {
		t.Fatalf("found %d blocks, want 3", blocks)
	}
	if filenames[0] != "big.bin" || filenames[1] != "" || filenames[2] != "" {
		t.Errorf("segment filenames = %q, want only the first labelled", filenames)
	}
}

func TestSegmentsAndMetadata(t *testing.T) {
	var output bytes.Buffer
	compressor := NewCompressor()
	if err := compressor.SetOutput(&output); err != nil {
		t.Fatalf("SetOutput failed: %v", err)
	}
	if err := compressor.StartBlockMethod("x4l2"); err != nil {
		t.Fatalf("StartBlockMethod failed: %v", err)
	}

	segments := []struct {
		filename, comment, data string
	}{
		{"first.txt", "one", "hello hello hello"},
		{"second.txt", "", strings.Repeat("payload ", 1000)},
	}
	for _, segment := range segments {
		if err := compressor.StartSegment(segment.filename, segment.comment); err != nil {
			t.Fatalf("StartSegment failed: %v", err)
		}
		compressor.SetInput(bytes.NewReader([]byte(segment.data)))
		more, err := compressor.Compress(-1)
		if err != nil || more {
			t.Fatalf("Compress(-1) = %v, %v; want false, nil", more, err)
		}
		if err := compressor.EndSegment(nil); err != nil {
			t.Fatalf("EndSegment failed: %v", err)
		}
	}
	if err := compressor.EndBlock(); err != nil {
		t.Fatalf("EndBlock failed: %v", err)
	}
	if compressor.Size() != uint64(output.Len()) {
		t.Errorf("Size() = %d, output holds %d", compressor.Size(), output.Len())
	}
	if compressor.Bits() != 8*compressor.Size() {
		t.Errorf("Bits() = %d, want %d", compressor.Bits(), 8*compressor.Size())
	}

	decompressor := NewDecompressor()
	decompressor.SetInput(bytes.NewReader(output.Bytes()))
	if found, _, err := decompressor.FindBlock(); err != nil || !found {
		t.Fatalf("FindBlock = %v, %v", found, err)
	}
	for _, segment := range segments {
		var filename, comment, data bytes.Buffer
		if found, err := decompressor.FindFilename(&filename); err != nil || !found {
			t.Fatalf("FindFilename = %v, %v", found, err)
		}
		if err := decompressor.ReadComment(&comment); err != nil {
			t.Fatalf("ReadComment failed: %v", err)
		}
		if filename.String() != segment.filename || comment.String() != segment.comment {
			t.Errorf("metadata = %q/%q, want %q/%q", filename.String(), comment.String(), segment.filename, segment.comment)
		}
		decompressor.SetOutput(&data)
		if _, err := decompressor.Decompress(-1); err != nil {
			t.Fatalf("Decompress failed: %v", err)
		}
		trailer, err := decompressor.ReadSegmentEnd()
		if err != nil {
			t.Fatalf("ReadSegmentEnd failed: %v", err)
		}
		if trailer != [TrailerSize]byte{} {
			t.Errorf("unchecked trailer = %x, want all zero", trailer)
		}
		if data.String() != segment.data {
			t.Errorf("segment data = %q, want %q", data.String(), segment.data)
		}
	}
	if found, err := decompressor.FindFilename(nil); err != nil || found {
		t.Errorf("FindFilename at block end = %v, %v; want false, nil", found, err)
	}
	if found, _, err := decompressor.FindBlock(); err != nil || found {
		t.Errorf("FindBlock at end = %v, %v; want false, nil", found, err)
	}
}

func TestIncrementalDecompress(t *testing.T) {
	for _, descriptor := range []string{"3", "4"} {
		t.Run(descriptor, func(t *testing.T) {
			input := testutil.Text(100)
			compressed := compressBytes(t, input, Options{Method: descriptor})

			decompressor := NewDecompressor()
			decompressor.SetInput(bytes.NewReader(compressed))
			decompressor.FindBlock()
			decompressor.FindFilename(nil)
			decompressor.ReadComment(nil)
			sink := bridge.NewSink(new(bytes.Buffer))
			decompressor.SetOutput(sink)

			more, err := decompressor.Decompress(40)
			if err != nil || !more {
				t.Fatalf("Decompress(40) = %v, %v; want true, nil", more, err)
			}
			if decompressor.DecodedSize() != 40 {
				t.Errorf("DecodedSize() = %d, want 40", decompressor.DecodedSize())
			}
			if decompressor.Buffered() != 40+len(decompressor.pending) {
				t.Errorf("Buffered() = %d", decompressor.Buffered())
			}
			if more, err := decompressor.Decompress(-1); err != nil || more {
				t.Fatalf("Decompress(-1) = %v, %v; want false, nil", more, err)
			}
			if decompressor.Buffered() != len(input) {
				t.Errorf("Buffered() = %d, want %d held by the sink", decompressor.Buffered(), len(input))
			}
		})
	}
}

func TestCompressPartial(t *testing.T) {
	var output bytes.Buffer
	compressor := NewCompressor()
	compressor.SetOutput(&output)
	compressor.StartBlockLevel(2)
	compressor.StartSegment("", "")
	compressor.SetInput(bytes.NewReader([]byte("0123456789")))

	more, err := compressor.Compress(4)
	if err != nil || !more {
		t.Fatalf("Compress(4) = %v, %v; want true, nil", more, err)
	}
	if compressor.InputSize() != 4 {
		t.Errorf("InputSize() = %d, want 4", compressor.InputSize())
	}
	more, err = compressor.Compress(6)
	if err != nil || !more {
		t.Fatalf("Compress(6) stopping at n = %v, %v; want true, nil", more, err)
	}
	more, err = compressor.Compress(6)
	if err != nil || more {
		t.Fatalf("Compress at end = %v, %v; want false, nil", more, err)
	}
	compressor.EndSegment(nil)
	compressor.EndBlock()

	if got := decompressBytes(t, output.Bytes()); string(got) != "0123456789" {
		t.Errorf("roundtrip = %q", got)
	}
}

func TestEndSegmentChecksum(t *testing.T) {
	input := []byte("checksummed content")
	var output bytes.Buffer
	compressor := NewCompressor()
	compressor.SetOutput(&output)
	compressor.SetVerify(true)
	compressor.StartBlockLevel(1)
	compressor.StartSegment("f", "")
	compressor.Write(input)

	size, sum, err := compressor.EndSegmentChecksum(true)
	if err != nil {
		t.Fatalf("EndSegmentChecksum failed: %v", err)
	}
	if size != uint64(len(input)) {
		t.Errorf("size = %d, want %d", size, len(input))
	}
	if sum != sha1.Sum(input) {
		t.Errorf("sum = %x, want %x", sum, sha1.Sum(input))
	}
	if compressor.Checksum() != sum {
		t.Errorf("Checksum() = %x, want %x", compressor.Checksum(), sum)
	}
	compressor.EndBlock()

	decompressor := NewDecompressor()
	decompressor.SetInput(bytes.NewReader(output.Bytes()))
	decompressor.FindBlock()
	decompressor.FindFilename(nil)
	decompressor.ReadComment(nil)
	// Skip the payload entirely.
	trailer, err := decompressor.ReadSegmentEnd()
	if err != nil {
		t.Fatalf("ReadSegmentEnd failed: %v", err)
	}
	if trailer[0] != 1 || !bytes.Equal(trailer[1:], sum[:]) {
		t.Errorf("trailer = %x, want 01%x", trailer, sum)
	}
}

func TestEndSegmentChecksumRequiresVerify(t *testing.T) {
	compressor := NewCompressor()
	compressor.SetOutput(new(bytes.Buffer))
	compressor.StartBlockLevel(1)
	compressor.StartSegment("", "")
	if _, _, err := compressor.EndSegmentChecksum(true); !errors.Is(err, fault.ErrUsage) {
		t.Errorf("EndSegmentChecksum without verify = %v, want a usage fault", err)
	}
}

func TestChecksumMismatch(t *testing.T) {
	compressed := compressBytes(t, testutil.Text(5000), Options{Method: "0", Checksum: true})
	// Layout ends with 0xFD, 20 checksum bytes, 0xFF.
	if compressed[len(compressed)-22] != trailerChecksum {
		t.Fatalf("unexpected layout: byte %x before the checksum", compressed[len(compressed)-22])
	}
	compressed[len(compressed)-5] ^= 0x01

	err := Decompress(bytes.NewReader(compressed), new(bytes.Buffer))
	if !errors.Is(err, fault.ErrMalformed) {
		t.Fatalf("Decompress of tampered checksum = %v, want a malformed fault", err)
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error %q should report the checksum mismatch", err)
	}
}

func TestCorruptInput(t *testing.T) {
	compressed := compressBytes(t, testutil.Text(50_000), Options{Method: "3", Checksum: true})

	t.Run("truncated", func(t *testing.T) {
		err := Decompress(bytes.NewReader(compressed[:len(compressed)/2]), new(bytes.Buffer))
		if err == nil {
			t.Fatal("Decompress of a truncated stream should fail")
		}
		if errors.Is(err, fault.ErrCallback) {
			t.Errorf("truncation reported as a callback failure: %v", err)
		}
	})

	t.Run("program", func(t *testing.T) {
		corrupt := bytes.Clone(compressed)
		corrupt[len(blockMagic)+1] = 0xff // first program byte
		_, _, err := findBlock(corrupt)
		if !errors.Is(err, fault.ErrMalformed) {
			t.Errorf("FindBlock on a corrupt program = %v, want a malformed fault", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		err := Decompress(bytes.NewReader([]byte("this is not a compressed stream")), new(bytes.Buffer))
		if !errors.Is(err, fault.ErrMalformed) {
			t.Errorf("Decompress of garbage = %v, want a malformed fault", err)
		}
	})
}

func findBlock(data []byte) (bool, float64, error) {
	decompressor := NewDecompressor()
	decompressor.SetInput(bytes.NewReader(data))
	return decompressor.FindBlock()
}

func TestLocatorTagAndLeadingBytes(t *testing.T) {
	input := []byte("tagged content")
	var output bytes.Buffer
	output.WriteString("#!/bin/sh stub\n")

	compressor := NewCompressor()
	compressor.SetOutput(&output)
	if err := compressor.WriteTag(); err != nil {
		t.Fatalf("WriteTag failed: %v", err)
	}
	compressor.StartBlockLevel(3)
	compressor.StartSegment("", "")
	compressor.Write(input)
	compressor.EndSegment(nil)
	compressor.EndBlock()

	decompressor := NewDecompressor()
	decompressor.SetInput(bytes.NewReader(output.Bytes()))
	if found, _, err := decompressor.FindBlock(); err != nil || !found {
		t.Fatalf("FindBlock = %v, %v", found, err)
	}
	if decompressor.Skipped() != uint64(len("#!/bin/sh stub\n")) {
		t.Errorf("Skipped() = %d, want the stub length only", decompressor.Skipped())
	}

	if got := decompressBytes(t, output.Bytes()); string(got) != string(input) {
		t.Errorf("Decompress = %q, want %q", got, input)
	}
}

func TestSourceCallbackFailure(t *testing.T) {
	source := bridge.FromFuncs(nil, func([]byte) int { return bridge.CallbackError })
	err := Compress(source, new(bytes.Buffer), Options{Method: "3"})
	if !errors.Is(err, fault.ErrCallback) {
		t.Fatalf("Compress with a failing source = %v, want a callback fault", err)
	}
	if !strings.Contains(err.Error(), "callback failed") {
		t.Errorf("error %q should mention the failed callback", err)
	}
}

func TestSinkCallbackFailure(t *testing.T) {
	// Accept the headers, then fail once payload starts flowing.
	delivered := 0
	sink := bridge.SinkFromFuncs(func(byte) int {
		delivered++
		if delivered > 1000 {
			return bridge.CallbackError
		}
		return 0
	}, nil)
	compressor := NewCompressor()
	compressor.SetOutput(sink)
	compressor.StartBlockMethod("0")
	compressor.StartSegment("", "")
	compressor.SetInput(bytes.NewReader(testutil.Random(200_000, 9)))

	_, err := compressor.Compress(-1)
	if !errors.Is(err, fault.ErrCallback) {
		t.Fatalf("Compress into a failing sink = %v, want a callback fault", err)
	}
	message, ok := compressor.LastError()
	if !ok || !strings.Contains(message, "callback failed") {
		t.Errorf("LastError() = %q, %v", message, ok)
	}
}

type panickingSource struct{}

func (panickingSource) Read([]byte) (int, error) { panic("source exploded") }
func (panickingSource) ReadByte() (byte, error)  { panic("source exploded") }

func TestPanicBecomesFault(t *testing.T) {
	compressor := NewCompressor()
	compressor.SetOutput(new(bytes.Buffer))
	compressor.StartBlockLevel(2)
	compressor.StartSegment("", "")
	compressor.SetInput(panickingSource{})

	_, err := compressor.Compress(-1)
	if !errors.Is(err, fault.ErrResource) {
		t.Fatalf("Compress with a panicking source = %v, want a resource fault", err)
	}
	if message, _ := compressor.LastError(); message != "source exploded" {
		t.Errorf("LastError() = %q", message)
	}
}

func TestLastErrorClearedBySuccess(t *testing.T) {
	compressor := NewCompressor()
	if err := compressor.EndBlock(); !errors.Is(err, fault.ErrUsage) {
		t.Fatalf("EndBlock before SetOutput = %v, want a usage fault", err)
	}
	if _, ok := compressor.LastError(); !ok {
		t.Fatal("LastError() empty after a failed call")
	}
	if err := compressor.SetOutput(new(bytes.Buffer)); err != nil {
		t.Fatalf("SetOutput failed: %v", err)
	}
	if message, ok := compressor.LastError(); ok {
		t.Errorf("LastError() = %q after a successful call", message)
	}
}

func TestCompressorStateErrors(t *testing.T) {
	compressor := NewCompressor()
	compressor.SetOutput(new(bytes.Buffer))

	checks := []struct {
		name string
		call func() error
	}{
		{"StartSegment before block", func() error { return compressor.StartSegment("", "") }},
		{"EndBlock before block", func() error { return compressor.EndBlock() }},
		{"Compress before segment", func() error { _, err := compressor.Compress(1); return err }},
		{"second SetOutput", func() error { return compressor.SetOutput(new(bytes.Buffer)) }},
		{"preset through StartBlockMethod", func() error { return compressor.StartBlockMethod("3") }},
	}
	for _, check := range checks {
		if err := check.call(); !errors.Is(err, fault.ErrUsage) {
			t.Errorf("%s = %v, want a usage fault", check.name, err)
		}
	}

	compressor.StartBlockLevel(1)
	if err := compressor.WriteTag(); !errors.Is(err, fault.ErrUsage) {
		t.Errorf("WriteTag inside a block = %v, want a usage fault", err)
	}
	if err := compressor.StartSegment("bad\x00name", ""); !errors.Is(err, fault.ErrUsage) {
		t.Errorf("StartSegment with NUL = %v, want a usage fault", err)
	}
}

func TestStreamingRejectsPreprocessing(t *testing.T) {
	compressor := NewCompressor()
	compressor.SetOutput(new(bytes.Buffer))
	compressor.SetStreaming(true)

	err := compressor.StartBlockMethod("x4.1z2")
	if !errors.Is(err, fault.ErrUsage) || !strings.Contains(err.Error(), "not streamable") {
		t.Errorf("StartBlockMethod with preprocessing = %v, want a not-streamable usage fault", err)
	}
	if err := compressor.StartBlockLevel(4); err == nil {
		t.Error("StartBlockLevel(4) should be rejected in streaming mode")
	}
	if err := compressor.StartBlockMethod("x4l1"); err != nil {
		t.Errorf("StartBlockMethod(\"x4l1\") = %v", err)
	}
}

func TestStartBlockProgram(t *testing.T) {
	var reference bytes.Buffer
	if err := CompressBlock([]byte("program bytes"), &reference, Options{Method: "x5.2l3"}); err != nil {
		t.Fatalf("CompressBlock failed: %v", err)
	}

	decompressor := NewDecompressor()
	decompressor.SetInput(bytes.NewReader(reference.Bytes()))
	decompressor.FindBlock()
	encoded, err := decompressor.Program().Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var output bytes.Buffer
	compressor := NewCompressor()
	compressor.SetOutput(&output)
	if err := compressor.StartBlockProgram(encoded); err != nil {
		t.Fatalf("StartBlockProgram failed: %v", err)
	}
	compressor.StartSegment("", "")
	compressor.Write([]byte("program bytes"))
	compressor.EndSegment(nil)
	compressor.EndBlock()

	if !bytes.Equal(output.Bytes(), reference.Bytes()) {
		t.Error("a block started from program bytes differs from one started from the descriptor")
	}
	if err := NewCompressor().StartBlockProgram([]byte{1, 2, 3}); err == nil {
		t.Error("StartBlockProgram with garbage should fail")
	}
}

func TestFallbackStoresIncompressible(t *testing.T) {
	input := testutil.Random(50_000, 11)
	compressed := compressBytes(t, input, Options{Method: "i4.1z1"})
	if len(compressed) > len(input)+128 {
		t.Errorf("raw fallback output is %d bytes for %d input bytes", len(compressed), len(input))
	}
	if got := decompressBytes(t, compressed); !bytes.Equal(got, input) {
		t.Error("roundtrip through raw fallback failed")
	}
}

func TestSerialSizeIsDeterministic(t *testing.T) {
	input := testutil.Text(10)
	first := compressBytes(t, input, Options{Method: "1"})
	second := compressBytes(t, input, Options{Method: "1"})
	if len(first) == 0 || !bytes.Equal(first, second) {
		t.Errorf("compressing the same input twice gave %d and %d bytes", len(first), len(second))
	}
}
