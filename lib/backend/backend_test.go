// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/paqkit/paqkit/lib/method"
	"github.com/paqkit/paqkit/lib/testutil"
)

var roundtripDescriptors = []string{"0", "1", "2", "3", "4", "5", "x4l9", "x4n", "x4z3", "x4m16"}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	inputs := map[string][]byte{
		"empty":  {},
		"byte":   {0x42},
		"text":   testutil.Text(100_000),
		"random": testutil.Random(20_000, 1),
	}

	for _, descriptor := range roundtripDescriptors {
		program, err := method.Parse(descriptor)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", descriptor, err)
		}
		for name, input := range inputs {
			t.Run(fmt.Sprintf("%s/%s", descriptor, name), func(t *testing.T) {
				encoded, err := Encode(program, input)
				if err != nil {
					t.Fatalf("Encode failed: %v", err)
				}
				decoded, err := Decode(program, encoded)
				if err != nil {
					t.Fatalf("Decode failed: %v", err)
				}
				if !bytes.Equal(decoded, input) {
					t.Fatalf("roundtrip mismatch: got %d bytes, want %d", len(decoded), len(input))
				}
			})
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	input := testutil.Text(300_000)
	for _, descriptor := range roundtripDescriptors {
		t.Run(descriptor, func(t *testing.T) {
			program, _ := method.Parse(descriptor)
			first, err := Encode(program, input)
			if err != nil {
				t.Fatalf("first Encode failed: %v", err)
			}
			second, err := Encode(program, input)
			if err != nil {
				t.Fatalf("second Encode failed: %v", err)
			}
			if !bytes.Equal(first, second) {
				t.Errorf("two encodings differ: %d and %d bytes", len(first), len(second))
			}
		})
	}
}

func TestEncodeCompressesText(t *testing.T) {
	input := testutil.Text(100_000)
	for _, descriptor := range roundtripDescriptors[1:] {
		t.Run(descriptor, func(t *testing.T) {
			program, _ := method.Parse(descriptor)
			encoded, err := Encode(program, input)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) >= len(input)/4 {
				t.Errorf("encoded %d bytes of repetitive text into %d", len(input), len(encoded))
			}
		})
	}
}

func TestDecodeRejectsCorruptStream(t *testing.T) {
	for _, descriptor := range []string{"1", "3", "x4n", "5"} {
		t.Run(descriptor, func(t *testing.T) {
			program, _ := method.Parse(descriptor)
			encoded, err := Encode(program, testutil.Text(10_000))
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if _, err := Decode(program, encoded[:len(encoded)/2]); err == nil {
				t.Error("Decode of a truncated stream should fail")
			}
		})
	}
}

func TestPooledZstdEncoderReuse(t *testing.T) {
	program, _ := method.Parse("x4z3")
	input := testutil.Text(50_000)
	reference, err := Encode(program, input)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// Subsequent encodes reuse the pooled encoder and must not carry
	// state between streams.
	for attempt := range 3 {
		again, err := Encode(program, input)
		if err != nil {
			t.Fatalf("Encode attempt %d failed: %v", attempt, err)
		}
		if !bytes.Equal(again, reference) {
			t.Fatalf("Encode attempt %d produced different output", attempt)
		}
	}
}

func TestBG4TransposeRoundtrip(t *testing.T) {
	for _, size := range []int{0, 1, 3, 4, 7, 8, 12, 100, 1024, 65537} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			data := make([]byte, size)
			for i := range data {
				data[i] = byte(i * 37)
			}

			transposed, err := Preprocess(method.PreprocessBG4, data)
			if err != nil {
				t.Fatalf("Preprocess failed: %v", err)
			}
			if len(transposed) != len(data) {
				t.Fatalf("transposed length %d != original %d", len(transposed), len(data))
			}
			recovered, err := Unpreprocess(method.PreprocessBG4, transposed)
			if err != nil {
				t.Fatalf("Unpreprocess failed: %v", err)
			}
			if !bytes.Equal(recovered, data) {
				t.Fatalf("BG4 roundtrip mismatch (size=%d)", size)
			}
		})
	}
}

func TestBG4TransposeGrouping(t *testing.T) {
	input := []byte{
		0x10, 0x11, 0x12, 0x13,
		0x20, 0x21, 0x22, 0x23,
		0x30, 0x31, 0x32, 0x33,
		0x40, 0x41, // tail
	}
	expected := []byte{
		0x10, 0x20, 0x30,
		0x11, 0x21, 0x31,
		0x12, 0x22, 0x32,
		0x13, 0x23, 0x33,
		0x40, 0x41,
	}

	transposed := bg4Transpose(input)
	if !bytes.Equal(transposed, expected) {
		t.Errorf("bg4Transpose = % x, want % x", transposed, expected)
	}
}

func TestBG4HelpsFloatData(t *testing.T) {
	data := testutil.Float32s(64 << 10)
	program, _ := method.Parse("x4l4")

	plain, err := Encode(program, data)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	transposed, _ := Preprocess(method.PreprocessBG4, data)
	grouped, err := Encode(program, transposed)
	if err != nil {
		t.Fatalf("Encode of grouped data failed: %v", err)
	}
	if len(grouped) >= len(plain) {
		t.Errorf("byte grouping did not help: %d bytes grouped, %d plain", len(grouped), len(plain))
	}
}

func TestPreprocessWholeIsIdentity(t *testing.T) {
	data := []byte("unchanged")
	output, err := Preprocess(method.PreprocessWhole, data)
	if err != nil || !bytes.Equal(output, data) {
		t.Errorf("Preprocess(whole) = %q, %v", output, err)
	}
	if _, err := Preprocess(method.Preprocess(9), data); err == nil {
		t.Error("Preprocess with an unknown mode should fail")
	}
}
