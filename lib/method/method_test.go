// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package method

import (
	"errors"
	"testing"

	"github.com/paqkit/paqkit/lib/fault"
)

func TestBlockExponent(t *testing.T) {
	tests := []struct {
		descriptor string
		want       int
	}{
		{"1", 4},
		{"5", 4},
		{"14", 4},
		{"36", 6},
		{"x0", 0},
		{"x6.1z3", 6},
		{"x10", 10},
		{"x11", 11},
		{"x12", 11},
		{"x99", 11},
		{"x.1", 4},
		{"x", 4},
		{"0", 4},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			if got := BlockExponent(tt.descriptor); got != tt.want {
				t.Errorf("BlockExponent(%q) = %d, want %d", tt.descriptor, got, tt.want)
			}
		})
	}
}

func TestBlockSize(t *testing.T) {
	if got, want := BlockSize("3"), 16*1024*1024-4096; got != want {
		t.Errorf("BlockSize(\"3\") = %d, want %d", got, want)
	}
	if got, want := BlockSize("x0"), 1024*1024-4096; got != want {
		t.Errorf("BlockSize(\"x0\") = %d, want %d", got, want)
	}
	if got, want := BlockSize("x99"), (0x100000<<11)-4096; got != want {
		t.Errorf("BlockSize(\"x99\") = %d, want %d", got, want)
	}
}

func TestParsePresets(t *testing.T) {
	for level := 1; level <= 5; level++ {
		descriptor := string(rune('0' + level))
		program, err := Parse(descriptor)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", descriptor, err)
		}
		fromLevel, err := Level(level)
		if err != nil {
			t.Fatalf("Level(%d) failed: %v", level, err)
		}
		if program != fromLevel {
			t.Errorf("Parse(%q) = %+v, Level(%d) = %+v", descriptor, program, level, fromLevel)
		}
		if got := program.Streamable(); got != (level <= 3) {
			t.Errorf("level %d Streamable() = %v", level, got)
		}
	}
}

func TestLevelOutOfRange(t *testing.T) {
	for _, level := range []int{0, 6, -1} {
		if _, err := Level(level); !errors.Is(err, fault.ErrMalformed) {
			t.Errorf("Level(%d) = %v, want a malformed fault", level, err)
		}
	}
}

func TestParseExplicit(t *testing.T) {
	tests := []struct {
		descriptor string
		want       Program
	}{
		{"x", Program{Codec: CodecZstd, Level: 2, Exponent: 4}},
		{"0", Program{Codec: CodecStore, Exponent: 4}},
		{"06", Program{Codec: CodecStore, Exponent: 6}},
		{"x6.2l4", Program{Codec: CodecLZ4, Level: 4, Exponent: 6, Preprocess: PreprocessBG4}},
		{"x3,1z4", Program{Codec: CodecZstd, Level: 4, Exponent: 3, Preprocess: PreprocessWhole}},
		{"s5n", Program{Codec: CodecSnappy, Exponent: 5}},
		{"x4m20", Program{Codec: CodecLZMA, Dict: 20, Exponent: 4}},
		{"x4c", Program{Codec: CodecLZMA, Dict: 24, Exponent: 4}},
		{"iz1", Program{Codec: CodecZstd, Level: 1, Exponent: 4, Preprocess: PreprocessWhole, Fallback: true}},
		{"i4.2l", Program{Codec: CodecLZ4, Exponent: 4, Preprocess: PreprocessBG4, Fallback: true}},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			got, err := Parse(tt.descriptor)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.descriptor, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.descriptor, got, tt.want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, descriptor := range []string{
		"",
		"7",
		"q4",
		"1z",
		"x4.1.2",
		"x4.3",
		"x4z2l1",
		"x4z9",
		"x4l10",
		"x4n3",
		"x4m8",
		"x4q",
		"0z2",
		"s4.1z2",
		"i4.0z2",
		"x99999",
	} {
		t.Run(descriptor, func(t *testing.T) {
			_, err := Parse(descriptor)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", descriptor)
			}
			if !errors.Is(err, fault.ErrMalformed) {
				t.Errorf("Parse(%q) error %v is not a malformed fault", descriptor, err)
			}
		})
	}
}

func TestStringRoundtrip(t *testing.T) {
	for _, descriptor := range []string{"1", "2", "3", "4", "5", "0", "x7.2l3", "s2n", "i4.1z3", "x11m16"} {
		t.Run(descriptor, func(t *testing.T) {
			program, err := Parse(descriptor)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", descriptor, err)
			}
			canonical := program.String()
			again, err := Parse(canonical)
			if err != nil {
				t.Fatalf("Parse(%q) (canonical of %q) failed: %v", canonical, descriptor, err)
			}
			if again != program {
				t.Errorf("canonical %q parsed to %+v, want %+v", canonical, again, program)
			}
			if BlockExponent(canonical) != program.Exponent {
				t.Errorf("BlockExponent(%q) = %d, want %d", canonical, BlockExponent(canonical), program.Exponent)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	program, err := Parse("x6.2l4")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data, err := program.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded != program {
		t.Errorf("Decode = %+v, want %+v", decoded, program)
	}

	again, _ := program.Encode()
	if string(again) != string(data) {
		t.Error("Encode is not deterministic")
	}
}

func TestDecodeRejectsInvalidProgram(t *testing.T) {
	invalid := Program{Codec: "brotli", Exponent: 4}
	if _, err := invalid.Encode(); !errors.Is(err, fault.ErrMalformed) {
		t.Errorf("Encode of unknown codec = %v, want a malformed fault", err)
	}

	if _, err := Decode([]byte{0xff, 0x00}); !errors.Is(err, fault.ErrMalformed) {
		t.Errorf("Decode of garbage = %v, want a malformed fault", err)
	}
}

func TestMemory(t *testing.T) {
	small, _ := Parse("x4m16")
	large, _ := Parse("x4m24")
	if small.Memory() >= large.Memory() {
		t.Errorf("Memory() with a 64 KiB dictionary (%v) should be below a 16 MiB one (%v)",
			small.Memory(), large.Memory())
	}

	streaming, _ := Parse("x4z2")
	whole, _ := Parse("x4.1z2")
	if whole.Memory() <= streaming.Memory() {
		t.Errorf("whole-segment Memory() (%v) should exceed streaming (%v)", whole.Memory(), streaming.Memory())
	}
}

func TestCompileCaches(t *testing.T) {
	first, err := Compile("x5.2l7")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, ok := compiled.Get("x5.2l7"); !ok {
		t.Error("Compile did not cache a successful parse")
	}
	second, err := Compile("x5.2l7")
	if err != nil || second != first {
		t.Errorf("second Compile = %+v, %v; want %+v", second, err, first)
	}

	if _, err := Compile("x5q"); err == nil {
		t.Fatal("Compile of a bad descriptor should fail")
	}
	if _, ok := compiled.Get("x5q"); ok {
		t.Error("Compile cached a failed parse")
	}
}
