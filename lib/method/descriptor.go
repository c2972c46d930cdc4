// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package method

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/paqkit/paqkit/lib/fault"
)

// Explicit descriptor markers.
const (
	MarkerExplicit  = 'x'
	MarkerStreaming = 's'
	MarkerFallback  = 'i'
	MarkerStore     = '0'
)

// presets maps levels "1".."5" (fast to ultra) to programs. Exponent
// is filled in from the descriptor.
var presets = [...]Program{
	1: {Codec: CodecLZ4, Level: 0},
	2: {Codec: CodecZstd, Level: 1},
	3: {Codec: CodecZstd, Level: 2},
	4: {Codec: CodecZstd, Level: 4, Preprocess: PreprocessWhole},
	5: {Codec: CodecLZMA, Dict: defaultDictExponent, Preprocess: PreprocessWhole},
}

// Level returns the preset program for level 1 through 5 with the
// default block exponent.
func Level(level int) (Program, error) {
	if level < 1 || level >= len(presets) {
		return Program{}, fault.New(fault.KindMalformed, "compression level %d outside [1,%d]", level, len(presets)-1)
	}
	program := presets[level]
	program.Exponent = DefaultExponent
	return program, nil
}

// IsPreset reports whether descriptor selects a built-in level rather
// than an explicit pipeline.
func IsPreset(descriptor string) bool {
	return descriptor != "" && descriptor[0] >= '1' && descriptor[0] <= '5'
}

// BlockExponent extracts the block-size exponent from a descriptor:
// the one or two digits immediately after the first character,
// defaulting to DefaultExponent and clamped to MaxExponent. Serial and
// parallel compression both partition input with it.
func BlockExponent(descriptor string) int {
	exponent := DefaultExponent
	if len(descriptor) > 1 && isDigit(descriptor[1]) {
		exponent = int(descriptor[1] - '0')
		if len(descriptor) > 2 && isDigit(descriptor[2]) {
			exponent = exponent*10 + int(descriptor[2]-'0')
		}
	}
	return min(exponent, MaxExponent)
}

// BlockSize returns the input bytes per block for a descriptor:
// (0x100000 << exponent) - 4096.
func BlockSize(descriptor string) int {
	return blockBytes(BlockExponent(descriptor))
}

func blockBytes(exponent int) int {
	return (0x100000 << exponent) - 4096
}

// Parse compiles a descriptor. It accepts a preset digit optionally
// followed by an exponent ("1", "36"), or an explicit form:
//
//	marker [arg {("."|",") arg}] {component}
//
// marker is x (general), s (streaming: preprocessing forbidden),
// i (whole-segment with raw fallback) or 0 (store). args[0] is the
// block exponent and args[1] the preprocessing mode (0 none, 1 whole
// segment, 2 BG4). Components name the codec: z<1-4> zstd,
// l<0-9> lz4, n snappy, m<12-30> or c<12-30> lzma with that
// dictionary exponent. Without a component, marker 0 stores and the
// other markers use zstd level 2.
func Parse(descriptor string) (Program, error) {
	if descriptor == "" {
		return Program{}, fault.New(fault.KindMalformed, "empty method descriptor")
	}

	marker := descriptor[0]
	if IsPreset(descriptor) {
		for index := 1; index < len(descriptor); index++ {
			if !isDigit(descriptor[index]) {
				return Program{}, fault.New(fault.KindMalformed,
					"method %q: a preset takes only a block exponent", descriptor)
			}
		}
		program := presets[marker-'0']
		program.Exponent = BlockExponent(descriptor)
		return program, nil
	}

	switch marker {
	case MarkerExplicit, MarkerStreaming, MarkerFallback, MarkerStore:
	default:
		return Program{}, fault.New(fault.KindMalformed, "method %q: unknown method", descriptor)
	}

	rest := descriptor[1:]
	argumentEnd := strings.IndexFunc(rest, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != ','
	})
	if argumentEnd < 0 {
		argumentEnd = len(rest)
	}
	arguments, err := parseArguments(rest[:argumentEnd])
	if err != nil {
		return Program{}, fault.Wrap(fault.KindMalformed, err, "method %q", descriptor)
	}

	program := Program{Exponent: BlockExponent(descriptor)}
	switch {
	case arguments[1] >= 0:
		program.Preprocess = Preprocess(arguments[1])
	case marker == MarkerFallback:
		program.Preprocess = PreprocessWhole
	}

	if err := parseComponents(rest[argumentEnd:], &program); err != nil {
		return Program{}, fault.Wrap(fault.KindMalformed, err, "method %q", descriptor)
	}

	switch marker {
	case MarkerStore:
		if program.Codec != "" {
			return Program{}, fault.New(fault.KindMalformed, "method %q: store takes no components", descriptor)
		}
		program.Codec = CodecStore
	case MarkerStreaming:
		if program.Preprocess != PreprocessNone {
			return Program{}, fault.New(fault.KindMalformed,
				"method %q: streaming method cannot preprocess (args[1]=%d)", descriptor, program.Preprocess)
		}
	case MarkerFallback:
		program.Fallback = true
	}
	if program.Codec == "" {
		program.Codec = CodecZstd
		program.Level = 2
	}

	if err := program.Validate(); err != nil {
		return Program{}, fault.Wrap(fault.KindMalformed, err, "method %q", descriptor)
	}
	return program, nil
}

// parseArguments splits the numeric argument run. Missing arguments
// are -1.
func parseArguments(text string) ([2]int, error) {
	arguments := [2]int{-1, -1}
	if text == "" {
		return arguments, nil
	}
	fields := strings.Split(strings.ReplaceAll(text, ",", "."), ".")
	if len(fields) > len(arguments) {
		return arguments, fault.New(fault.KindMalformed, "%d numeric arguments, at most %d allowed", len(fields), len(arguments))
	}
	for index, field := range fields {
		if field == "" {
			continue
		}
		if len(field) > 4 {
			return arguments, fault.New(fault.KindMalformed, "argument %q too long", field)
		}
		value, err := strconv.Atoi(field)
		if err != nil {
			return arguments, fault.Wrap(fault.KindMalformed, err, "argument %q", field)
		}
		arguments[index] = value
	}
	if arguments[1] > int(PreprocessBG4) {
		return arguments, fault.New(fault.KindMalformed, "unknown preprocessing mode %d", arguments[1])
	}
	return arguments, nil
}

func parseComponents(text string, program *Program) error {
	for len(text) > 0 {
		letter := text[0]
		digitEnd := 1
		for digitEnd < len(text) && isDigit(text[digitEnd]) {
			digitEnd++
		}
		digits := text[1:digitEnd]
		text = text[digitEnd:]

		if program.Codec != "" {
			return fault.New(fault.KindMalformed, "component %q: only one codec component allowed", letter)
		}

		value := -1
		if digits != "" {
			if len(digits) > 2 {
				return fault.New(fault.KindMalformed, "component %q: parameter %q too long", letter, digits)
			}
			value, _ = strconv.Atoi(digits)
		}

		switch letter {
		case 'z':
			program.Codec = CodecZstd
			program.Level = valueOr(value, 2)
		case 'l':
			program.Codec = CodecLZ4
			program.Level = valueOr(value, 0)
		case 'n':
			if value >= 0 {
				return fault.New(fault.KindMalformed, "component 'n' takes no parameter")
			}
			program.Codec = CodecSnappy
		case 'm', 'c':
			program.Codec = CodecLZMA
			program.Dict = valueOr(value, defaultDictExponent)
		default:
			return fault.New(fault.KindMalformed, "unknown component %q", letter)
		}
	}
	return nil
}

func valueOr(value, fallback int) int {
	if value < 0 {
		return fallback
	}
	return value
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// compiled caches parsed descriptors. Callers compressing many small
// buffers with the same descriptor parse it once.
var compiled *lru.Cache[string, Program]

func init() {
	var err error
	compiled, err = lru.New[string, Program](128)
	if err != nil {
		panic("method: program cache initialization failed: " + err.Error())
	}
}

// Compile is Parse with a process-wide cache of successful results.
func Compile(descriptor string) (Program, error) {
	if program, ok := compiled.Get(descriptor); ok {
		return program, nil
	}
	program, err := Parse(descriptor)
	if err != nil {
		return Program{}, err
	}
	compiled.Add(descriptor, program)
	return program, nil
}
