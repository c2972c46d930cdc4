// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// Text returns size bytes of repetitive, highly compressible text.
func Text(size int) []byte {
	const line = "the quick brown fox jumps over the lazy dog 0123456789\n"
	output := make([]byte, size)
	for i := range output {
		output[i] = line[i%len(line)]
	}
	return output
}

// Random returns size pseudo-random bytes. The same seed always gives
// the same bytes, so failures reproduce.
func Random(size int, seed uint64) []byte {
	source := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	output := make([]byte, size)
	for i := 0; i+8 <= size; i += 8 {
		binary.LittleEndian.PutUint64(output[i:], source.Uint64())
	}
	for i := size &^ 7; i < size; i++ {
		output[i] = byte(source.Uint32())
	}
	return output
}

// Float32s returns count slowly varying float32 values encoded little
// endian, the shape of data byte-grouping preprocessing is meant for.
func Float32s(count int) []byte {
	output := make([]byte, count*4)
	for i := range count {
		value := float32(math.Sin(float64(i)/64)) * 0.01
		binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(value))
	}
	return output
}
