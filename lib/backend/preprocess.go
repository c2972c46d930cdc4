// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"

	"github.com/paqkit/paqkit/lib/method"
)

// Preprocess applies a whole-segment transform before encoding.
// PreprocessWhole is the identity; it only changes when the encoder
// sees the data.
func Preprocess(mode method.Preprocess, data []byte) ([]byte, error) {
	switch mode {
	case method.PreprocessNone, method.PreprocessWhole:
		return data, nil
	case method.PreprocessBG4:
		return bg4Transpose(data), nil
	default:
		return nil, fmt.Errorf("unsupported preprocessing mode %d", mode)
	}
}

// Unpreprocess reverses Preprocess.
func Unpreprocess(mode method.Preprocess, data []byte) ([]byte, error) {
	switch mode {
	case method.PreprocessNone, method.PreprocessWhole:
		return data, nil
	case method.PreprocessBG4:
		return bg4Untranspose(data), nil
	default:
		return nil, fmt.Errorf("unsupported preprocessing mode %d", mode)
	}
}

// bg4Transpose groups bytes by their position within each 4-byte word:
// every byte 0 first, then every byte 1, and so on. Arrays of
// fixed-width little-endian numbers compress noticeably better this
// way. A tail shorter than 4 bytes is copied unchanged.
func bg4Transpose(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := range groups {
		for lane := range 4 {
			output[lane*groups+i] = data[i*4+lane]
		}
	}
	copy(output[groups*4:], data[groups*4:])
	return output
}

func bg4Untranspose(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := range groups {
		for lane := range 4 {
			output[i*4+lane] = data[lane*groups+i]
		}
	}
	copy(output[groups*4:], data[groups*4:])
	return output
}
