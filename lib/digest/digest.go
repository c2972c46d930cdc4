// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	"github.com/zeebo/blake3"
)

// Digest sizes in bytes.
const (
	SHA1Size   = sha1.Size
	SHA256Size = sha256.Size
	BLAKE3Size = 32
)

// state is the part every engine shares: the running hash and the
// count of bytes fed to it since the last Result.
type state struct {
	hash   hash.Hash
	length uint64
}

// Put hashes one byte.
func (s *state) Put(c byte) {
	s.hash.Write([]byte{c})
	s.length++
}

// Write hashes p. It never fails.
func (s *state) Write(p []byte) (int, error) {
	s.hash.Write(p)
	s.length += uint64(len(p))
	return len(p), nil
}

// Len returns the number of bytes hashed since the last Result.
func (s *state) Len() uint64 { return s.length }

func (s *state) finish(out []byte) {
	s.hash.Sum(out[:0])
	s.hash.Reset()
	s.length = 0
}

// SHA1 is an incremental SHA-1. It is the checksum stored in segment
// trailers. The zero value is not usable; call NewSHA1.
type SHA1 struct{ state }

func NewSHA1() *SHA1 { return &SHA1{state{hash: sha1.New()}} }

// Result finalizes the message and resets the engine for the next one.
func (d *SHA1) Result() (sum [SHA1Size]byte) {
	d.finish(sum[:])
	return sum
}

// SHA256 is an incremental SHA-256.
type SHA256 struct{ state }

func NewSHA256() *SHA256 { return &SHA256{state{hash: sha256.New()}} }

// Result finalizes the message and resets the engine for the next one.
func (d *SHA256) Result() (sum [SHA256Size]byte) {
	d.finish(sum[:])
	return sum
}

// BLAKE3 is an incremental BLAKE3 with 32-byte output, several times
// faster than SHA-256 on large inputs.
type BLAKE3 struct{ state }

func NewBLAKE3() *BLAKE3 { return &BLAKE3{state{hash: blake3.New()}} }

// Result finalizes the message and resets the engine for the next one.
func (d *BLAKE3) Result() (sum [BLAKE3Size]byte) {
	d.finish(sum[:])
	return sum
}

// Engine is satisfied by all three digests.
type Engine interface {
	Put(c byte)
	Write(p []byte) (int, error)
	Len() uint64
}

// Algorithm names a digest for callers that select one at run time.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// Sum hashes data with the named algorithm. It returns nil for an
// unknown name.
func Sum(algorithm Algorithm, data []byte) []byte {
	switch algorithm {
	case AlgorithmSHA1:
		sum := sha1.Sum(data)
		return sum[:]
	case AlgorithmSHA256:
		sum := sha256.Sum256(data)
		return sum[:]
	case AlgorithmBLAKE3:
		sum := blake3.Sum256(data)
		return sum[:]
	default:
		return nil
	}
}

// New returns a streaming hash.Hash for the named algorithm, or nil
// for an unknown name.
func New(algorithm Algorithm) hash.Hash {
	switch algorithm {
	case AlgorithmSHA1:
		return sha1.New()
	case AlgorithmSHA256:
		return sha256.New()
	case AlgorithmBLAKE3:
		return blake3.New()
	default:
		return nil
	}
}
