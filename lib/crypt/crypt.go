// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"github.com/paqkit/paqkit/lib/secret"
)

// KeySize is the size of a stretched key and of the salt that
// stretches it.
const KeySize = 32

// IVSize is the number of IV bytes that seed the counter block. The
// other 8 bytes hold the block index.
const IVSize = 8

// BlockSize is the AES block size.
const BlockSize = aes.BlockSize

// scrypt cost parameters of the archive format. Changing any of them
// makes every existing encrypted archive unreadable.
const (
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// CTR is AES in counter mode with random access. The counter block for
// block index i is the IV followed by i as a big-endian uint64, so any
// byte offset of the key stream can be produced without generating the
// bytes before it.
//
// A CTR holds no position. It is safe for concurrent use.
type CTR struct {
	block cipher.Block
	iv    [IVSize]byte
}

// NewCTR returns a cipher for a 16- or 32-byte key. Only the first 8
// bytes of iv are used; a nil iv means all zeros.
func NewCTR(key, iv []byte) (*CTR, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, fmt.Errorf("crypt: key must be 16 or 32 bytes, got %d", len(key))
	}
	if iv != nil && len(iv) < IVSize {
		return nil, fmt.Errorf("crypt: iv must be at least %d bytes, got %d", IVSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypt: %w", err)
	}
	c := &CTR{block: block}
	copy(c.iv[:], iv)
	return c, nil
}

// XORKeyStreamAt encrypts or decrypts buf in place as the bytes at
// absolute key-stream position offset. Applying it twice with the same
// offset restores buf.
func (c *CTR) XORKeyStreamAt(buf []byte, offset uint64) {
	if len(buf) == 0 {
		return
	}
	var counter [BlockSize]byte
	copy(counter[:IVSize], c.iv[:])
	binary.BigEndian.PutUint64(counter[IVSize:], offset/BlockSize)
	stream := cipher.NewCTR(c.block, counter[:])

	if skip := offset % BlockSize; skip != 0 {
		var discard [BlockSize]byte
		stream.XORKeyStream(discard[:skip], discard[:skip])
	}
	stream.XORKeyStream(buf, buf)
}

// EncryptBlock encrypts the 16-byte block formed by four big-endian
// words.
func (c *CTR) EncryptBlock(s0, s1, s2, s3 uint32) [BlockSize]byte {
	var in, out [BlockSize]byte
	binary.BigEndian.PutUint32(in[0:], s0)
	binary.BigEndian.PutUint32(in[4:], s1)
	binary.BigEndian.PutUint32(in[8:], s2)
	binary.BigEndian.PutUint32(in[12:], s3)
	c.block.Encrypt(out[:], in[:])
	return out
}

// StretchKey derives a key from a 32-byte key and a 32-byte salt with
// scrypt at the archive format's fixed cost.
func StretchKey(key, salt [KeySize]byte) ([KeySize]byte, error) {
	var out [KeySize]byte
	derived, err := stretch(key[:], salt[:], KeySize)
	if err != nil {
		return out, err
	}
	copy(out[:], derived)
	secret.Zero(derived)
	return out, nil
}

// StretchPassphrase hashes the passphrase with SHA-256 and stretches
// the hash with salt. The returned Buffer must be closed by the caller.
func StretchPassphrase(passphrase []byte, salt [KeySize]byte) (*secret.Buffer, error) {
	hashed := sha256.Sum256(passphrase)
	defer secret.Zero(hashed[:])

	derived, err := stretch(hashed[:], salt[:], KeySize)
	if err != nil {
		return nil, err
	}
	return secret.NewFromBytes(derived)
}

func stretch(key, salt []byte, size int) ([]byte, error) {
	derived, err := scrypt.Key(key, salt, scryptN, scryptR, scryptP, size)
	if err != nil {
		return nil, fmt.Errorf("crypt: scrypt: %w", err)
	}
	return derived, nil
}

// Random returns n bytes from the operating system's CSPRNG.
func Random(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("crypt: negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("crypt: reading random bytes: %w", err)
	}
	return buf, nil
}

// Salt returns a fresh random salt.
func Salt() ([KeySize]byte, error) {
	var salt [KeySize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("crypt: reading salt: %w", err)
	}
	return salt, nil
}
