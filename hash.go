package scrub

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hasher produces deterministic, hex-encoded digests for pseudonymisation.
// Equal input must always yield equal output, so hashers are unsalted.
type Hasher interface {
	// Hash returns the hex-encoded digest of plaintext.
	Hash(plaintext []byte) string
}

// sha256Hasher implements SHA-256 hashing.
type sha256Hasher struct{}

// SHA256Hasher returns a SHA-256 hasher.
// The result is a hex-encoded 64-character string.
func SHA256Hasher() Hasher {
	return &sha256Hasher{}
}

func (h *sha256Hasher) Hash(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// sha512Hasher implements SHA-512 hashing.
type sha512Hasher struct{}

// SHA512Hasher returns a SHA-512 hasher.
// The result is a hex-encoded 128-character string.
func SHA512Hasher() Hasher {
	return &sha512Hasher{}
}

func (h *sha512Hasher) Hash(plaintext []byte) string {
	sum := sha512.Sum512(plaintext)
	return hex.EncodeToString(sum[:])
}

// blake2bHasher implements keyed BLAKE2b-256.
type blake2bHasher struct {
	key []byte
}

// BLAKE2b returns a keyed BLAKE2b-256 hasher.
// The key may be empty and at most 64 bytes.
func BLAKE2b(key []byte) (Hasher, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("%w: blake2b key must be at most %d bytes, got %d", ErrInvalidKey, blake2b.Size, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &blake2bHasher{key: k}, nil
}

func (h *blake2bHasher) Hash(plaintext []byte) string {
	d, err := blake2b.New256(h.key)
	if err != nil {
		// Keys accepted by BLAKE2b never fail here; fail closed regardless.
		return DefaultMarker
	}
	d.Write(plaintext)
	return hex.EncodeToString(d.Sum(nil))
}
