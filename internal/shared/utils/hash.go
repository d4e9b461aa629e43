package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	BLAKE2b256 HashAlgorithm = "blake2b-256"
	SHA256     HashAlgorithm = "sha256"
)

// Hasher digests output files for the run report
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(BLAKE2b256)
}

// Algorithm returns the name recorded next to each digest
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

func (h *Hasher) newHash() (hash.Hash, error) {
	switch h.algorithm {
	case BLAKE2b256:
		return blake2b.New256(nil)
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", h.algorithm)
	}
}

// Hash computes a hex digest of the input data
func (h *Hasher) Hash(data []byte) (string, error) {
	hh, err := h.newHash()
	if err != nil {
		return "", err
	}
	hh.Write(data)
	return hex.EncodeToString(hh.Sum(nil)), nil
}

// HashReader computes a hex digest of everything read from r, returning
// the digest and the byte count
func (h *Hasher) HashReader(r io.Reader) (string, int64, error) {
	hh, err := h.newHash()
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(hh, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(hh.Sum(nil)), n, nil
}

// HashFile computes a hex digest of the file at path
func (h *Hasher) HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	digest, n, err := h.HashReader(f)
	if err != nil {
		return "", n, fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, n, nil
}

// ShortHash returns the first 12 characters of a digest for log fields
func ShortHash(digest string) string {
	if len(digest) < 12 {
		return digest
	}
	return digest[:12]
}
