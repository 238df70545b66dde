// Package digest provides the 256-bit content digests used to prove
// that a copied file matches its source.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Algorithm selects the digest function. Both produce 256-bit digests.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm validates a user-supplied algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unsupported digest algorithm %q (want sha256 or blake3)", s)
	}
}

// Size is the digest length in bytes.
const Size = 32

// Digest is a fixed-size 256-bit content digest.
type Digest [Size]byte

// Hex returns the lowercase hex rendering.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) String() string { return d.Hex() }

// Equal reports whether two digests are identical.
func (d Digest) Equal(other Digest) bool { return d == other }

// Accumulator wraps an incremental hash that is fed chunk-by-chunk and
// finalized exactly once. A partially-fed digest is never observable:
// the only way to obtain a Digest is Sum.
type Accumulator struct {
	algo Algorithm
	h    hash.Hash
}

// NewAccumulator returns an empty accumulator for the given algorithm.
func NewAccumulator(algo Algorithm) *Accumulator {
	var h hash.Hash
	switch algo {
	case BLAKE3:
		h = blake3.New()
	default:
		h = sha256.New()
	}
	return &Accumulator{algo: algo, h: h}
}

// Algorithm returns the algorithm this accumulator was built with.
func (a *Accumulator) Algorithm() Algorithm { return a.algo }

// Write feeds a chunk into the digest. It never returns an error.
func (a *Accumulator) Write(p []byte) (int, error) {
	return a.h.Write(p)
}

// Sum finalizes the digest over everything written so far.
func (a *Accumulator) Sum() Digest {
	var d Digest
	copy(d[:], a.h.Sum(nil))
	return d
}
