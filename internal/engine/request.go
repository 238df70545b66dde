// Package engine implements the streaming copy-verify pipeline: a
// single-buffer, single-pass loop that reads, hashes, and writes each
// chunk, followed by an independent re-read of the destination that
// proves what landed on storage matches what was read from the source.
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/vouchtool/vouch/internal/digest"
)

const (
	// MinBufferSize and MaxBufferSize bound caller-supplied chunk
	// buffer sizes.
	MinBufferSize = 8 << 10  // 8 KiB
	MaxBufferSize = 10 << 20 // 10 MiB

	// DefaultBufferSize is used when the caller leaves the buffer size
	// unset. Deliberately above MaxBufferSize: the clamp constrains
	// explicit caller values, not the engine's own default.
	DefaultBufferSize = 16 << 20 // 16 MiB

	// SmallFileThreshold is the size below which the whole-buffer copy
	// path is used instead of the chunked streaming loop.
	SmallFileThreshold = 1_000_000
)

// Progress phase labels, surfaced to progress consumers so they can
// distinguish the interleaved copy phase from the later re-read.
const (
	PhaseCopyHash = "copying & hashing"
	PhaseCopy     = "copying"
	PhaseVerify   = "verifying integrity"
)

// Request describes one copy-verify operation. It is immutable once
// handed to Execute; all knobs are resolved by the caller up front and
// the engine never reaches into ambient configuration.
type Request struct {
	SourcePath      string
	DestinationPath string

	// BufferSize is the chunk buffer size in bytes. Zero selects
	// DefaultBufferSize; explicit values are clamped to
	// [MinBufferSize, MaxBufferSize].
	BufferSize int

	// ComputeHash enables digesting and the destination re-read.
	ComputeHash bool

	// Algorithm selects the digest function; empty means SHA-256.
	Algorithm digest.Algorithm

	// BytesPerSec caps throughput on the read path. Zero is unlimited.
	BytesPerSec int64

	// OpID identifies this operation on progress events. The zero UUID
	// means Execute generates one.
	OpID uuid.UUID
}

func (r Request) bufferSize() int {
	if r.BufferSize == 0 {
		return DefaultBufferSize
	}
	return ClampBufferSize(r.BufferSize)
}

// ClampBufferSize bounds an explicit buffer size to the supported range.
func ClampBufferSize(n int) int {
	if n < MinBufferSize {
		return MinBufferSize
	}
	if n > MaxBufferSize {
		return MaxBufferSize
	}
	return n
}

// Outcome is the result record of a completed operation. Constructed
// once, immutable thereafter, owned by the caller.
type Outcome struct {
	BytesCopied       int64
	SourceDigest      *digest.Digest
	DestinationDigest *digest.Digest

	// Verified is true iff both digests are present and equal.
	Verified bool

	Duration     time.Duration
	AverageSpeed float64 // bytes per second
	Strategy     Strategy
}
