package engine

import (
	"errors"
	"fmt"

	"github.com/vouchtool/vouch/internal/digest"
)

// ErrCancelled is returned when an operation stops at a caller's
// request. It is a deliberate terminal state, not a failure: the
// destination is simply incomplete, and its disposition (delete or
// keep) is the caller's decision.
var ErrCancelled = errors.New("operation cancelled")

// SourceNotFoundError reports a source path that is missing, not a
// regular file, or unreadable. Fatal, no retry.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// PathError reports a destination that cannot be created or written.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("destination %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// IOError reports a read/write/sync failure during the copy phase. Not
// retried internally; the caller may retry the whole operation.
type IOError struct {
	Op   string // "read", "write", "sync", "close"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IncompleteWriteError reports an OS-level short write. The
// destination is considered untrustworthy: retrying with an adjusted
// offset without re-reading would produce a copy the engine cannot
// vouch for.
type IncompleteWriteError struct {
	Path     string
	Expected int
	Written  int
}

func (e *IncompleteWriteError) Error() string {
	return fmt.Sprintf("incomplete write to %s: wrote %d of %d bytes", e.Path, e.Written, e.Expected)
}

// VerificationReadError reports a destination that was written without
// error but could not be read back. Distinct from write-time IOError so
// operators can tell "write failed" from "write appeared to succeed but
// storage later failed".
type VerificationReadError struct {
	Path string
	Err  error
}

func (e *VerificationReadError) Error() string {
	return fmt.Sprintf("verification read %s: %v", e.Path, e.Err)
}

func (e *VerificationReadError) Unwrap() error { return e.Err }

// HashVerificationError is the core forensic failure: the copy
// completed without I/O errors, yet the destination's re-read digest
// does not match the source. Carries both digests for diagnosis.
type HashVerificationError struct {
	Path              string
	SourceDigest      digest.Digest
	DestinationDigest digest.Digest
}

func (e *HashVerificationError) Error() string {
	return fmt.Sprintf("digest mismatch for %s: source %s, destination %s",
		e.Path, e.SourceDigest.Hex(), e.DestinationDigest.Hex())
}
