package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vouchtool/vouch/internal/control"
	"github.com/vouchtool/vouch/internal/digest"
	"github.com/vouchtool/vouch/internal/platform"
	"github.com/vouchtool/vouch/internal/stats"
)

// operation carries the per-invocation state of one copy-verify run.
// Each invocation owns its own buffer and digest state; the only shared
// object is the caller's Control.
type operation struct {
	req      Request
	ctl      *control.Control
	id       uuid.UUID
	srcInfo  os.FileInfo
	strategy Strategy
	limiter  *rate.Limiter
	acc      *digest.Accumulator

	// buf is the single chunk buffer, allocated once and reused for
	// every read/hash/write step and for the verification re-read.
	buf []byte
}

// Execute runs one copy-verify operation to completion on the calling
// goroutine: validate the source, select a strategy, copy, re-read the
// destination, compare digests, then best-effort metadata preservation.
func Execute(ctx context.Context, req Request, ctl *control.Control) (*Outcome, error) {
	var limiter *rate.Limiter
	if req.BytesPerSec > 0 {
		limiter = NewBWLimiter(req.BytesPerSec)
	}
	return execute(ctx, req, ctl, limiter)
}

// execute is the shared entry point; batch runs pass a limiter shared
// across operations.
func execute(ctx context.Context, req Request, ctl *control.Control, limiter *rate.Limiter) (*Outcome, error) {
	op, err := newOperation(req, ctl, limiter)
	if err != nil {
		return nil, err
	}
	return op.run(ctx)
}

func newOperation(req Request, ctl *control.Control, limiter *rate.Limiter) (*operation, error) {
	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return nil, &SourceNotFoundError{Path: req.SourcePath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &SourceNotFoundError{Path: req.SourcePath, Err: errors.New("not a regular file")}
	}

	if dir := filepath.Dir(req.DestinationPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &PathError{Path: req.DestinationPath, Err: err}
		}
	}

	id := req.OpID
	if id == uuid.Nil {
		id = uuid.New()
	}

	op := &operation{
		req:      req,
		ctl:      ctl,
		id:       id,
		srcInfo:  info,
		strategy: SelectStrategy(info.Size()),
		limiter:  limiter,
	}
	if req.ComputeHash {
		op.acc = digest.NewAccumulator(req.Algorithm)
	}
	return op, nil
}

func (op *operation) run(ctx context.Context) (*Outcome, error) {
	start := time.Now()

	copied, err := op.copyPhase(ctx)
	if err != nil {
		return nil, err
	}

	out := &Outcome{BytesCopied: copied, Strategy: op.strategy}
	if op.acc != nil {
		d := op.acc.Sum()
		out.SourceDigest = &d
	}

	// Verification is strictly ordered after the copy phase has
	// flushed and synced its handle; its entire value is proving
	// durability after the writer believes it is done.
	if op.req.ComputeHash {
		dstDigest, err := op.verifyPhase(ctx)
		if err != nil {
			return nil, err
		}
		out.DestinationDigest = &dstDigest

		if !out.SourceDigest.Equal(dstDigest) {
			return nil, &HashVerificationError{
				Path:              op.req.DestinationPath,
				SourceDigest:      *out.SourceDigest,
				DestinationDigest: dstDigest,
			}
		}
		out.Verified = true
	}

	op.preserveMetadata()

	out.Duration = time.Since(start)
	if secs := out.Duration.Seconds(); secs > 0 {
		out.AverageSpeed = float64(copied) / secs
	}
	return out, nil
}

// copyPhase produces the destination file and the source digest.
func (op *operation) copyPhase(ctx context.Context) (int64, error) {
	if op.cancelled(ctx) {
		return 0, ErrCancelled
	}

	if op.strategy == StrategySmall {
		return copySmall(op.req.SourcePath, op.req.DestinationPath, op.acc)
	}
	return op.copyStreamed(ctx)
}

func (op *operation) copyStreamed(ctx context.Context) (int64, error) {
	src, err := os.Open(op.req.SourcePath)
	if err != nil {
		return 0, &SourceNotFoundError{Path: op.req.SourcePath, Err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(op.req.DestinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, &PathError{Path: op.req.DestinationPath, Err: err}
	}
	platform.Preallocate(dst, op.srcInfo.Size())

	sc := &streamCopier{
		buf:     op.chunkBuffer(),
		acc:     op.acc,
		sampler: stats.NewSampler(time.Now()),
		ctl:     op.ctl,
		limiter: op.limiter,
		srcPath: op.req.SourcePath,
		dstPath: op.req.DestinationPath,
		prog: control.Progress{
			OpID:       op.id,
			Path:       op.req.SourcePath,
			Phase:      op.copyPhaseLabel(),
			TotalBytes: op.srcInfo.Size(),
		},
	}

	copied, err := sc.run(ctx, src, dst)
	if err != nil {
		dst.Close()
		return copied, err
	}

	// Flush write buffers and force durability before verification.
	if err := dst.Sync(); err != nil {
		dst.Close()
		return copied, &IOError{Op: "sync", Path: op.req.DestinationPath, Err: err}
	}
	if err := dst.Close(); err != nil {
		return copied, &IOError{Op: "close", Path: op.req.DestinationPath, Err: err}
	}
	return copied, nil
}

// verifyPhase re-reads the destination through a fresh handle.
func (op *operation) verifyPhase(ctx context.Context) (digest.Digest, error) {
	v := &destinationVerifier{
		buf:  op.chunkBuffer(),
		algo: op.req.Algorithm,
		ctl:  op.ctl,
		prog: control.Progress{
			OpID:       op.id,
			Path:       op.req.SourcePath,
			Phase:      PhaseVerify,
			TotalBytes: op.srcInfo.Size(),
		},
	}
	return v.verify(ctx, op.req.DestinationPath)
}

// chunkBuffer returns the operation's single reusable buffer,
// allocating it on first use. The small-file path never needs it for
// copying, but verification does.
func (op *operation) chunkBuffer() []byte {
	if op.buf == nil {
		size := op.req.bufferSize()
		if fs := op.srcInfo.Size(); fs < int64(size) {
			size = int(fs)
			if size < MinBufferSize {
				size = MinBufferSize
			}
		}
		op.buf = make([]byte, size)
	}
	return op.buf
}

func (op *operation) copyPhaseLabel() string {
	if op.req.ComputeHash {
		return PhaseCopyHash
	}
	return PhaseCopy
}

func (op *operation) cancelled(ctx context.Context) bool {
	if op.ctl != nil && op.ctl.Cancelled() {
		return true
	}
	return ctx.Err() != nil
}

// preserveMetadata copies permissions and timestamps onto the verified
// destination. Failure is a warning, never a fatal error.
func (op *operation) preserveMetadata() {
	if err := platform.PreserveMetadata(op.srcInfo, op.req.DestinationPath); err != nil {
		slog.Warn("metadata preservation failed",
			"path", op.req.DestinationPath, "error", err)
	}
}
