package engine

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/vouchtool/vouch/internal/control"
	"github.com/vouchtool/vouch/internal/digest"
	"github.com/vouchtool/vouch/internal/stats"
)

// streamCopier runs the single-pass read, hash, write loop. One buffer
// is used for every read, hash, and write step across the entire file.
// It is never copied, resized, or reallocated between iterations.
type streamCopier struct {
	buf     []byte
	acc     *digest.Accumulator // nil disables hashing
	sampler *stats.Sampler
	ctl     *control.Control
	limiter *rate.Limiter

	srcPath string
	dstPath string

	// prog is the template for progress updates; BytesDone and speeds
	// are filled in per sample.
	prog control.Progress
}

// run copies src to dst until end-of-stream. It returns bytes copied
// and the first error, which is always one of the engine's typed
// errors or ErrCancelled.
func (sc *streamCopier) run(ctx context.Context, src io.Reader, dst io.Writer) (int64, error) {
	var copied int64

	for {
		if err := sc.checkpoint(ctx); err != nil {
			return copied, err
		}

		n, rerr := src.Read(sc.buf)
		if n > 0 {
			if err := limiterWait(ctx, sc.limiter, n); err != nil {
				return copied, ErrCancelled
			}

			// Hash and write the exact slice read, not the full
			// buffer capacity.
			chunk := sc.buf[:n]
			if sc.acc != nil {
				sc.acc.Write(chunk)
			}

			w, werr := dst.Write(chunk)
			if w != n {
				return copied + int64(w), &IncompleteWriteError{
					Path:     sc.dstPath,
					Expected: n,
					Written:  w,
				}
			}
			if werr != nil {
				return copied, &IOError{Op: "write", Path: sc.dstPath, Err: werr}
			}

			copied += int64(n)
			sc.sampler.Add(int64(n))
			sc.publish(copied)
		}

		if rerr == io.EOF {
			return copied, nil
		}
		if rerr != nil {
			return copied, &IOError{Op: "read", Path: sc.srcPath, Err: rerr}
		}
	}
}

// checkpoint enforces cancellation and the pause gate at chunk
// granularity. Cancellation is re-checked after a pause resumes.
func (sc *streamCopier) checkpoint(ctx context.Context) error {
	if sc.cancelled(ctx) {
		return ErrCancelled
	}
	if sc.ctl != nil && sc.ctl.Gate != nil {
		if err := sc.ctl.Gate.Wait(ctx); err != nil {
			return ErrCancelled
		}
		if sc.cancelled(ctx) {
			return ErrCancelled
		}
	}
	return nil
}

func (sc *streamCopier) cancelled(ctx context.Context) bool {
	if sc.ctl != nil && sc.ctl.Cancelled() {
		return true
	}
	return ctx.Err() != nil
}

// publish pushes a progress update if the sampler's wall-clock cadence
// has elapsed, so consumers are not flooded when chunks are small
// relative to disk throughput.
func (sc *streamCopier) publish(done int64) {
	if sc.ctl == nil || sc.ctl.Sink == nil {
		return
	}
	s, ok := sc.sampler.Sample(time.Now())
	if !ok {
		return
	}
	p := sc.prog
	p.BytesDone = done
	p.Speed = s.Instant
	p.AvgSpeed = s.Average
	sc.ctl.Publish(p)
}
