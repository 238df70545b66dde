package engine

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/vouchtool/vouch/internal/control"
	"github.com/vouchtool/vouch/internal/digest"
	"github.com/vouchtool/vouch/internal/stats"
)

// destinationVerifier re-reads the written destination from storage and
// recomputes its digest from scratch. This is a forensic requirement,
// not an optimization target: disk write caching, filesystem bugs, or
// transient hardware faults can corrupt data between write() returning
// success and the bytes actually being durable. Nothing computed during
// the copy phase is consulted here; it must be a fresh handle and an
// independent full read.
type destinationVerifier struct {
	buf  []byte
	algo digest.Algorithm
	ctl  *control.Control
	prog control.Progress
}

// verify opens path fresh and digests it in the same chunked fashion as
// the copy loop, honoring cancellation and the pause gate. Read
// failures surface as VerificationReadError, distinct from a digest
// mismatch.
func (v *destinationVerifier) verify(ctx context.Context, path string) (digest.Digest, error) {
	var zero digest.Digest

	f, err := os.Open(path)
	if err != nil {
		return zero, &VerificationReadError{Path: path, Err: err}
	}
	defer f.Close()

	acc := digest.NewAccumulator(v.algo)
	sampler := stats.NewSampler(time.Now())

	for {
		if err := v.checkpoint(ctx); err != nil {
			return zero, err
		}

		n, rerr := f.Read(v.buf)
		if n > 0 {
			acc.Write(v.buf[:n])
			sampler.Add(int64(n))
			v.publish(sampler)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return zero, &VerificationReadError{Path: path, Err: rerr}
		}
	}

	return acc.Sum(), nil
}

func (v *destinationVerifier) checkpoint(ctx context.Context) error {
	if v.cancelled(ctx) {
		return ErrCancelled
	}
	if v.ctl != nil && v.ctl.Gate != nil {
		if err := v.ctl.Gate.Wait(ctx); err != nil {
			return ErrCancelled
		}
		if v.cancelled(ctx) {
			return ErrCancelled
		}
	}
	return nil
}

func (v *destinationVerifier) cancelled(ctx context.Context) bool {
	if v.ctl != nil && v.ctl.Cancelled() {
		return true
	}
	return ctx.Err() != nil
}

func (v *destinationVerifier) publish(sampler *stats.Sampler) {
	if v.ctl == nil || v.ctl.Sink == nil {
		return
	}
	s, ok := sampler.Sample(time.Now())
	if !ok {
		return
	}
	p := v.prog
	p.BytesDone = s.Total
	p.Speed = s.Instant
	p.AvgSpeed = s.Average
	v.ctl.Publish(p)
}
