package engine

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vouchtool/vouch/internal/control"
	"github.com/vouchtool/vouch/internal/digest"
	"github.com/vouchtool/vouch/internal/stats"
)

func newTestCopier(buf []byte, ctl *control.Control) *streamCopier {
	return &streamCopier{
		buf:     buf,
		acc:     digest.NewAccumulator(digest.SHA256),
		sampler: stats.NewSampler(time.Now()),
		ctl:     ctl,
		srcPath: "src",
		dstPath: "dst",
	}
}

// countingWriter records the size of every write it receives.
type countingWriter struct {
	out    bytes.Buffer
	writes []int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, len(p))
	return w.out.Write(p)
}

func TestStreamCopier_ChunkIterations(t *testing.T) {
	// 50 units of data with a 16-unit buffer: 3 full chunks + 1 partial.
	data := make([]byte, 50<<10)
	_, err := rand.Read(data)
	require.NoError(t, err)

	w := &countingWriter{}
	sc := newTestCopier(make([]byte, 16<<10), &control.Control{})

	copied, err := sc.run(context.Background(), bytes.NewReader(data), w)
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), copied)
	assert.Equal(t, []int{16 << 10, 16 << 10, 16 << 10, 2 << 10}, w.writes)
	assert.Equal(t, data, w.out.Bytes())
}

func TestStreamCopier_DigestMatchesSmallPath(t *testing.T) {
	// The streamed and whole-buffer paths must agree on the same content.
	data := make([]byte, 48*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	sc := newTestCopier(make([]byte, 8<<10), &control.Control{})
	_, err = sc.run(context.Background(), bytes.NewReader(data), io.Discard)
	require.NoError(t, err)
	streamed := sc.acc.Sum()

	whole := digest.NewAccumulator(digest.SHA256)
	whole.Write(data)
	assert.Equal(t, whole.Sum().Hex(), streamed.Hex())
}

// shortWriter reports one byte fewer than requested after a number of
// good writes.
type shortWriter struct {
	good int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if w.good > 0 {
		w.good--
		return len(p), nil
	}
	return len(p) - 1, nil
}

func TestStreamCopier_IncompleteWrite(t *testing.T) {
	data := make([]byte, 64*1024)
	sc := newTestCopier(make([]byte, 8<<10), &control.Control{})

	_, err := sc.run(context.Background(), bytes.NewReader(data), &shortWriter{good: 2})

	var iw *IncompleteWriteError
	require.ErrorAs(t, err, &iw)
	assert.Equal(t, 8<<10, iw.Expected)
	assert.Equal(t, 8<<10-1, iw.Written)
}

// cancellingWriter flips the control's cancel flag after n writes.
type cancellingWriter struct {
	ctl   *control.Control
	after int
}

func (w *cancellingWriter) Write(p []byte) (int, error) {
	w.after--
	if w.after <= 0 {
		w.ctl.Cancel()
	}
	return len(p), nil
}

func TestStreamCopier_CancelMidStream(t *testing.T) {
	const bufSize = 8 << 10
	data := make([]byte, 100*bufSize)

	ctl := &control.Control{}
	sc := newTestCopier(make([]byte, bufSize), ctl)

	copied, err := sc.run(context.Background(), bytes.NewReader(data), &cancellingWriter{ctl: ctl, after: 3})
	require.ErrorIs(t, err, ErrCancelled)

	// Cancellation lands at a chunk boundary: the chunk in flight
	// completes, nothing further starts.
	assert.LessOrEqual(t, copied, int64(4*bufSize))
	assert.Greater(t, copied, int64(0))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestStreamCopier_ReadError(t *testing.T) {
	sc := newTestCopier(make([]byte, 8<<10), &control.Control{})

	_, err := sc.run(context.Background(), failingReader{}, io.Discard)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

func TestStreamCopier_PausedThenContextCancelled(t *testing.T) {
	gate := control.NewPauseGate()
	gate.Pause()
	ctl := &control.Control{Gate: gate}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	sc := newTestCopier(make([]byte, 8<<10), ctl)
	data := make([]byte, 64*1024)

	start := time.Now()
	_, err := sc.run(ctx, bytes.NewReader(data), io.Discard)
	require.ErrorIs(t, err, ErrCancelled)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestStreamCopier_PauseResume(t *testing.T) {
	gate := control.NewPauseGate()
	ctl := &control.Control{Gate: gate}
	gate.Pause()

	sc := newTestCopier(make([]byte, 8<<10), ctl)
	data := make([]byte, 64*1024)

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		_, err := sc.run(context.Background(), bytes.NewReader(data), &out)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("copy finished while paused")
	case <-time.After(50 * time.Millisecond):
	}

	gate.Resume()
	require.NoError(t, <-done)
	assert.Equal(t, data, out.Bytes())
}
