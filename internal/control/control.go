// Package control holds the caller-owned state a running copy operation
// consults: the cancellation flag, an optional pause gate, and an
// optional progress sink. The engine only reads this state; it never
// owns its lifecycle.
package control

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Progress is a single progress update pushed to a sink during an
// operation. Speeds are bytes per second.
type Progress struct {
	OpID       uuid.UUID
	Path       string
	Phase      string
	BytesDone  int64
	TotalBytes int64
	Speed      float64
	AvgSpeed   float64
}

// Percent returns completion as 0-100, or 0 when the total is unknown.
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	return float64(p.BytesDone) / float64(p.TotalBytes) * 100
}

// ProgressSink receives periodic progress updates. Implementations must
// not block: updates are throttled by the engine but delivered on the
// copy loop's goroutine.
type ProgressSink interface {
	Publish(Progress)
}

// PauseGate suspends copy loops at chunk granularity. The zero gate is
// not usable; construct with NewPauseGate.
type PauseGate struct {
	mu      sync.Mutex
	resumed chan struct{} // closed while running
	paused  bool
}

// NewPauseGate returns a gate in the running (released) state.
func NewPauseGate() *PauseGate {
	ch := make(chan struct{})
	close(ch)
	return &PauseGate{resumed: ch}
}

// Pause engages the gate. Loops block at their next chunk boundary.
func (g *PauseGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return
	}
	g.paused = true
	g.resumed = make(chan struct{})
}

// Resume releases the gate, waking every blocked loop.
func (g *PauseGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return
	}
	g.paused = false
	close(g.resumed)
}

// Paused reports whether the gate is currently engaged.
func (g *PauseGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait blocks while the gate is engaged. It returns early with the
// context's error if ctx is cancelled during the wait.
func (g *PauseGate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		ch := g.resumed
		g.mu.Unlock()

		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Control is the shared, caller-owned handle for one or more running
// operations. Safe for concurrent use; multiple operations may share a
// single Control.
type Control struct {
	cancelled atomic.Bool

	// Gate, when non-nil, is consulted once per chunk.
	Gate *PauseGate

	// Sink, when non-nil, receives throttled progress updates.
	Sink ProgressSink
}

// Cancel requests a cooperative stop. Running loops observe it at
// their next chunk boundary.
func (c *Control) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (c *Control) Cancelled() bool { return c.cancelled.Load() }

// Publish forwards a progress update to the sink, if one is set.
func (c *Control) Publish(p Progress) {
	if c == nil || c.Sink == nil {
		return
	}
	c.Sink.Publish(p)
}
