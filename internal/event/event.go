// Package event carries typed progress events from running operations
// to presenters. Emission never blocks: if a consumer falls behind,
// events are dropped rather than stalling the copy loop.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/vouchtool/vouch/internal/control"
)

// Type identifies the kind of event.
type Type int

const (
	BatchStarted Type = iota + 1
	BatchCompleted
	CopyStarted
	Progress
	CopyCompleted
	CopyFailed
	VerifyMismatch
	Cancelled
)

var typeNames = [...]string{
	BatchStarted:   "BatchStarted",
	BatchCompleted: "BatchCompleted",
	CopyStarted:    "CopyStarted",
	Progress:       "Progress",
	CopyCompleted:  "CopyCompleted",
	CopyFailed:     "CopyFailed",
	VerifyMismatch: "VerifyMismatch",
	Cancelled:      "Cancelled",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single progress event from an operation.
type Event struct {
	Type      Type
	Timestamp time.Time
	OpID      uuid.UUID
	Path      string // source path of the operation
	Phase     string // "copying & hashing" or "verifying integrity"
	Bytes     int64  // bytes done so far, or final byte count
	Total     int64  // total bytes for this operation (or batch)
	Files     int64  // total files (BatchStarted)
	Speed     float64
	AvgSpeed  float64
	SrcDigest string
	DstDigest string
	Error     error
}

// Emit sends e on ch without blocking, stamping the timestamp. A nil
// channel is a no-op.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}

// ChannelSink adapts an Event channel to the engine's ProgressSink
// capability. One sink is shared by all operations in a batch; the
// OpID on each update keeps interleaved streams separable.
type ChannelSink struct {
	ch chan<- Event
}

// NewChannelSink returns a sink that forwards progress updates to ch.
func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

var _ control.ProgressSink = (*ChannelSink)(nil)

// Publish converts a progress update into a Progress event.
func (s *ChannelSink) Publish(p control.Progress) {
	Emit(s.ch, Event{
		Type:     Progress,
		OpID:     p.OpID,
		Path:     p.Path,
		Phase:    p.Phase,
		Bytes:    p.BytesDone,
		Total:    p.TotalBytes,
		Speed:    p.Speed,
		AvgSpeed: p.AvgSpeed,
	})
}
