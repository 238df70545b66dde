// Package ui renders engine events and aggregate stats as plain console
// output.
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/vouchtool/vouch/internal/event"
	"github.com/vouchtool/vouch/internal/stats"
)

// Presenter prints one line per completed file to w, and periodic
// progress to errW.
type Presenter struct {
	W       io.Writer
	ErrW    io.Writer
	Stats   *stats.Collector
	Verbose bool
}

// Run consumes events until the channel is closed. It also drives the
// collector's per-second throughput ring.
func (p *Presenter) Run(events <-chan event.Event) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var ticks int
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.Stats.Tick()
			ticks++
			if ticks%5 == 0 {
				p.printProgress()
			}
		}
	}
}

func (p *Presenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.CopyCompleted:
		if ev.SrcDigest != "" {
			fmt.Fprintf(p.W, "%s  %s  %s  %s\n",
				ev.Path, FormatBytes(ev.Bytes), FormatRate(ev.AvgSpeed), ev.SrcDigest)
		} else {
			fmt.Fprintf(p.W, "%s  %s  %s\n",
				ev.Path, FormatBytes(ev.Bytes), FormatRate(ev.AvgSpeed))
		}
	case event.CopyFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.W, "%s  FAILED: %s\n", ev.Path, errMsg)
	case event.VerifyMismatch:
		fmt.Fprintf(p.W, "%s  MISMATCH: source %s destination %s\n",
			ev.Path, ev.SrcDigest, ev.DstDigest)
	case event.Cancelled:
		fmt.Fprintf(p.W, "%s  cancelled\n", ev.Path)
	case event.Progress:
		if p.Verbose {
			fmt.Fprintf(p.ErrW, "%s: %s %s/%s @ %s\n",
				ev.Phase, ev.Path,
				FormatBytes(ev.Bytes), FormatBytes(ev.Total),
				FormatRate(ev.Speed))
		}
	}
}

func (p *Presenter) printProgress() {
	snap := p.Stats.Snapshot()
	if snap.BytesTotal > 0 {
		pct := float64(snap.BytesCopied) / float64(snap.BytesTotal) * 100
		fmt.Fprintf(p.ErrW, "progress: %.0f%% %s/%s %d/%d files %s eta %s\n",
			pct,
			FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
			snap.FilesCopied, snap.FilesTotal,
			FormatRate(p.Stats.RollingSpeed(10)),
			FormatETA(p.Stats.ETA()),
		)
	} else {
		fmt.Fprintf(p.ErrW, "progress: %s copied %d files\n",
			FormatBytes(snap.BytesCopied), snap.FilesCopied)
	}
}

// Summary renders the end-of-run completion line.
func (p *Presenter) Summary() string {
	snap := p.Stats.Snapshot()
	s := fmt.Sprintf("copied %d files (%s) in %s",
		snap.FilesCopied, FormatBytes(snap.BytesCopied), FormatDuration(snap.Elapsed))
	if snap.FilesVerified > 0 {
		s += fmt.Sprintf(", %d verified", snap.FilesVerified)
	}
	if snap.FilesMismatched > 0 {
		s += fmt.Sprintf(", %d MISMATCHED", snap.FilesMismatched)
	}
	if snap.FilesFailed > 0 {
		s += fmt.Sprintf(", %d failed", snap.FilesFailed)
	}
	return s
}
