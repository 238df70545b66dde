package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vouchtool/vouch/internal/event"
	"github.com/vouchtool/vouch/internal/stats"
)

func newTestPresenter() (*Presenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	p := &Presenter{W: &out, ErrW: &errOut, Stats: stats.NewCollector()}
	return p, &out, &errOut
}

func TestPresenterCopyCompleted(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.handleEvent(event.Event{
		Type:      event.CopyCompleted,
		Path:      "clip.mov",
		Bytes:     2048,
		AvgSpeed:  1 << 20,
		SrcDigest: "deadbeef",
	})

	assert.Contains(t, out.String(), "clip.mov")
	assert.Contains(t, out.String(), "2.0 KiB")
	assert.Contains(t, out.String(), "deadbeef")
}

func TestPresenterMismatch(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.handleEvent(event.Event{
		Type:      event.VerifyMismatch,
		Path:      "evidence.bin",
		SrcDigest: "aaaa",
		DstDigest: "bbbb",
	})

	assert.Contains(t, out.String(), "MISMATCH")
	assert.Contains(t, out.String(), "aaaa")
	assert.Contains(t, out.String(), "bbbb")
}

func TestPresenterFailed(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.handleEvent(event.Event{
		Type:  event.CopyFailed,
		Path:  "broken.bin",
		Error: errors.New("read: no such device"),
	})

	assert.Contains(t, out.String(), "FAILED")
	assert.Contains(t, out.String(), "no such device")
}

func TestPresenterSummary(t *testing.T) {
	p, _, _ := newTestPresenter()
	p.Stats.AddFilesCopied(3)
	p.Stats.AddBytesCopied(3 << 20)
	p.Stats.AddFilesVerified(3)

	s := p.Summary()
	assert.Contains(t, s, "copied 3 files")
	assert.Contains(t, s, "3 verified")
	assert.NotContains(t, s, "MISMATCHED")
}
