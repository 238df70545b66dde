package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.SetTotals(10, 1<<20)
	c.AddFilesCopied(3)
	c.AddFilesFailed(1)
	c.AddFilesVerified(2)
	c.AddFilesMismatched(1)
	c.AddBytesCopied(4096)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.FilesCopied)
	assert.Equal(t, int64(1), snap.FilesFailed)
	assert.Equal(t, int64(2), snap.FilesVerified)
	assert.Equal(t, int64(1), snap.FilesMismatched)
	assert.Equal(t, int64(4096), snap.BytesCopied)
	assert.Equal(t, int64(10), snap.FilesTotal)
	assert.Equal(t, int64(1<<20), snap.BytesTotal)
	assert.GreaterOrEqual(t, snap.Elapsed, time.Duration(0))
}

func TestCollectorRollingSpeed(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.RollingSpeed(10))

	c.AddBytesCopied(1000)
	c.Tick()
	c.AddBytesCopied(3000)
	c.Tick()

	// Two one-second samples: 1000 and 3000 bytes.
	assert.InDelta(t, 2000.0, c.RollingSpeed(2), 0.001)
	assert.InDelta(t, 3000.0, c.RollingSpeed(1), 0.001)
}

func TestSnapshotString(t *testing.T) {
	c := NewCollector()
	c.AddFilesCopied(2)
	assert.Contains(t, c.Snapshot().String(), "copied=2")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(1536*1024))
	assert.Equal(t, "2.0 GiB", FormatBytes(2<<30))
}
