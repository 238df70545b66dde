package engine

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vouchtool/vouch/internal/control"
	"github.com/vouchtool/vouch/internal/digest"
)

func TestDestinationVerifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	data := make([]byte, 300*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	v := &destinationVerifier{
		buf:  make([]byte, 8<<10),
		algo: digest.SHA256,
		ctl:  &control.Control{},
	}
	d, err := v.verify(context.Background(), path)
	require.NoError(t, err)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), d.Hex())
}

func TestDestinationVerifier_MissingFile(t *testing.T) {
	v := &destinationVerifier{
		buf:  make([]byte, 8<<10),
		algo: digest.SHA256,
		ctl:  &control.Control{},
	}
	_, err := v.verify(context.Background(), filepath.Join(t.TempDir(), "gone"))

	var vr *VerificationReadError
	require.ErrorAs(t, err, &vr)
}

func TestDestinationVerifier_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	ctl := &control.Control{}
	ctl.Cancel()

	v := &destinationVerifier{buf: make([]byte, 8<<10), algo: digest.SHA256, ctl: ctl}
	_, err := v.verify(context.Background(), path)
	require.ErrorIs(t, err, ErrCancelled)
}
