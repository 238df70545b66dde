package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vouchtool/vouch/internal/digest"
)

func TestCopySmall(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	data := []byte("small file contents")
	require.NoError(t, os.WriteFile(src, data, 0644))

	acc := digest.NewAccumulator(digest.SHA256)
	n, err := copySmall(src, dst, acc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), acc.Sum().Hex())

	copied, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, copied)
}

func TestCopySmall_NilAccumulator(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("no hashing"), 0644))

	n, err := copySmall(src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestCopySmall_MissingSource(t *testing.T) {
	dir := t.TempDir()

	_, err := copySmall(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"), nil)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}
