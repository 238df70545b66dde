package engine

import (
	"os"

	"github.com/vouchtool/vouch/internal/digest"
)

// copySmall is the whole-buffer path for files below the streaming
// threshold: one read into a buffer sized to the file, one hash update,
// one write, then a durability sync. The in-memory bytes serve as the
// source digest, but destination verification still happens as a
// separate physical read; in-memory identity does not satisfy the
// forensic requirement.
func copySmall(srcPath, dstPath string, acc *digest.Accumulator) (int64, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, &IOError{Op: "read", Path: srcPath, Err: err}
	}

	if acc != nil {
		acc.Write(data)
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, &PathError{Path: dstPath, Err: err}
	}

	n, werr := dst.Write(data)
	if n != len(data) {
		dst.Close()
		return int64(n), &IncompleteWriteError{Path: dstPath, Expected: len(data), Written: n}
	}
	if werr != nil {
		dst.Close()
		return int64(n), &IOError{Op: "write", Path: dstPath, Err: werr}
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		return int64(n), &IOError{Op: "sync", Path: dstPath, Err: err}
	}
	if err := dst.Close(); err != nil {
		return int64(n), &IOError{Op: "close", Path: dstPath, Err: err}
	}

	return int64(n), nil
}
