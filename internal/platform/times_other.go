//go:build !linux && !darwin

package platform

import "os"

// preserveTimes falls back to Chtimes, using the modification time for
// both timestamps since atime is not portably available.
func preserveTimes(srcInfo os.FileInfo, dstPath string) error {
	mtime := srcInfo.ModTime()
	return os.Chtimes(dstPath, mtime, mtime)
}
