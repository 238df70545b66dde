//go:build linux || darwin

package platform

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// preserveTimes applies the source's access and modification times with
// nanosecond precision.
func preserveTimes(srcInfo os.FileInfo, dstPath string) error {
	mtime := srcInfo.ModTime()
	atime := mtime
	if st, ok := srcInfo.Sys().(*syscall.Stat_t); ok {
		atime = atimeFromStat(st)
	}

	times := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	return unix.UtimesNanoAt(unix.AT_FDCWD, dstPath, times, 0)
}
