//go:build !linux

package platform

import "os"

// Preallocate is a no-op on platforms without fallocate.
func Preallocate(_ *os.File, _ int64) {}
