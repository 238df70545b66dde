// Package platform isolates the OS-specific parts of the engine:
// destination preallocation and source-metadata preservation.
package platform

import (
	"fmt"
	"os"
)

// PreserveMetadata copies permissions and timestamps from srcInfo onto
// dstPath. Callers treat failure as a warning, not a fatal error: the
// copied data is already verified by the time this runs.
func PreserveMetadata(srcInfo os.FileInfo, dstPath string) error {
	if err := os.Chmod(dstPath, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dstPath, err)
	}
	if err := preserveTimes(srcInfo, dstPath); err != nil {
		return fmt.Errorf("preserve times %s: %w", dstPath, err)
	}
	return nil
}
