//go:build !linux

package local

import "os"

// accessTime falls back to the modification time where the platform stat
// structure is not wired up.
func accessTime(_ os.FileInfo, fallback int64) int64 {
	return fallback
}
