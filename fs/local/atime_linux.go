//go:build linux

package local

import (
	"os"
	"syscall"
	"time"
)

func accessTime(info os.FileInfo, fallback int64) int64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fallback
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec).UnixMilli()
}
