package local

import (
	"os"

	"github.com/go-git/go-billy/v5"
)

// Handle is an open file on the local back-end.
type Handle struct {
	name  string
	flags int
	file  billy.File
}

// Path implements fs.Handle.
func (h *Handle) Path() string {
	return h.name
}

// Flags returns the flags the file was opened with.
func (h *Handle) Flags() int {
	return h.flags
}

// stat returns the info of the open file. Not every billy.File exposes
// Stat, so callers fall back to a path lookup when ok is false.
func (h *Handle) stat() (info os.FileInfo, ok bool, err error) {
	s, ok := h.file.(interface{ Stat() (os.FileInfo, error) })
	if !ok {
		return nil, false, nil
	}
	info, err = s.Stat()
	return info, true, err
}
