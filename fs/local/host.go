package local

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// hostFS is a billy.Filesystem over the host OS rooted at "/" that also
// implements billy.Change, which the osfs implementations leave out.
type hostFS struct {
	billy.Filesystem
}

func newHostFS() *hostFS {
	return &hostFS{Filesystem: osfs.New("/", osfs.WithBoundOS())}
}

func (h *hostFS) abs(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(h.Root(), name)
}

// Chmod implements billy.Change.
func (h *hostFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(h.abs(name), mode)
}

// Lchown implements billy.Change.
func (h *hostFS) Lchown(name string, uid, gid int) error {
	return os.Lchown(h.abs(name), uid, gid)
}

// Chown implements billy.Change.
func (h *hostFS) Chown(name string, uid, gid int) error {
	return os.Chown(h.abs(name), uid, gid)
}

// Mkdir creates exactly one directory, failing if it exists.
func (h *hostFS) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(h.abs(name), perm)
}

// Chtimes implements billy.Change.
func (h *hostFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(h.abs(name), atime, mtime)
}

var _ billy.Change = (*hostFS)(nil)
