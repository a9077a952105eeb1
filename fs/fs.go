// Package fs defines the storage contract shared by every back-end.
//
// A FileSystem exposes stat, handle, stream, listing and tree-manipulation
// operations on absolute paths in the back-end's own namespace. The local
// back-end (package fs/local) maps each call onto the host file system; the
// remote back-ends (package fs/remote and the protocol packages under fs/)
// funnel every call through a single control connection.
//
// All operations take a context. Back-ends that serialize commands honour the
// context only while a command is waiting for its turn; once a command is on
// the wire it runs to completion.
package fs

import (
	"context"
	"io"
	"os"
	"time"
)

// FileSystem is the operation set every back-end implements.
type FileSystem interface {
	// Paths returns the resolver for this back-end's namespace.
	Paths() PathResolver

	// Lstat returns the stats of path without following a final symlink.
	Lstat(ctx context.Context, path string) (FileStats, error)

	// Open returns a handle for a logical file session on path.
	Open(ctx context.Context, path string, opt FileOption) (Handle, error)

	// Close ends the session started by Open.
	Close(ctx context.Context, h Handle) error

	// Fstat returns the stats of the file behind h.
	Fstat(ctx context.Context, h Handle) (FileStats, error)

	// Futimes sets the access and modification times of the file behind h.
	Futimes(ctx context.Context, h Handle, atime, mtime time.Time) error

	// Get returns a stream of the content of path. The caller must close it.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Put writes everything read from r to path.
	Put(ctx context.Context, r io.Reader, path string, opt FileOption) error

	// Readlink returns the target of the symlink at path.
	Readlink(ctx context.Context, path string) (string, error)

	// Symlink creates path as a symlink pointing at target.
	Symlink(ctx context.Context, target, path string) error

	// Mkdir creates a single directory. The parent must exist.
	Mkdir(ctx context.Context, dir string) error

	// EnsureDir creates dir and any missing parents. It succeeds when dir
	// already exists as a directory.
	EnsureDir(ctx context.Context, dir string) error

	// List returns the entries of dir. "." and ".." are never returned.
	List(ctx context.Context, dir string, opts ...ListOption) ([]FileEntry, error)

	// Unlink removes a file.
	Unlink(ctx context.Context, path string) error

	// Rmdir removes a directory, and its content when recursive is set.
	Rmdir(ctx context.Context, path string, recursive bool) error

	// Rename moves from to to.
	Rename(ctx context.Context, from, to string) error

	// Chmod changes the permission bits of path.
	Chmod(ctx context.Context, path string, mode os.FileMode) error
}

// FileStats is the normalized description of a file.
// Times are milliseconds since the Unix epoch.
type FileStats struct {
	Type   FileType
	Mode   os.FileMode
	Size   int64
	MTime  int64
	ATime  int64
	Target string
}

// ModTime returns MTime as a time.Time.
func (s FileStats) ModTime() time.Time {
	return time.UnixMilli(s.MTime)
}

// AccessTime returns ATime as a time.Time.
func (s FileStats) AccessTime() time.Time {
	return time.UnixMilli(s.ATime)
}

// IsDir reports whether the stats describe a directory.
func (s FileStats) IsDir() bool {
	return s.Type == TypeDirectory
}

// FileEntry is a FileStats produced by a directory listing, together with the
// entry's absolute path and base name.
type FileEntry struct {
	FileStats

	Path string
	Name string
}

// ListOptions controls List.
type ListOptions struct {
	ShowHiddenFiles bool
}

// ListOption configures a List call.
type ListOption func(*ListOptions)

// WithHiddenFiles makes List return entries whose name starts with a dot.
func WithHiddenFiles() ListOption {
	return func(o *ListOptions) {
		o.ShowHiddenFiles = true
	}
}

// ApplyListOptions folds opts into a ListOptions value.
func ApplyListOptions(opts ...ListOption) ListOptions {
	var o ListOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// IsHidden reports whether name is a dotfile.
func IsHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
