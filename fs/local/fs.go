// Package local implements the fs.FileSystem contract on top of go-billy.
//
// Each operation maps directly onto the underlying billy.Filesystem. Nothing
// is serialized: the host file system handles concurrent access itself.
package local

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/internal/pool"
)

var (
	// ErrForeignHandle is returned when Put receives a handle that was not
	// produced by this back-end.
	ErrForeignHandle = errors.New(errors.CodeInvalidInput, "local: handle was not opened by the local file system")

	errIsDir = errors.New(errors.CodeInvalidInput, "local: is a directory")
)

// FileSystem implements fs.FileSystem using go-billy.
type FileSystem struct {
	fs    billy.Filesystem
	paths fs.PathResolver

	// mkdirMu makes Mkdir atomic on billy file systems that only offer
	// MkdirAll.
	mkdirMu sync.Mutex
}

// dirMaker is implemented by file systems that can create a single
// directory and report an existing one atomically.
type dirMaker interface {
	Mkdir(name string, perm os.FileMode) error
}

// New creates a FileSystem over fsys.
func New(fsys billy.Filesystem) *FileSystem {
	return &FileSystem{
		fs:    fsys,
		paths: fs.LocalPaths,
	}
}

// NewOS creates a FileSystem over the host OS. Paths are absolute host paths.
func NewOS() *FileSystem {
	return New(newHostFS())
}

// NewMemory creates an in-memory FileSystem. Paths are slash-separated.
func NewMemory() *FileSystem {
	return &FileSystem{
		fs:    memfs.New(),
		paths: fs.RemotePaths,
	}
}

// Paths implements fs.FileSystem.
//
//nolint:ireturn // resolvers are shared values behind an interface.
func (l *FileSystem) Paths() fs.PathResolver {
	return l.paths
}

// Lstat implements fs.FileSystem.
func (l *FileSystem) Lstat(ctx context.Context, path string) (fs.FileStats, error) {
	info, err := l.fs.Lstat(path)
	if err != nil {
		return fs.FileStats{}, fmt.Errorf("local: lstat %q: %w", path, err)
	}
	return l.toStats(path, info), nil
}

// Open implements fs.FileSystem.
//
//nolint:ireturn // handles are opaque to callers.
func (l *FileSystem) Open(ctx context.Context, path string, opt fs.FileOption) (fs.Handle, error) {
	f, err := l.fs.OpenFile(path, opt.Flags, opt.FileMode())
	if err != nil {
		return nil, fmt.Errorf("local: open %q: %w", path, err)
	}
	return &Handle{name: path, flags: opt.Flags, file: f}, nil
}

// Close implements fs.FileSystem.
func (l *FileSystem) Close(ctx context.Context, h fs.Handle) error {
	lh, err := l.handle(h)
	if err != nil {
		return err
	}
	if err := lh.file.Close(); err != nil {
		return fmt.Errorf("local: close %q: %w", lh.name, err)
	}
	return nil
}

// Fstat implements fs.FileSystem.
func (l *FileSystem) Fstat(ctx context.Context, h fs.Handle) (fs.FileStats, error) {
	lh, err := l.handle(h)
	if err != nil {
		return fs.FileStats{}, err
	}

	info, ok, err := lh.stat()
	if !ok {
		info, err = l.fs.Stat(lh.name)
	}
	if err != nil {
		return fs.FileStats{}, fmt.Errorf("local: fstat %q: %w", lh.name, err)
	}
	return l.toStats(lh.name, info), nil
}

// Futimes implements fs.FileSystem. The underlying filesystem must
// implement billy.Change.
func (l *FileSystem) Futimes(ctx context.Context, h fs.Handle, atime, mtime time.Time) error {
	lh, err := l.handle(h)
	if err != nil {
		return err
	}

	change, ok := l.fs.(billy.Change)
	if !ok {
		return errors.New(errors.CodeNotImplemented, "local: filesystem does not support changing times")
	}
	if err := change.Chtimes(lh.name, atime, mtime); err != nil {
		return fmt.Errorf("local: futimes %q: %w", lh.name, err)
	}
	return nil
}

// Get implements fs.FileSystem.
func (l *FileSystem) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("local: get %q: %w", path, err)
	}
	return f, nil
}

// Put implements fs.FileSystem. When opt.Handle is set the data is written
// into that open file, which stays open; otherwise path is opened with
// opt's flags and closed afterwards. If reading r fails, the read error is
// returned.
func (l *FileSystem) Put(ctx context.Context, r io.Reader, path string, opt fs.FileOption) error {
	var (
		w      io.Writer
		finish func() error
	)

	if opt.Handle != nil {
		lh, err := l.handle(opt.Handle)
		if err != nil {
			return err
		}
		w = lh.file
		finish = func() error { return nil }
	} else {
		f, err := l.fs.OpenFile(path, opt.PutFlags(), opt.FileMode())
		if err != nil {
			return fmt.Errorf("local: put %q: %w", path, err)
		}
		w = f
		finish = f.Close
	}

	src := &trackingReader{ctx: ctx, r: r}
	_, copyErr := pool.Copy(w, src)
	closeErr := finish()

	if src.err != nil {
		return src.err
	}
	if copyErr != nil {
		return fmt.Errorf("local: put %q: %w", path, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("local: put %q: %w", path, closeErr)
	}
	return nil
}

// Readlink implements fs.FileSystem.
func (l *FileSystem) Readlink(ctx context.Context, path string) (string, error) {
	target, err := l.fs.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("local: readlink %q: %w", path, err)
	}
	return target, nil
}

// Symlink implements fs.FileSystem.
func (l *FileSystem) Symlink(ctx context.Context, target, path string) error {
	if err := l.fs.Symlink(target, path); err != nil {
		return fmt.Errorf("local: symlink %q -> %q: %w", path, target, err)
	}
	return nil
}

// Mkdir implements fs.FileSystem. It fails with fs.ErrExist when dir exists
// and with fs.ErrNotExist when its parent is missing. Of several concurrent
// calls on one path exactly one succeeds. On the host file system that holds
// across processes; on other billy file systems only within this FileSystem.
func (l *FileSystem) Mkdir(ctx context.Context, dir string) error {
	if m, ok := l.fs.(dirMaker); ok {
		err := m.Mkdir(dir, 0o755)
		switch {
		case err == nil:
			return nil
		case stderrors.Is(err, os.ErrExist):
			return fs.NewPathError("mkdir", dir, fs.ErrExist)
		case stderrors.Is(err, os.ErrNotExist):
			return fs.NewPathError("mkdir", dir, fs.ErrNotExist)
		case stderrors.Is(err, syscall.ENOTDIR):
			return fs.NewPathError("mkdir", dir, fs.ErrNotDir)
		default:
			return fmt.Errorf("local: mkdir %q: %w", dir, err)
		}
	}

	l.mkdirMu.Lock()
	defer l.mkdirMu.Unlock()

	if _, err := l.fs.Lstat(dir); err == nil {
		return fs.NewPathError("mkdir", dir, fs.ErrExist)
	}

	parent := l.paths.Dirname(dir)
	if !l.paths.IsRoot(parent) {
		info, err := l.fs.Stat(parent)
		switch {
		case stderrors.Is(err, os.ErrNotExist):
			return fs.NewPathError("mkdir", dir, fs.ErrNotExist)
		case err != nil:
			return fmt.Errorf("local: mkdir %q: %w", dir, err)
		case !info.IsDir():
			return fs.NewPathError("mkdir", dir, fs.ErrNotDir)
		}
	}

	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("local: mkdir %q: %w", dir, err)
	}
	return nil
}

// EnsureDir implements fs.FileSystem.
func (l *FileSystem) EnsureDir(ctx context.Context, dir string) error {
	info, err := l.fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fs.NewPathError("ensuredir", dir, fs.ErrNotDir)
		}
		return nil
	}

	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("local: ensuredir %q: %w", dir, err)
	}
	return nil
}

// List implements fs.FileSystem.
func (l *FileSystem) List(ctx context.Context, dir string, opts ...fs.ListOption) ([]fs.FileEntry, error) {
	o := fs.ApplyListOptions(opts...)

	infos, err := l.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("local: list %q: %w", dir, err)
	}

	entries := make([]fs.FileEntry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if name == "." || name == ".." || name == "" {
			continue
		}
		if !o.ShowHiddenFiles && fs.IsHidden(name) {
			continue
		}

		p := l.paths.Join(dir, name)
		entries = append(entries, fs.FileEntry{
			FileStats: l.toStats(p, info),
			Path:      p,
			Name:      name,
		})
	}
	return entries, nil
}

// Unlink implements fs.FileSystem.
func (l *FileSystem) Unlink(ctx context.Context, path string) error {
	info, err := l.fs.Lstat(path)
	if err != nil {
		return fmt.Errorf("local: unlink %q: %w", path, err)
	}
	if info.IsDir() {
		return fs.NewPathError("unlink", path, errIsDir)
	}
	if err := l.fs.Remove(path); err != nil {
		return fmt.Errorf("local: unlink %q: %w", path, err)
	}
	return nil
}

// Rmdir implements fs.FileSystem. Without recursive, a non-empty directory
// fails with fs.ErrNotEmpty.
func (l *FileSystem) Rmdir(ctx context.Context, path string, recursive bool) error {
	if recursive {
		if err := util.RemoveAll(l.fs, path); err != nil {
			return fmt.Errorf("local: rmdir %q: %w", path, err)
		}
		return nil
	}

	info, err := l.fs.Lstat(path)
	if err != nil {
		return fmt.Errorf("local: rmdir %q: %w", path, err)
	}
	if !info.IsDir() {
		return fs.NewPathError("rmdir", path, fs.ErrNotDir)
	}

	children, err := l.fs.ReadDir(path)
	if err != nil {
		return fmt.Errorf("local: rmdir %q: %w", path, err)
	}
	if len(children) > 0 {
		return fs.NewPathError("rmdir", path, fs.ErrNotEmpty)
	}

	if err := l.fs.Remove(path); err != nil {
		return fmt.Errorf("local: rmdir %q: %w", path, err)
	}
	return nil
}

// Rename implements fs.FileSystem.
func (l *FileSystem) Rename(ctx context.Context, from, to string) error {
	if err := l.fs.Rename(from, to); err != nil {
		return fmt.Errorf("local: rename %q -> %q: %w", from, to, err)
	}
	return nil
}

// Chmod implements fs.FileSystem. The underlying filesystem must implement
// billy.Change.
func (l *FileSystem) Chmod(ctx context.Context, path string, mode os.FileMode) error {
	change, ok := l.fs.(billy.Change)
	if !ok {
		return errors.New(errors.CodeNotImplemented, "local: filesystem does not support chmod")
	}
	if err := change.Chmod(path, mode); err != nil {
		return fmt.Errorf("local: chmod %q: %w", path, err)
	}
	return nil
}

func (l *FileSystem) handle(h fs.Handle) (*Handle, error) {
	lh, ok := h.(*Handle)
	if !ok || lh == nil {
		return nil, ErrForeignHandle
	}
	return lh, nil
}

func (l *FileSystem) toStats(path string, info os.FileInfo) fs.FileStats {
	mtime := info.ModTime().UnixMilli()
	st := fs.FileStats{
		Type:  fs.TypeFromMode(info.Mode()),
		Mode:  fs.PermissionBits(info.Mode()),
		Size:  info.Size(),
		MTime: mtime,
		ATime: accessTime(info, mtime),
	}
	if st.Type == fs.TypeSymlink {
		if target, err := l.fs.Readlink(path); err == nil {
			st.Target = target
		}
	}
	return st
}

// trackingReader remembers the first error returned by the source, so Put
// can report it in preference to the writer's error.
type trackingReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	if err := t.ctx.Err(); err != nil {
		t.err = err
		return 0, err
	}
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

var _ fs.FileSystem = (*FileSystem)(nil)
