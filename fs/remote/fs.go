// Package remote implements fs.FileSystem over a single-connection protocol
// client.
//
// Protocols such as FTP cannot multiplex commands on one control connection.
// FileSystem therefore owns a private scheduler with a concurrency of one and
// submits every client command to it as a job: commands reach the wire one at
// a time, in the order callers issued them, however many goroutines use the
// file system at once.
//
// On top of the raw commands it adds stat by parent listing, directory
// creation that recovers from ambiguous server replies, chmod through a site
// command, upload abort on input failure, and a modification-time capability
// that switches itself off the first time the server rejects it.
//
// A download holds the connection until its reader is closed. Close the
// reader returned by Get before issuing further commands on the same
// FileSystem from the same goroutine, or that goroutine will wait forever.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/scheduler"
)

// FileSystem is an fs.FileSystem backed by a Client.
type FileSystem struct {
	client Client
	queue  *scheduler.Scheduler
	logger *slog.Logger
	paths  fs.PathResolver
	offset time.Duration

	modTimeUnsupported atomic.Bool
}

// New wraps client. The FileSystem takes ownership of the client and closes
// it on Disconnect.
func New(client Client, opts ...Option) (*FileSystem, error) {
	o := applyOptions(opts...)

	queue, err := scheduler.New(1, scheduler.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("remote: create command queue: %w", err)
	}

	return &FileSystem{
		client: client,
		queue:  queue,
		logger: o.logger,
		paths:  o.paths,
		offset: o.timeOffset,
	}, nil
}

// Paths implements fs.FileSystem.
//
//nolint:ireturn // resolvers are shared values behind an interface.
func (r *FileSystem) Paths() fs.PathResolver {
	return r.paths
}

// Queue returns the command queue. It is exposed for observation; submitting
// jobs that talk to the client directly breaks command ordering.
func (r *FileSystem) Queue() *scheduler.Scheduler {
	return r.queue
}

// SupportsModTime reports whether Futimes still reaches the server.
func (r *FileSystem) SupportsModTime() bool {
	return !r.modTimeUnsupported.Load()
}

// exec runs fn as one job on the command queue. A job whose context ended
// while it waited does not touch the connection. Once a job has started, exec
// waits for it and returns its outcome whatever happens to ctx.
func (r *FileSystem) exec(ctx context.Context, fn func(ctx context.Context) error) error {
	var claimed atomic.Bool
	f := r.queue.Add(ctx, scheduler.JobFunc(func(ctx context.Context) (any, error) {
		if !claimed.CompareAndSwap(false, true) {
			return nil, ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fn(ctx)
	}))

	select {
	case <-f.Done():
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		<-f.Done()
	}
	_, err := f.Wait(context.WithoutCancel(ctx))
	return err
}

// Lstat implements fs.FileSystem. The root is answered without a round
// trip; any other path costs a listing of its parent.
func (r *FileSystem) Lstat(ctx context.Context, path string) (fs.FileStats, error) {
	if r.paths.IsRoot(path) {
		return fs.FileStats{
			Type: fs.TypeDirectory,
			Mode: DefaultMode,
		}, nil
	}

	parent := r.paths.Dirname(path)
	name := r.paths.Basename(path)

	entries, err := r.List(ctx, parent, fs.WithHiddenFiles())
	if err != nil {
		return fs.FileStats{}, err
	}

	for _, e := range entries {
		if e.Name == name {
			return e.FileStats, nil
		}
	}
	return fs.FileStats{}, fs.NewPathError("lstat", path, fs.ErrNotExist)
}

// Open implements fs.FileSystem. No command is sent; the handle only records
// its arguments.
//
//nolint:ireturn // handles are opaque to callers.
func (r *FileSystem) Open(ctx context.Context, path string, opt fs.FileOption) (fs.Handle, error) {
	return &fs.PathHandle{Name: path, Flags: opt.Flags, Mode: opt.Mode}, nil
}

// Close implements fs.FileSystem.
func (r *FileSystem) Close(ctx context.Context, h fs.Handle) error {
	return nil
}

// Fstat implements fs.FileSystem.
func (r *FileSystem) Fstat(ctx context.Context, h fs.Handle) (fs.FileStats, error) {
	return r.Lstat(ctx, h.Path())
}

// Futimes implements fs.FileSystem. Only the modification time reaches the
// server. The first failure disables the capability for the lifetime of the
// connection; later calls, and the failing one, report success.
func (r *FileSystem) Futimes(ctx context.Context, h fs.Handle, atime, mtime time.Time) error {
	if r.modTimeUnsupported.Load() {
		return nil
	}

	path := h.Path()
	err := r.exec(ctx, func(ctx context.Context) error {
		return r.client.SetModTime(ctx, path, mtime.Add(-r.offset))
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.modTimeUnsupported.Store(true)
		r.logger.Info("server does not support setting modification time", "path", path, "error", err)
	}
	return nil
}

// Get implements fs.FileSystem. The download keeps the connection busy until
// the returned reader is closed.
func (r *FileSystem) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	type opened struct {
		rc  io.ReadCloser
		err error
	}
	ready := make(chan opened, 1)

	r.queue.Add(ctx, scheduler.JobFunc(func(ctx context.Context) (any, error) {
		if err := ctx.Err(); err != nil {
			ready <- opened{err: err}
			return nil, err
		}

		rc, err := r.client.Retrieve(ctx, path)
		if err != nil {
			ready <- opened{err: err}
			return nil, err
		}
		if rc == nil {
			err = fmt.Errorf("remote: get %q: server returned no stream", path)
			ready <- opened{err: err}
			return nil, err
		}

		held := newHeldReader(rc)
		ready <- opened{rc: held}
		return nil, held.wait()
	}))

	select {
	case res := <-ready:
		return res.rc, res.err
	case <-ctx.Done():
		go func() {
			if res := <-ready; res.rc != nil {
				_ = res.rc.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Put implements fs.FileSystem. If reading r fails mid-transfer, or ctx ends
// while the upload runs, the upload is aborted on the connection and the read
// error (or ctx.Err()) is returned instead of whatever the aborted transfer
// reports. Put does not return while the transfer still reads from in.
func (r *FileSystem) Put(ctx context.Context, in io.Reader, path string, opt fs.FileOption) error {
	src := newAbortingReader(ctx, in, func() {
		if err := r.client.Abort(context.WithoutCancel(ctx)); err != nil {
			r.logger.Error("failed to abort transfer", "path", path, "error", err)
		}
	})

	err := r.exec(ctx, func(ctx context.Context) error {
		return r.client.Store(ctx, src, path)
	})
	if inputErr := src.failure(); inputErr != nil {
		return inputErr
	}
	return err
}

// Readlink implements fs.FileSystem using the target captured by the
// parent listing.
func (r *FileSystem) Readlink(ctx context.Context, path string) (string, error) {
	st, err := r.Lstat(ctx, path)
	if err != nil {
		return "", err
	}
	return st.Target, nil
}

// Symlink implements fs.FileSystem. The protocols cannot create links, so
// it does nothing.
func (r *FileSystem) Symlink(ctx context.Context, target, path string) error {
	return nil
}

// Mkdir implements fs.FileSystem.
func (r *FileSystem) Mkdir(ctx context.Context, dir string) error {
	return r.exec(ctx, func(ctx context.Context) error {
		return r.client.MakeDir(ctx, dir)
	})
}

// EnsureDir implements fs.FileSystem.
func (r *FileSystem) EnsureDir(ctx context.Context, dir string) error {
	return r.ensureDir(ctx, dir, true)
}

// ensureDir creates dir, recovering from replies that do not say whether
// the directory exists or its parent is missing. checkExistFirst is off for
// parents created during recursion, which are known to be missing.
func (r *FileSystem) ensureDir(ctx context.Context, dir string, checkExistFirst bool) error {
	if checkExistFirst {
		st, err := r.Lstat(ctx, dir)
		if err == nil {
			if st.Type != fs.TypeDirectory {
				r.logger.Error("path is not a directory", "path", dir, "type", st.Type.String())
				return fs.NewPathError("ensuredir", dir, ErrNotADirectory)
			}
			return nil
		}
	}

	err := r.Mkdir(ctx, dir)
	if err == nil {
		return nil
	}

	switch Classify(err) {
	case ClassExists:
		return nil

	case ClassParentMissing:
		parent := r.paths.Dirname(dir)
		if parent == dir {
			return err
		}
		if perr := r.ensureDir(ctx, parent, false); perr != nil {
			return perr
		}
		return r.Mkdir(ctx, dir)

	default:
		st, serr := r.Lstat(ctx, dir)
		if serr != nil || st.Type != fs.TypeDirectory {
			return err
		}
		return nil
	}
}

// List implements fs.FileSystem.
func (r *FileSystem) List(ctx context.Context, dir string, opts ...fs.ListOption) ([]fs.FileEntry, error) {
	o := fs.ApplyListOptions(opts...)

	var raw []Entry
	err := r.exec(ctx, func(ctx context.Context) error {
		var err error
		raw, err = r.client.List(ctx, dir)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]fs.FileEntry, 0, len(raw))
	for _, e := range raw {
		if e.Name == "" || e.Name == "." || e.Name == ".." {
			continue
		}
		if !o.ShowHiddenFiles && fs.IsHidden(e.Name) {
			continue
		}
		entries = append(entries, fs.FileEntry{
			FileStats: r.toStats(e),
			Path:      r.paths.Join(dir, e.Name),
			Name:      e.Name,
		})
	}
	return entries, nil
}

// Unlink implements fs.FileSystem.
func (r *FileSystem) Unlink(ctx context.Context, path string) error {
	return r.exec(ctx, func(ctx context.Context) error {
		return r.client.Delete(ctx, path)
	})
}

// Rmdir implements fs.FileSystem.
func (r *FileSystem) Rmdir(ctx context.Context, path string, recursive bool) error {
	return r.exec(ctx, func(ctx context.Context) error {
		return r.client.RemoveDir(ctx, path, recursive)
	})
}

// Rename implements fs.FileSystem.
func (r *FileSystem) Rename(ctx context.Context, from, to string) error {
	return r.exec(ctx, func(ctx context.Context) error {
		return r.client.Rename(ctx, from, to)
	})
}

// Chmod implements fs.FileSystem with a CHMOD site command.
func (r *FileSystem) Chmod(ctx context.Context, path string, mode os.FileMode) error {
	command := fmt.Sprintf("CHMOD %o %s", mode.Perm(), path)
	return r.exec(ctx, func(ctx context.Context) error {
		return r.client.Site(ctx, command)
	})
}

// Disconnect waits for queued commands to finish and closes the client.
func (r *FileSystem) Disconnect(ctx context.Context) error {
	if err := r.queue.WaitIdle(ctx); err != nil {
		return fmt.Errorf("remote: disconnect: %w", err)
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("remote: disconnect: %w", err)
	}
	return nil
}

func (r *FileSystem) toStats(e Entry) fs.FileStats {
	var mtime int64
	if !e.ModTime.IsZero() {
		mtime = e.ModTime.Add(r.offset).UnixMilli()
	}

	mode := e.Mode.Perm()
	if !e.HasMode {
		mode = DefaultMode
	}

	return fs.FileStats{
		Type:   e.Type,
		Mode:   mode,
		Size:   e.Size,
		MTime:  mtime,
		ATime:  mtime,
		Target: e.Target,
	}
}

var _ fs.FileSystem = (*FileSystem)(nil)
