package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/scheduler"
)

// Transferer copies files between file systems using a shared scheduler.
type Transferer struct {
	queue         *scheduler.Scheduler
	logger        *slog.Logger
	preserveTimes bool
	progress      ProgressFunc
	ignore        *Ignore
}

// New creates a Transferer that runs its copies on queue.
func New(queue *scheduler.Scheduler, opts ...Option) *Transferer {
	o := applyOptions(opts...)
	return &Transferer{
		queue:         queue,
		logger:        o.logger,
		preserveTimes: o.preserveTimes,
		progress:      o.progress,
		ignore:        NewIgnore(o.ignore...),
	}
}

// Result describes the outcome of a CopyTree call.
type Result struct {
	// Files is the number of files copied.
	Files int64

	// Bytes is the number of bytes copied.
	Bytes int64

	// Errors holds one entry per file or directory that could not be copied.
	Errors []Error

	// Duration is how long the copy took.
	Duration time.Duration
}

// Error records a failed copy of a single path.
type Error struct {
	Source      string
	Destination string
	Err         error
}

// Error implements error.
func (e Error) Error() string {
	return fmt.Sprintf("%s -> %s: %v", e.Source, e.Destination, e.Err)
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

// CopyFile copies a single file. The destination parent directory is created
// when missing.
func (t *Transferer) CopyFile(
	ctx context.Context,
	src fs.FileSystem, srcPath string,
	dst fs.FileSystem, dstPath string,
) error {
	_, err := scheduler.Do(ctx, t.queue, func(ctx context.Context) (int64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		stats, err := src.Lstat(ctx, srcPath)
		if err != nil {
			return 0, err
		}
		if stats.IsDir() {
			return 0, errors.Newf(errors.CodeInvalidInput, "transfer: %s is a directory", srcPath)
		}
		if err := dst.EnsureDir(ctx, dst.Paths().Dirname(dstPath)); err != nil {
			return 0, fmt.Errorf("transfer: create parent of %s: %w", dstPath, err)
		}
		return t.copy(ctx, src, srcPath, stats, dst, dstPath)
	})
	return err
}

// CopyTree copies the content of srcDir into dstDir, creating dstDir and
// every subdirectory first. Files are copied in parallel up to the
// scheduler's concurrency limit. A failed file does not stop the others; the
// returned error summarizes the failures recorded in the result.
func (t *Transferer) CopyTree(
	ctx context.Context,
	src fs.FileSystem, srcDir string,
	dst fs.FileSystem, dstDir string,
) (*Result, error) {
	start := time.Now()
	stats, err := src.Lstat(ctx, srcDir)
	if err != nil {
		return nil, err
	}
	if !stats.IsDir() {
		return nil, errors.Newf(errors.CodeNotADirectory, "transfer: %s is not a directory", srcDir)
	}

	c := &collector{}
	p := t.plan(ctx, src, srcDir, dst, dstDir, c)
	if err := ctx.Err(); err != nil {
		return c.result(time.Since(start)), err
	}

	for _, dir := range p.dirs {
		if p.skipped(dir.dst, dst.Paths()) {
			p.skip(dir.dst)
			continue
		}
		if err := dst.EnsureDir(ctx, dir.dst); err != nil {
			c.fail(dir.src, dir.dst, err)
			p.skip(dir.dst)
		}
	}

	for _, link := range p.links {
		if p.skipped(link.dst, dst.Paths()) {
			continue
		}
		if err := dst.Symlink(ctx, link.stats.Target, link.dst); err != nil {
			c.fail(link.src, link.dst, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return c.result(time.Since(start)), err
	}

	jobs := make([]scheduler.Job, 0, len(p.files))
	for _, f := range p.files {
		if p.skipped(f.dst, dst.Paths()) {
			continue
		}
		jobs = append(jobs, scheduler.JobFunc(func(ctx context.Context) (any, error) {
			if err := ctx.Err(); err != nil {
				c.fail(f.src, f.dst, err)
				return nil, err
			}
			n, err := t.copy(ctx, src, f.src, f.stats, dst, f.dst)
			if err != nil {
				c.fail(f.src, f.dst, err)
				return nil, err
			}
			files, bytes := c.done(n)
			if t.progress != nil {
				t.progress(files, bytes)
			}
			return n, nil
		}))
	}

	t.logger.Debug("copying tree", "src", srcDir, "dst", dstDir, "files", len(jobs), "dirs", len(p.dirs))

	batch := t.queue.AddAll(ctx, jobs)
	for _, f := range batch.Futures() {
		if _, err := f.Wait(ctx); err != nil && ctx.Err() != nil {
			result := c.result(time.Since(start))
			return result, ctx.Err()
		}
	}

	result := c.result(time.Since(start))
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(result.Errors) > 0 {
		return result, errors.WrapWithContext(
			result.Errors[0],
			errors.CodeTransferFailed,
			fmt.Sprintf("transfer: %d of %d paths failed", len(result.Errors), int64(len(result.Errors))+result.Files),
			map[string]interface{}{"src": srcDir, "dst": dstDir},
		)
	}
	return result, nil
}

// copy streams one file and carries its modification time over.
func (t *Transferer) copy(
	ctx context.Context,
	src fs.FileSystem, srcPath string, stats fs.FileStats,
	dst fs.FileSystem, dstPath string,
) (int64, error) {
	rc, err := src.Get(ctx, srcPath)
	if err != nil {
		return 0, err
	}

	cr := &countingReader{r: rc}
	putErr := dst.Put(ctx, cr, dstPath, fs.FileOption{Mode: stats.Mode.Perm()})
	closeErr := rc.Close()
	if putErr != nil {
		return cr.n, putErr
	}
	if closeErr != nil {
		return cr.n, closeErr
	}

	if t.preserveTimes && stats.MTime != 0 {
		if err := t.setTimes(ctx, dst, dstPath, stats); err != nil {
			return cr.n, err
		}
	}

	t.logger.Debug("copied file", "src", srcPath, "dst", dstPath, "bytes", cr.n)
	return cr.n, nil
}

func (t *Transferer) setTimes(ctx context.Context, dst fs.FileSystem, path string, stats fs.FileStats) error {
	h, err := dst.Open(ctx, path, fs.FileOption{})
	if err != nil {
		return err
	}

	atime := stats.AccessTime()
	if stats.ATime == 0 {
		atime = stats.ModTime()
	}
	err = dst.Futimes(ctx, h, atime, stats.ModTime())
	closeErr := dst.Close(ctx, h)

	if errors.HasCode(err, errors.CodeNotImplemented) {
		t.logger.Debug("destination cannot set times", "path", path)
		err = nil
	}
	if err != nil {
		return err
	}
	return closeErr
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// collector accumulates results from concurrent copy jobs.
type collector struct {
	mu     sync.Mutex
	files  int64
	bytes  int64
	errors []Error
}

func (c *collector) done(n int64) (files, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files++
	c.bytes += n
	return c.files, c.bytes
}

func (c *collector) fail(src, dst string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, Error{Source: src, Destination: dst, Err: err})
}

func (c *collector) result(d time.Duration) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Result{
		Files:    c.files,
		Bytes:    c.bytes,
		Errors:   append([]Error(nil), c.errors...),
		Duration: d,
	}
}
