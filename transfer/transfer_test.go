package transfer_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/local"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote/remotetest"
	"github.com/wangziweng7890/vscode-iconfont/scheduler"
	"github.com/wangziweng7890/vscode-iconfont/transfer"
)

func newQueue(t *testing.T, concurrency int) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(concurrency)
	require.NoError(t, err)
	return s
}

func newRemote(t *testing.T, client *remotetest.Client) *remote.FileSystem {
	t.Helper()
	r, err := remote.New(client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Disconnect(context.Background()) })
	return r
}

func put(t *testing.T, fsys fs.FileSystem, path, content string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fsys.EnsureDir(ctx, fsys.Paths().Dirname(path)))
	require.NoError(t, fsys.Put(ctx, strings.NewReader(content), path, fs.FileOption{}))
}

func TestCopyFile(t *testing.T) {
	ctx := context.Background()

	t.Run("local to remote", func(t *testing.T) {
		src := local.NewMemory()
		put(t, src, "/src/a.txt", "alpha")
		st, err := src.Lstat(ctx, "/src/a.txt")
		require.NoError(t, err)

		client := remotetest.NewClient()
		dst := newRemote(t, client)

		tr := transfer.New(newQueue(t, 2))
		require.NoError(t, tr.CopyFile(ctx, src, "/src/a.txt", dst, "/out/deep/a.txt"))

		got, ok := client.ReadFile("/out/deep/a.txt")
		require.True(t, ok)
		assert.Equal(t, "alpha", got)
		assert.Equal(t, st.MTime, client.ModTime("/out/deep/a.txt").UnixMilli())
	})

	t.Run("remote to local", func(t *testing.T) {
		mtime := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
		client := remotetest.NewClient()
		client.AddFile("/data/b.txt", "bravo", mtime)
		src := newRemote(t, client)

		dir := t.TempDir()
		dstPath := filepath.Join(dir, "nested", "b.txt")

		tr := transfer.New(newQueue(t, 1))
		require.NoError(t, tr.CopyFile(ctx, src, "/data/b.txt", local.NewOS(), dstPath))

		data, err := os.ReadFile(dstPath)
		require.NoError(t, err)
		assert.Equal(t, "bravo", string(data))

		info, err := os.Stat(dstPath)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mtime), "mtime = %v, want %v", info.ModTime(), mtime)
	})

	t.Run("without times", func(t *testing.T) {
		src := local.NewMemory()
		put(t, src, "/a.txt", "x")
		client := remotetest.NewClient()
		dst := newRemote(t, client)

		tr := transfer.New(newQueue(t, 1), transfer.WithPreserveTimes(false))
		require.NoError(t, tr.CopyFile(ctx, src, "/a.txt", dst, "/a.txt"))
		assert.Zero(t, client.CountCalls("MFMT"))
	})

	t.Run("directory", func(t *testing.T) {
		src := local.NewMemory()
		require.NoError(t, src.EnsureDir(ctx, "/dir"))

		tr := transfer.New(newQueue(t, 1))
		err := tr.CopyFile(ctx, src, "/dir", local.NewMemory(), "/dir")
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})

	t.Run("missing source", func(t *testing.T) {
		tr := transfer.New(newQueue(t, 1))
		err := tr.CopyFile(ctx, local.NewMemory(), "/nope", local.NewMemory(), "/nope")
		assert.True(t, stderrors.Is(err, os.ErrNotExist))
	})

	t.Run("put failure", func(t *testing.T) {
		src := local.NewMemory()
		put(t, src, "/a.txt", "x")
		client := remotetest.NewClient()
		boom := stderrors.New("disk full")
		client.FailNext("store", boom)
		dst := newRemote(t, client)

		tr := transfer.New(newQueue(t, 1))
		err := tr.CopyFile(ctx, src, "/a.txt", dst, "/a.txt")
		assert.True(t, stderrors.Is(err, boom))
	})
}

func TestCopyTree(t *testing.T) {
	ctx := context.Background()
	mtime := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)

	client := remotetest.NewClient()
	client.AddFile("/site/index.html", "<html>", mtime)
	client.AddFile("/site/.env", "SECRET=1", mtime)
	client.AddFile("/site/css/main.css", "body{}", mtime)
	client.AddFile("/site/js/app/main.js", "run()", mtime)
	client.AddDir("/site/empty")
	client.AddSymlink("/site/current", "index.html")
	src := newRemote(t, client)

	dir := t.TempDir()
	var (
		mu       sync.Mutex
		progress []int64
	)
	tr := transfer.New(newQueue(t, 3), transfer.WithProgress(func(files, bytes int64) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, files)
	}))

	result, err := tr.CopyTree(ctx, src, "/site", local.NewOS(), dir)
	require.NoError(t, err)

	assert.Equal(t, int64(4), result.Files)
	assert.Equal(t, int64(len("<html>")+len("SECRET=1")+len("body{}")+len("run()")), result.Bytes)
	assert.Empty(t, result.Errors)
	assert.Positive(t, result.Duration)
	assert.Len(t, progress, 4)

	for rel, want := range map[string]string{
		"index.html":     "<html>",
		".env":           "SECRET=1",
		"css/main.css":   "body{}",
		"js/app/main.js": "run()",
	} {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		data, err := os.ReadFile(p)
		require.NoError(t, err, rel)
		assert.Equal(t, want, string(data), rel)

		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mtime), "%s mtime = %v", rel, info.ModTime())
	}

	info, err := os.Stat(filepath.Join(dir, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	target, err := os.Readlink(filepath.Join(dir, "current"))
	require.NoError(t, err)
	assert.Equal(t, "index.html", target)
}

func TestCopyTreeIgnore(t *testing.T) {
	ctx := context.Background()
	src := local.NewMemory()
	put(t, src, "/p/main.go", "package main")
	put(t, src, "/p/debug.log", "noise")
	put(t, src, "/p/keep.log", "signal")
	put(t, src, "/p/node_modules/x/index.js", "x")
	put(t, src, "/p/sub/node_modules.txt", "kept")

	client := remotetest.NewClient()
	dst := newRemote(t, client)

	tr := transfer.New(newQueue(t, 2), transfer.WithIgnore("*.log", "!keep.log", "node_modules/"))
	result, err := tr.CopyTree(ctx, src, "/p", dst, "/out")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Files)

	assert.True(t, client.Exists("/out/main.go"))
	assert.True(t, client.Exists("/out/keep.log"))
	assert.True(t, client.Exists("/out/sub/node_modules.txt"))
	assert.False(t, client.Exists("/out/debug.log"))
	assert.False(t, client.Exists("/out/node_modules"))
}

func TestCopyTreeCollectsErrors(t *testing.T) {
	ctx := context.Background()
	src := local.NewMemory()
	put(t, src, "/in/a", "1")
	put(t, src, "/in/b", "2")
	put(t, src, "/in/c", "3")

	client := remotetest.NewClient()
	boom := stderrors.New("permission denied")
	client.FailNext("store", boom)
	dst := newRemote(t, client)

	tr := transfer.New(newQueue(t, 2))
	result, err := tr.CopyTree(ctx, src, "/in", dst, "/out")
	require.Error(t, err)
	assert.Equal(t, errors.CodeTransferFailed, errors.GetCode(err))
	assert.True(t, stderrors.Is(err, boom))

	require.NotNil(t, result)
	assert.Equal(t, int64(2), result.Files)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0].Source, "/in/"))
	assert.True(t, strings.HasPrefix(result.Errors[0].Destination, "/out/"))
}

func TestCopyTreeSkipsSubtreeOfFailedDirectory(t *testing.T) {
	ctx := context.Background()
	src := local.NewMemory()
	put(t, src, "/in/top.txt", "t")
	put(t, src, "/in/blocked/inner.txt", "i")

	client := remotetest.NewClient()
	client.AddFile("/out/blocked", "a file in the way", time.Now())
	dst := newRemote(t, client)

	tr := transfer.New(newQueue(t, 2))
	result, err := tr.CopyTree(ctx, src, "/in", dst, "/out")
	require.Error(t, err)

	assert.Equal(t, int64(1), result.Files)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "/out/blocked", result.Errors[0].Destination)
	assert.Zero(t, client.CountCalls("STOR /out/blocked/"))
}

func TestCopyTreeNotADirectory(t *testing.T) {
	ctx := context.Background()
	src := local.NewMemory()
	put(t, src, "/file", "x")

	tr := transfer.New(newQueue(t, 1))
	_, err := tr.CopyTree(ctx, src, "/file", local.NewMemory(), "/out")
	assert.Equal(t, errors.CodeNotADirectory, errors.GetCode(err))
}

func TestCopyTreeCancelled(t *testing.T) {
	src := local.NewMemory()
	put(t, src, "/in/a", "1")
	dst := local.NewMemory()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := transfer.New(newQueue(t, 1))
	result, err := tr.CopyTree(ctx, src, "/in", dst, "/out")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.Files)

	_, err = dst.Lstat(context.Background(), "/out")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// cancellingFS cancels the copy the first time a directory is listed.
type cancellingFS struct {
	fs.FileSystem
	cancel context.CancelFunc
}

func (c *cancellingFS) List(ctx context.Context, dir string, opts ...fs.ListOption) ([]fs.FileEntry, error) {
	entries, err := c.FileSystem.List(ctx, dir, opts...)
	c.cancel()
	return entries, err
}

func TestCopyTreeCancelledDuringWalk(t *testing.T) {
	mem := local.NewMemory()
	put(t, mem, "/in/top.txt", "t")
	put(t, mem, "/in/sub/deep.txt", "d")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &cancellingFS{FileSystem: mem, cancel: cancel}

	tr := transfer.New(newQueue(t, 1))
	result, err := tr.CopyTree(ctx, src, "/in", local.NewMemory(), "/out")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.Files)
	require.NotEmpty(t, result.Errors)
	assert.ErrorIs(t, result.Errors[0], context.Canceled)
}

func TestParseIgnore(t *testing.T) {
	patterns, err := transfer.ParseIgnore(strings.NewReader("# build output\n\nbin/\n*.tmp\n  \n!keep.tmp\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/", "*.tmp", "!keep.tmp"}, patterns)

	ig := transfer.NewIgnore(patterns...)
	assert.Equal(t, 3, ig.Len())
	assert.True(t, ig.Match([]string{"bin"}, true))
	assert.False(t, ig.Match([]string{"bin"}, false))
	assert.True(t, ig.Match([]string{"a", "b.tmp"}, false))
	assert.False(t, ig.Match([]string{"keep.tmp"}, false))

	var none *transfer.Ignore
	assert.False(t, none.Match([]string{"x"}, false))
}

func TestReadIgnoreFile(t *testing.T) {
	ctx := context.Background()
	fsys := local.NewMemory()
	put(t, fsys, "/.rfsignore", "*.bak\n")

	patterns, err := transfer.ReadIgnoreFile(ctx, fsys, "/.rfsignore")
	require.NoError(t, err)
	assert.Equal(t, []string{"*.bak"}, patterns)

	_, err = transfer.ReadIgnoreFile(ctx, fsys, "/missing")
	assert.Error(t, err)
}
