package fstest

import (
	"bytes"
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/wangziweng7890/vscode-iconfont/fs"
)

func readAll(ctx context.Context, t *testing.T, filesystem fs.FileSystem, path string) string {
	t.Helper()
	rc, err := filesystem.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get(%q): got error %v, want nil", path, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Read(%q): got error %v", path, err)
	}
	return string(data)
}

func exists(ctx context.Context, filesystem fs.FileSystem, path string) bool {
	_, err := filesystem.Lstat(ctx, path)
	return err == nil
}

// TestWriteFS tests Put and directory creation.
func TestWriteFS(t *testing.T, filesystem fs.FileSystem, root string, skip func(string) bool) {
	ctx := context.Background()
	p := filesystem.Paths()

	run(t, "PutNew", skip, func(t *testing.T) {
		path := p.Join(root, "new.txt")
		if err := filesystem.Put(ctx, strings.NewReader("hello"), path, fs.FileOption{}); err != nil {
			t.Fatalf("Put(%q): got error %v, want nil", path, err)
		}
		if got := readAll(ctx, t, filesystem, path); got != "hello" {
			t.Errorf("Put(%q): content = %q, want %q", path, got, "hello")
		}
	})

	run(t, "PutTruncates", skip, func(t *testing.T) {
		path := p.Join(root, "overwrite.txt")
		if err := filesystem.Put(ctx, strings.NewReader("a much longer first version"), path, fs.FileOption{}); err != nil {
			t.Fatalf("Put(%q): got error %v, want nil", path, err)
		}
		if err := filesystem.Put(ctx, strings.NewReader("short"), path, fs.FileOption{}); err != nil {
			t.Fatalf("Put(%q): got error %v, want nil", path, err)
		}
		if got := readAll(ctx, t, filesystem, path); got != "short" {
			t.Errorf("Put(%q): content = %q, want %q", path, got, "short")
		}
	})

	run(t, "PutLarge", skip, func(t *testing.T) {
		path := p.Join(root, "large.bin")
		content := bytes.Repeat([]byte("0123456789abcdef"), 32*1024)
		if err := filesystem.Put(ctx, bytes.NewReader(content), path, fs.FileOption{}); err != nil {
			t.Fatalf("Put(%q): got error %v, want nil", path, err)
		}
		st, err := filesystem.Lstat(ctx, path)
		if err != nil {
			t.Fatalf("Lstat(%q): got error %v", path, err)
		}
		if st.Size != int64(len(content)) {
			t.Errorf("Lstat(%q): Size = %d, want %d", path, st.Size, len(content))
		}
	})

	run(t, "PutInputError", skip, func(t *testing.T) {
		path := p.Join(root, "broken.txt")
		boom := errors.New("input failed")
		err := filesystem.Put(ctx, io.MultiReader(strings.NewReader("partial"), errReader{err: boom}), path, fs.FileOption{})
		if !errors.Is(err, boom) {
			t.Errorf("Put(%q): got error %v, want the input error", path, err)
		}
	})

	run(t, "Mkdir", skip, func(t *testing.T) {
		dir := p.Join(root, "made")
		if err := filesystem.Mkdir(ctx, dir); err != nil {
			t.Fatalf("Mkdir(%q): got error %v, want nil", dir, err)
		}
		st, err := filesystem.Lstat(ctx, dir)
		if err != nil || !st.IsDir() {
			t.Errorf("Lstat(%q): got (%v, %v), want a directory", dir, st.Type, err)
		}
		if err := filesystem.Mkdir(ctx, dir); err == nil {
			t.Errorf("Mkdir(%q) twice: got nil error, want error", dir)
		}
	})

	run(t, "MkdirMissingParent", skip, func(t *testing.T) {
		dir := p.Join(root, "nope", "child")
		if err := filesystem.Mkdir(ctx, dir); err == nil {
			t.Errorf("Mkdir(%q): got nil error, want error", dir)
		}
	})

	run(t, "EnsureDir", skip, func(t *testing.T) {
		dir := p.Join(root, "x", "y", "z")
		for i := 0; i < 2; i++ {
			if err := filesystem.EnsureDir(ctx, dir); err != nil {
				t.Fatalf("EnsureDir(%q) #%d: got error %v, want nil", dir, i+1, err)
			}
		}
		st, err := filesystem.Lstat(ctx, dir)
		if err != nil || !st.IsDir() {
			t.Errorf("Lstat(%q): got (%v, %v), want a directory", dir, st.Type, err)
		}
	})

	run(t, "EnsureDirOverFile", skip, func(t *testing.T) {
		path := p.Join(root, "occupied")
		if err := filesystem.Put(ctx, strings.NewReader("x"), path, fs.FileOption{}); err != nil {
			t.Fatalf("Put(%q): setup failed: %v", path, err)
		}
		if err := filesystem.EnsureDir(ctx, path); err == nil {
			t.Errorf("EnsureDir(%q): got nil error over a file, want error", path)
		}
	})
}

// TestManageFS tests Rename, Unlink and Rmdir.
func TestManageFS(t *testing.T, filesystem fs.FileSystem, root string, skip func(string) bool) {
	ctx := context.Background()
	p := filesystem.Paths()

	run(t, "Rename", skip, func(t *testing.T) {
		from, to := p.Join(root, "from.txt"), p.Join(root, "to.txt")
		if err := filesystem.Put(ctx, strings.NewReader("moving"), from, fs.FileOption{}); err != nil {
			t.Fatalf("Put(%q): setup failed: %v", from, err)
		}
		if err := filesystem.Rename(ctx, from, to); err != nil {
			t.Fatalf("Rename(%q, %q): got error %v, want nil", from, to, err)
		}
		if exists(ctx, filesystem, from) {
			t.Errorf("Rename: %q still exists", from)
		}
		if got := readAll(ctx, t, filesystem, to); got != "moving" {
			t.Errorf("Rename: content = %q, want %q", got, "moving")
		}
	})

	run(t, "Unlink", skip, func(t *testing.T) {
		path := p.Join(root, "gone.txt")
		if err := filesystem.Put(ctx, strings.NewReader("x"), path, fs.FileOption{}); err != nil {
			t.Fatalf("Put(%q): setup failed: %v", path, err)
		}
		if err := filesystem.Unlink(ctx, path); err != nil {
			t.Fatalf("Unlink(%q): got error %v, want nil", path, err)
		}
		_, err := filesystem.Lstat(ctx, path)
		if !errors.Is(err, iofs.ErrNotExist) {
			t.Errorf("Lstat(%q) after Unlink: got %v, want ErrNotExist", path, err)
		}
		if err := filesystem.Unlink(ctx, path); err == nil {
			t.Errorf("Unlink(%q) twice: got nil error, want error", path)
		}
	})

	run(t, "RmdirEmpty", skip, func(t *testing.T) {
		dir := p.Join(root, "empty")
		if err := filesystem.Mkdir(ctx, dir); err != nil {
			t.Fatalf("Mkdir(%q): setup failed: %v", dir, err)
		}
		if err := filesystem.Rmdir(ctx, dir, false); err != nil {
			t.Fatalf("Rmdir(%q): got error %v, want nil", dir, err)
		}
		if exists(ctx, filesystem, dir) {
			t.Errorf("Rmdir: %q still exists", dir)
		}
	})

	run(t, "RmdirNotEmpty", skip, func(t *testing.T) {
		dir := p.Join(root, "full")
		nested := p.Join(dir, "nested")
		if err := filesystem.EnsureDir(ctx, nested); err != nil {
			t.Fatalf("EnsureDir(%q): setup failed: %v", nested, err)
		}
		if err := filesystem.Put(ctx, strings.NewReader("x"), p.Join(nested, "f"), fs.FileOption{}); err != nil {
			t.Fatalf("Put: setup failed: %v", err)
		}
		if err := filesystem.Rmdir(ctx, dir, false); err == nil {
			t.Errorf("Rmdir(%q, false): got nil error on a non-empty directory, want error", dir)
		}
		if err := filesystem.Rmdir(ctx, dir, true); err != nil {
			t.Fatalf("Rmdir(%q, true): got error %v, want nil", dir, err)
		}
		if exists(ctx, filesystem, dir) {
			t.Errorf("Rmdir: %q still exists", dir)
		}
	})
}

// TestMetadataFS tests handles, Futimes and Chmod.
func TestMetadataFS(t *testing.T, filesystem fs.FileSystem, root string, skip func(string) bool) {
	ctx := context.Background()
	p := filesystem.Paths()
	path := p.Join(root, "meta.txt")
	if err := filesystem.Put(ctx, strings.NewReader("12345"), path, fs.FileOption{}); err != nil {
		t.Fatalf("Put(%q): setup failed: %v", path, err)
	}

	run(t, "Handle", skip, func(t *testing.T) {
		h, err := filesystem.Open(ctx, path, fs.FileOption{})
		if err != nil {
			t.Fatalf("Open(%q): got error %v, want nil", path, err)
		}
		if h.Path() != path {
			t.Errorf("Handle.Path() = %q, want %q", h.Path(), path)
		}
		st, err := filesystem.Fstat(ctx, h)
		if err != nil {
			t.Errorf("Fstat(%q): got error %v, want nil", path, err)
		} else if st.Size != 5 {
			t.Errorf("Fstat(%q): Size = %d, want 5", path, st.Size)
		}
		if err := filesystem.Close(ctx, h); err != nil {
			t.Errorf("Close(%q): got error %v, want nil", path, err)
		}
	})

	run(t, "Futimes", skip, func(t *testing.T) {
		mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		h, err := filesystem.Open(ctx, path, fs.FileOption{})
		if err != nil {
			t.Fatalf("Open(%q): got error %v, want nil", path, err)
		}
		defer func() { _ = filesystem.Close(ctx, h) }()

		if err := filesystem.Futimes(ctx, h, mtime, mtime); err != nil {
			t.Fatalf("Futimes(%q): got error %v, want nil", path, err)
		}
		st, err := filesystem.Lstat(ctx, path)
		if err != nil {
			t.Fatalf("Lstat(%q): got error %v", path, err)
		}
		if !st.ModTime().Equal(mtime) {
			t.Errorf("Lstat(%q): ModTime = %v, want %v", path, st.ModTime(), mtime)
		}
	})

	run(t, "Chmod", skip, func(t *testing.T) {
		if err := filesystem.Chmod(ctx, path, 0o640); err != nil {
			t.Fatalf("Chmod(%q): got error %v, want nil", path, err)
		}
		st, err := filesystem.Lstat(ctx, path)
		if err != nil {
			t.Fatalf("Lstat(%q): got error %v", path, err)
		}
		if st.Mode != os.FileMode(0o640) {
			t.Errorf("Lstat(%q): Mode = %o, want 640", path, st.Mode)
		}
	})
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
