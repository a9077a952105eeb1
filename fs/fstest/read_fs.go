package fstest

import (
	"bytes"
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"sort"
	"testing"

	"github.com/wangziweng7890/vscode-iconfont/fs"
)

// TestReadFS tests read operations: Lstat, List and Get.
func TestReadFS(t *testing.T, filesystem fs.FileSystem, root string, skip func(string) bool) {
	ctx := context.Background()
	p := filesystem.Paths()
	testContent := []byte("test file content")

	dir := p.Join(root, "testdir")
	if err := filesystem.EnsureDir(ctx, dir); err != nil {
		t.Fatalf("EnsureDir(%q): setup failed: %v", dir, err)
	}
	file := p.Join(dir, "testfile.txt")
	if err := filesystem.Put(ctx, bytes.NewReader(testContent), file, fs.FileOption{}); err != nil {
		t.Fatalf("Put(%q): setup failed: %v", file, err)
	}
	hidden := p.Join(dir, ".hidden")
	if err := filesystem.Put(ctx, bytes.NewReader([]byte("h")), hidden, fs.FileOption{}); err != nil {
		t.Fatalf("Put(%q): setup failed: %v", hidden, err)
	}

	run(t, "LstatFile", skip, func(t *testing.T) {
		st, err := filesystem.Lstat(ctx, file)
		if err != nil {
			t.Fatalf("Lstat(%q): got error %v, want nil", file, err)
		}
		if st.Type != fs.TypeFile {
			t.Errorf("Lstat(%q): Type = %v, want file", file, st.Type)
		}
		if st.Size != int64(len(testContent)) {
			t.Errorf("Lstat(%q): Size = %d, want %d", file, st.Size, len(testContent))
		}
	})

	run(t, "LstatDir", skip, func(t *testing.T) {
		st, err := filesystem.Lstat(ctx, dir)
		if err != nil {
			t.Fatalf("Lstat(%q): got error %v, want nil", dir, err)
		}
		if !st.IsDir() {
			t.Errorf("Lstat(%q): IsDir() = false, want true", dir)
		}
	})

	run(t, "LstatNotExist", skip, func(t *testing.T) {
		missing := p.Join(dir, "missing.txt")
		_, err := filesystem.Lstat(ctx, missing)
		if !errors.Is(err, iofs.ErrNotExist) {
			t.Errorf("Lstat(%q): got error %v, want ErrNotExist", missing, err)
		}
	})

	run(t, "List", skip, func(t *testing.T) {
		entries, err := filesystem.List(ctx, dir)
		if err != nil {
			t.Fatalf("List(%q): got error %v, want nil", dir, err)
		}
		if len(entries) != 1 {
			t.Fatalf("List(%q): got %d entries, want 1", dir, len(entries))
		}
		if entries[0].Name != "testfile.txt" {
			t.Errorf("List(%q): got entry name %q, want %q", dir, entries[0].Name, "testfile.txt")
		}
		if entries[0].Path != file {
			t.Errorf("List(%q): got entry path %q, want %q", dir, entries[0].Path, file)
		}
		if entries[0].IsDir() {
			t.Errorf("List(%q): entry IsDir() = true, want false", dir)
		}
	})

	run(t, "ListHidden", skip, func(t *testing.T) {
		entries, err := filesystem.List(ctx, dir, fs.WithHiddenFiles())
		if err != nil {
			t.Fatalf("List(%q, hidden): got error %v, want nil", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name)
		}
		sort.Strings(names)
		if len(names) != 2 || names[0] != ".hidden" || names[1] != "testfile.txt" {
			t.Errorf("List(%q, hidden): got %v, want [.hidden testfile.txt]", dir, names)
		}
	})

	run(t, "Get", skip, func(t *testing.T) {
		rc, err := filesystem.Get(ctx, file)
		if err != nil {
			t.Fatalf("Get(%q): got error %v, want nil", file, err)
		}
		data, err := io.ReadAll(rc)
		if closeErr := rc.Close(); closeErr != nil {
			t.Errorf("Close(): got error %v", closeErr)
		}
		if err != nil {
			t.Fatalf("Read(): got error %v", err)
		}
		if !bytes.Equal(data, testContent) {
			t.Errorf("Get(%q): got %q, want %q", file, data, testContent)
		}
	})

	run(t, "GetNotExist", skip, func(t *testing.T) {
		missing := p.Join(dir, "missing.txt")
		rc, err := filesystem.Get(ctx, missing)
		if err == nil {
			_ = rc.Close()
			t.Errorf("Get(%q): got nil error, want error", missing)
		}
	})
}
