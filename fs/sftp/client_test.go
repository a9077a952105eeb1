package sftp

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	stderrors "errors"
	"io"
	iofs "io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
)

// newPipeFS serves the host file system over an in-process sftp server and
// returns a remote.FileSystem talking to it, plus a scratch directory.
func newPipeFS(t *testing.T) (*remote.FileSystem, string) {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	server, err := sftp.NewServer(serverConn)
	require.NoError(t, err)
	go func() { _ = server.Serve() }()

	client, err := sftp.NewClientPipe(clientConn, clientConn)
	require.NoError(t, err)

	r, err := remote.New(NewClient(client))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Disconnect(context.Background()) })
	return r, t.TempDir()
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, root := newPipeFS(t)
	p := filepath.Join(root, "hello.txt")

	require.NoError(t, r.Put(ctx, strings.NewReader("hello over sftp"), p, fs.FileOption{}))

	rc, err := r.Get(ctx, p)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello over sftp", string(b))

	st, err := r.Lstat(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, fs.TypeFile, st.Type)
	assert.Equal(t, int64(len("hello over sftp")), st.Size)
}

func TestEnsureDirRecursion(t *testing.T) {
	ctx := context.Background()
	r, root := newPipeFS(t)
	dir := filepath.Join(root, "a", "b", "c")

	require.NoError(t, r.EnsureDir(ctx, dir))
	require.NoError(t, r.EnsureDir(ctx, dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(root, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	err = r.EnsureDir(ctx, file)
	assert.Equal(t, errors.CodeNotADirectory, errors.GetCode(err))
}

func TestMakeDirClassification(t *testing.T) {
	ctx := context.Background()
	r, root := newPipeFS(t)

	dir := filepath.Join(root, "exists")
	require.NoError(t, r.Mkdir(ctx, dir))

	err := r.Mkdir(ctx, dir)
	assert.Equal(t, remote.ClassExists, remote.Classify(err))

	err = r.Mkdir(ctx, filepath.Join(root, "missing", "child"))
	assert.Equal(t, remote.ClassParentMissing, remote.Classify(err))
}

func TestListAndMetadata(t *testing.T) {
	ctx := context.Background()
	r, root := newPipeFS(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".dot"), []byte("d"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(root, "link")))

	entries, err := r.List(ctx, root)
	require.NoError(t, err)

	byName := map[string]fs.FileEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.NotContains(t, byName, ".dot")
	assert.Equal(t, fs.TypeDirectory, byName["sub"].Type)
	assert.Equal(t, os.FileMode(0o640), byName["a.txt"].Mode)
	assert.Equal(t, fs.TypeSymlink, byName["link"].Type)
	assert.Equal(t, "a.txt", byName["link"].Target)

	target, err := r.Readlink(ctx, filepath.Join(root, "link"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", target)
}

func TestChmodAndTimes(t *testing.T) {
	ctx := context.Background()
	r, root := newPipeFS(t)
	p := filepath.Join(root, "run.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh"), 0o600))

	require.NoError(t, r.Chmod(ctx, p, 0o755))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	mtime := time.Date(2019, 9, 9, 9, 9, 9, 0, time.UTC)
	require.NoError(t, r.Futimes(ctx, &fs.PathHandle{Name: p}, mtime, mtime))
	assert.True(t, r.SupportsModTime())

	info, err = os.Stat(p)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestRemoveAndRename(t *testing.T) {
	ctx := context.Background()
	r, root := newPipeFS(t)

	tree := filepath.Join(root, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(tree, "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "deep", "f"), []byte("x"), 0o600))

	assert.Error(t, r.Rmdir(ctx, tree, false))
	require.NoError(t, r.Rmdir(ctx, tree, true))
	_, err := os.Stat(tree)
	assert.True(t, os.IsNotExist(err))

	from := filepath.Join(root, "from")
	to := filepath.Join(root, "to")
	require.NoError(t, os.WriteFile(from, []byte("x"), 0o600))
	require.NoError(t, r.Rename(ctx, from, to))
	_, err = os.Stat(to)
	require.NoError(t, err)

	require.NoError(t, r.Unlink(ctx, to))
	err = r.Unlink(ctx, to)
	assert.True(t, stderrors.Is(err, iofs.ErrNotExist))

	require.NoError(t, os.Mkdir(filepath.Join(root, "d"), 0o755))
	assert.Error(t, r.Unlink(ctx, filepath.Join(root, "d")))
}

func TestPutAbortRemovesPartialFile(t *testing.T) {
	ctx := context.Background()
	r, root := newPipeFS(t)
	p := filepath.Join(root, "partial")

	boom := stderrors.New("source failed")
	src := io.MultiReader(strings.NewReader(strings.Repeat("x", 100000)), &failingReader{err: boom})

	err := r.Put(ctx, src, p, fs.FileOption{})
	assert.Same(t, boom, err)

	_, statErr := os.Stat(p)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSiteRejectsUnknownCommands(t *testing.T) {
	c := &Client{}
	err := c.Site(context.Background(), "UTIME 20200101 /a")
	assert.True(t, stderrors.Is(err, remote.ErrNotSupported))
}

func TestAuthClientConfig(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		_, err := Auth{Username: "u"}.ClientConfig()
		assert.Error(t, err)
	})

	t.Run("password", func(t *testing.T) {
		cfg, err := Auth{Username: "u", Password: "p"}.ClientConfig()
		require.NoError(t, err)
		assert.Equal(t, "u", cfg.User)
		assert.Len(t, cfg.Auth, 1)
		assert.NotNil(t, cfg.HostKeyCallback)
	})

	t.Run("key bytes", func(t *testing.T) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		block, err := gossh.MarshalPrivateKey(priv, "")
		require.NoError(t, err)

		cfg, err := Auth{Username: "u", PrivateKey: pem.EncodeToMemory(block), Password: "p"}.ClientConfig()
		require.NoError(t, err)
		assert.Len(t, cfg.Auth, 2)
	})

	t.Run("bad key", func(t *testing.T) {
		_, err := Auth{Username: "u", PrivateKey: []byte("not a key")}.ClientConfig()
		assert.Error(t, err)
	})

	t.Run("missing known hosts", func(t *testing.T) {
		_, err := Auth{Username: "u", Password: "p", KnownHostsPath: filepath.Join(t.TempDir(), "nope")}.ClientConfig()
		assert.Error(t, err)
	})
}

func TestDialValidation(t *testing.T) {
	_, err := Dial(context.Background(), Config{})
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))

	_, err = Dial(context.Background(), Config{Host: "127.0.0.1", Auth: Auth{Username: "u"}})
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }
