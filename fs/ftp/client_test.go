package ftp

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/textproto"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
)

// controlServer answers the control-connection commands that need no data
// connection, with vsftpd's reply texts.
type controlServer struct {
	ln net.Listener

	mu    sync.Mutex
	dirs  map[string]bool
	mtime map[string]string
	seen  []string
}

func startControlServer(t *testing.T) *controlServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &controlServer{
		ln:    ln,
		dirs:  map[string]bool{"/": true},
		mtime: map[string]string{},
	}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *controlServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *controlServer) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func (s *controlServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *controlServer) handle(conn net.Conn) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	reply := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\r\n", args...)
		_ = w.Flush()
	}

	reply("220 ready")
	r := textproto.NewReader(bufio.NewReader(conn))
	for {
		line, err := r.ReadLine()
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(line, " ")

		s.mu.Lock()
		s.seen = append(s.seen, cmd)
		switch cmd {
		case "USER":
			reply("331 Please specify the password.")
		case "PASS":
			if arg == "secret" {
				reply("230 Login successful.")
			} else {
				reply("530 Login incorrect.")
			}
		case "FEAT":
			reply("211-Features:\r\n MFMT\r\n211 End")
		case "TYPE":
			reply("200 Switching to Binary mode.")
		case "MKD":
			switch {
			case s.dirs[arg]:
				reply("550 Create directory operation failed: File exists")
			case !s.dirs[path.Dir(arg)]:
				reply("550 Create directory operation failed.")
			default:
				s.dirs[arg] = true
				reply("257 \"%s\" created", arg)
			}
		case "MFMT":
			stamp, p, _ := strings.Cut(arg, " ")
			s.mtime[p] = stamp
			reply("213 Modify=%s; %s", stamp, p)
		case "QUIT":
			reply("221 Goodbye.")
			s.mu.Unlock()
			return
		default:
			reply("502 Command not implemented.")
		}
		s.mu.Unlock()
	}
}

func TestDial(t *testing.T) {
	ctx := context.Background()
	srv := startControlServer(t)

	t.Run("logs in", func(t *testing.T) {
		c, err := Dial(ctx, Config{Host: "127.0.0.1", Port: srv.port(), User: "u", Password: "secret", Timeout: time.Second})
		require.NoError(t, err)
		require.NoError(t, c.Close())
		assert.Contains(t, srv.commands(), "PASS")
	})

	t.Run("bad password", func(t *testing.T) {
		_, err := Dial(ctx, Config{Host: "127.0.0.1", Port: srv.port(), User: "u", Password: "wrong", Timeout: time.Second})
		require.Error(t, err)
		assert.Equal(t, errors.CodeUnauthorized, errors.GetCode(err))
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := Dial(ctx, Config{})
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})

	t.Run("nothing listening", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())

		_, err = Dial(ctx, Config{Host: "127.0.0.1", Port: port, Timeout: time.Second})
		assert.Equal(t, errors.CodeNetwork, errors.GetCode(err))
	})
}

func TestFileSystemOverFTP(t *testing.T) {
	ctx := context.Background()
	srv := startControlServer(t)

	r, err := New(ctx, Config{Host: "127.0.0.1", Port: srv.port(), User: "u", Password: "secret", Timeout: time.Second})
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Disconnect(ctx)) }()

	require.NoError(t, r.Mkdir(ctx, "/a"))

	err = r.Mkdir(ctx, "/a")
	assert.Equal(t, remote.ClassExists, remote.Classify(err))

	err = r.Mkdir(ctx, "/x/y")
	assert.Equal(t, remote.ClassParentMissing, remote.Classify(err))

	mtime := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, r.Futimes(ctx, &fs.PathHandle{Name: "/a"}, mtime, mtime))
	assert.True(t, r.SupportsModTime())
	srv.mu.Lock()
	assert.Equal(t, "20240203040506", srv.mtime["/a"])
	srv.mu.Unlock()

	err = r.Chmod(ctx, "/a", 0o755)
	assert.Equal(t, errors.CodeNotImplemented, errors.GetCode(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		want remote.ErrorClass
	}{
		{
			name: "mkdir exists",
			op:   "mkdir",
			err:  &textproto.Error{Code: 550, Msg: "Create directory operation failed: File exists"},
			want: remote.ClassExists,
		},
		{
			name: "mkdir 521",
			op:   "mkdir",
			err:  &textproto.Error{Code: 521, Msg: "\"/a\" directory already exists"},
			want: remote.ClassExists,
		},
		{
			name: "mkdir parent missing",
			op:   "mkdir",
			err:  &textproto.Error{Code: 550, Msg: "Create directory operation failed."},
			want: remote.ClassParentMissing,
		},
		{
			name: "550 outside mkdir",
			op:   "dele",
			err:  &textproto.Error{Code: 550, Msg: "Delete operation failed."},
			want: remote.ClassOther,
		},
		{
			name: "transport error",
			op:   "mkdir",
			err:  stderrors.New("connection reset"),
			want: remote.ClassOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.op, "/a", tt.err)
			assert.Equal(t, tt.want, remote.Classify(err))
			assert.True(t, stderrors.Is(err, tt.err))
		})
	}
}

func TestToEntry(t *testing.T) {
	mtime := time.Date(2020, 6, 7, 8, 9, 0, 0, time.UTC)

	e := toEntry(&ftp.Entry{Name: "dir", Type: ftp.EntryTypeFolder, Time: mtime})
	assert.Equal(t, fs.TypeDirectory, e.Type)
	assert.False(t, e.HasMode)
	assert.Equal(t, remote.DefaultMode, e.Mode)

	e = toEntry(&ftp.Entry{Name: "l", Type: ftp.EntryTypeLink, Target: "/t"})
	assert.Equal(t, fs.TypeSymlink, e.Type)
	assert.Equal(t, "/t", e.Target)

	e = toEntry(&ftp.Entry{Name: "f", Type: ftp.EntryTypeFile, Size: 42, Time: mtime})
	assert.Equal(t, fs.TypeFile, e.Type)
	assert.Equal(t, int64(42), e.Size)
	assert.Equal(t, mtime, e.ModTime)
}

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "example.com:21", Config{Host: "example.com"}.addr())
	assert.Equal(t, "example.com:2121", Config{Host: "example.com", Port: 2121}.addr())
}
