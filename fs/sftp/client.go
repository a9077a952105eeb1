// Package sftp connects a remote.FileSystem to an SSH file transfer server
// using github.com/pkg/sftp.
//
// SFTP can multiplex requests, but the file system still sends one command
// at a time so that every back-end behaves the same.
package sftp

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
)

// DefaultPort is the SSH port.
const DefaultPort = 22

// Config holds the connection parameters of an SFTP session.
type Config struct {
	Host    string
	Port    int
	Auth    Auth
	Timeout time.Duration
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Client implements remote.Client over one SFTP session.
type Client struct {
	sftp    *sftp.Client
	ssh     *gossh.Client
	aborted atomic.Bool
}

// Dial opens an SSH connection and starts the sftp subsystem.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "sftp: host is required")
	}

	sshCfg, err := cfg.Auth.ClientConfig()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "sftp: build ssh config")
	}
	sshCfg.Timeout = cfg.Timeout

	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.addr())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, fmt.Sprintf("sftp: dial %s", cfg.addr()))
	}

	sc, chans, reqs, err := gossh.NewClientConn(conn, cfg.addr(), sshCfg)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, errors.CodeUnauthorized, fmt.Sprintf("sftp: handshake with %s", cfg.addr()))
	}
	sshClient := gossh.NewClient(sc, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, errors.Wrap(err, errors.CodeUnavailable, "sftp: start subsystem")
	}

	return &Client{sftp: client, ssh: sshClient}, nil
}

// NewClient wraps an established sftp session, for example one made with
// sftp.NewClientPipe.
func NewClient(client *sftp.Client) *Client {
	return &Client{sftp: client}
}

// New dials cfg and wraps the session in a remote.FileSystem.
func New(ctx context.Context, cfg Config, opts ...remote.Option) (*remote.FileSystem, error) {
	client, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r, err := remote.New(client, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return r, nil
}

// List implements remote.Client.
func (c *Client) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	infos, err := c.sftp.ReadDirContext(ctx, dir)
	if err != nil {
		return nil, classify("list", dir, err)
	}

	entries := make([]remote.Entry, 0, len(infos))
	for _, info := range infos {
		e := remote.Entry{
			Name:    info.Name(),
			Type:    fs.TypeFromMode(info.Mode()),
			Mode:    info.Mode().Perm(),
			HasMode: true,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if e.Type == fs.TypeSymlink {
			if target, err := c.sftp.ReadLink(path.Join(dir, e.Name)); err == nil {
				e.Target = target
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Retrieve implements remote.Client.
func (c *Client) Retrieve(ctx context.Context, p string) (io.ReadCloser, error) {
	f, err := c.sftp.Open(p)
	if err != nil {
		return nil, classify("retr", p, err)
	}
	return f, nil
}

// Store implements remote.Client. After an abort the partial file is
// removed.
func (c *Client) Store(ctx context.Context, r io.Reader, p string) error {
	c.aborted.Store(false)

	f, err := c.sftp.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return classify("stor", p, err)
	}

	_, copyErr := f.ReadFrom(r)
	closeErr := f.Close()

	if c.aborted.Swap(false) {
		_ = c.sftp.Remove(p)
	}
	if copyErr != nil {
		return classify("stor", p, copyErr)
	}
	if closeErr != nil {
		return classify("stor", p, closeErr)
	}
	return nil
}

// Delete implements remote.Client.
func (c *Client) Delete(ctx context.Context, p string) error {
	info, err := c.sftp.Lstat(p)
	if err != nil {
		return classify("dele", p, err)
	}
	if info.IsDir() {
		return remote.NewServerError("dele", p, remote.ClassOther, 0, "is a directory", nil)
	}
	if err := c.sftp.Remove(p); err != nil {
		return classify("dele", p, err)
	}
	return nil
}

// MakeDir implements remote.Client. SFTP reports an existing directory as a
// generic failure, so the path is checked to tell the cases apart.
func (c *Client) MakeDir(ctx context.Context, p string) error {
	err := c.sftp.Mkdir(p)
	if err == nil {
		return nil
	}
	if stderrors.Is(err, os.ErrNotExist) {
		return remote.NewServerError("mkdir", p, remote.ClassParentMissing, 0, "no such file", err)
	}
	if _, serr := c.sftp.Lstat(p); serr == nil {
		return remote.NewServerError("mkdir", p, remote.ClassExists, 0, "file exists", err)
	}
	return classify("mkdir", p, err)
}

// RemoveDir implements remote.Client.
func (c *Client) RemoveDir(ctx context.Context, p string, recursive bool) error {
	var err error
	if recursive {
		err = c.sftp.RemoveAll(p)
	} else {
		err = c.sftp.RemoveDirectory(p)
	}
	if err != nil {
		return classify("rmd", p, err)
	}
	return nil
}

// Rename implements remote.Client. The posix-rename extension is used when
// the server offers it, so an existing target is replaced.
func (c *Client) Rename(ctx context.Context, from, to string) error {
	var err error
	if _, ok := c.sftp.HasExtension("posix-rename@openssh.com"); ok {
		err = c.sftp.PosixRename(from, to)
	} else {
		err = c.sftp.Rename(from, to)
	}
	if err != nil {
		return classify("rename", from, err)
	}
	return nil
}

// Site implements remote.Client. CHMOD is mapped onto setstat; other site
// commands do not exist in SFTP.
func (c *Client) Site(ctx context.Context, command string) error {
	fields := strings.Fields(command)
	if len(fields) != 3 || !strings.EqualFold(fields[0], "CHMOD") {
		return fmt.Errorf("sftp: site %s: %w", command, remote.ErrNotSupported)
	}

	mode, err := strconv.ParseUint(fields[1], 8, 32)
	if err != nil {
		return remote.NewServerError("site", fields[2], remote.ClassOther, 0, "invalid mode", err)
	}
	if err := c.sftp.Chmod(fields[2], os.FileMode(mode)); err != nil {
		return classify("site", fields[2], err)
	}
	return nil
}

// SetModTime implements remote.Client.
func (c *Client) SetModTime(ctx context.Context, p string, mtime time.Time) error {
	if err := c.sftp.Chtimes(p, mtime, mtime); err != nil {
		return classify("setstat", p, err)
	}
	return nil
}

// Abort implements remote.Client.
func (c *Client) Abort(ctx context.Context) error {
	c.aborted.Store(true)
	return nil
}

// Close implements remote.Client.
func (c *Client) Close() error {
	err := c.sftp.Close()
	if c.ssh != nil {
		if serr := c.ssh.Close(); err == nil {
			err = serr
		}
	}
	if err != nil {
		return fmt.Errorf("sftp: close: %w", err)
	}
	return nil
}

func classify(op, p string, err error) error {
	var se *sftp.StatusError
	if stderrors.As(err, &se) {
		return remote.NewServerError(op, p, remote.ClassOther, int(se.Code), se.Error(), err)
	}
	return remote.NewServerError(op, p, remote.ClassOther, 0, "", err)
}

var _ remote.Client = (*Client)(nil)
