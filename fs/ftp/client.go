// Package ftp connects a remote.FileSystem to an FTP or FTPS server using
// github.com/jlaffaye/ftp.
package ftp

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
)

// DefaultPort is the FTP control port.
const DefaultPort = 21

// Config holds the connection parameters of an FTP session.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// Timeout bounds dialing and each control-connection exchange.
	Timeout time.Duration

	// TLS enables FTPS. ExplicitTLS selects AUTH TLS on the plain port
	// instead of implicit TLS.
	TLS         *tls.Config
	ExplicitTLS bool

	// DisableEPSV forces PASV for servers behind broken NATs.
	DisableEPSV bool

	// Location is the time zone the server reports listing times in.
	Location *time.Location
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

func (c Config) dialOptions(ctx context.Context) []ftp.DialOption {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithDisabledEPSV(c.DisableEPSV),
		ftp.DialWithWritingMDTM(true),
	}
	if c.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(c.Timeout), ftp.DialWithShutTimeout(c.Timeout))
	}
	if c.Location != nil {
		opts = append(opts, ftp.DialWithLocation(c.Location))
	}
	if c.TLS != nil {
		if c.ExplicitTLS {
			opts = append(opts, ftp.DialWithExplicitTLS(c.TLS))
		} else {
			opts = append(opts, ftp.DialWithTLS(c.TLS))
		}
	}
	return opts
}

// Client implements remote.Client over one FTP control connection.
type Client struct {
	conn    *ftp.ServerConn
	aborted atomic.Bool
}

// Dial connects and logs in.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "ftp: host is required")
	}

	conn, err := ftp.Dial(cfg.addr(), cfg.dialOptions(ctx)...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, fmt.Sprintf("ftp: dial %s", cfg.addr()))
	}

	user := cfg.User
	if user == "" {
		user = "anonymous"
	}
	if err := conn.Login(user, cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, errors.Wrap(err, errors.CodeUnauthorized, fmt.Sprintf("ftp: login as %s", user))
	}

	return &Client{conn: conn}, nil
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
	raw, err := c.conn.List(dir)
	if err != nil {
		return nil, classify("list", dir, err)
	}

	entries := make([]remote.Entry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, toEntry(e))
	}
	return entries, nil
}

// Retrieve implements remote.Client.
func (c *Client) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := c.conn.Retr(path)
	if err != nil {
		return nil, classify("retr", path, err)
	}
	return resp, nil
}

// Store implements remote.Client. After an abort the partial file is
// deleted once the transfer has unwound.
func (c *Client) Store(ctx context.Context, r io.Reader, path string) error {
	c.aborted.Store(false)

	err := c.conn.Stor(path, r)
	if c.aborted.Swap(false) {
		_ = c.conn.Delete(path)
	}
	if err != nil {
		return classify("stor", path, err)
	}
	return nil
}

// Delete implements remote.Client.
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := c.conn.Delete(path); err != nil {
		return classify("dele", path, err)
	}
	return nil
}

// MakeDir implements remote.Client.
func (c *Client) MakeDir(ctx context.Context, path string) error {
	if err := c.conn.MakeDir(path); err != nil {
		return classify("mkdir", path, err)
	}
	return nil
}

// RemoveDir implements remote.Client.
func (c *Client) RemoveDir(ctx context.Context, path string, recursive bool) error {
	var err error
	if recursive {
		err = c.conn.RemoveDirRecur(path)
	} else {
		err = c.conn.RemoveDir(path)
	}
	if err != nil {
		return classify("rmd", path, err)
	}
	return nil
}

// Rename implements remote.Client.
func (c *Client) Rename(ctx context.Context, from, to string) error {
	if err := c.conn.Rename(from, to); err != nil {
		return classify("rename", from, err)
	}
	return nil
}

// Site implements remote.Client. The library has no way to send SITE.
func (c *Client) Site(ctx context.Context, command string) error {
	return fmt.Errorf("ftp: site %s: %w", command, remote.ErrNotSupported)
}

// SetModTime implements remote.Client with MFMT, or MDTM on servers that
// accept a time argument.
func (c *Client) SetModTime(ctx context.Context, path string, mtime time.Time) error {
	if !c.conn.IsSetTimeSupported() {
		return fmt.Errorf("ftp: set time %s: %w", path, remote.ErrNotSupported)
	}
	if err := c.conn.SetTime(path, mtime); err != nil {
		return classify("mfmt", path, err)
	}
	return nil
}

// Abort implements remote.Client. The running upload fails on its own
// because its reader returned an error; Abort marks it so the partial file
// is removed.
func (c *Client) Abort(ctx context.Context) error {
	c.aborted.Store(true)
	return nil
}

// Close implements remote.Client.
func (c *Client) Close() error {
	if err := c.conn.Quit(); err != nil {
		return fmt.Errorf("ftp: quit: %w", err)
	}
	return nil
}

func toEntry(e *ftp.Entry) remote.Entry {
	out := remote.Entry{
		Name:    e.Name,
		Size:    int64(e.Size), //nolint:gosec // sizes beyond int64 do not occur.
		ModTime: e.Time,
		Target:  e.Target,
		Mode:    remote.DefaultMode,
	}
	switch e.Type {
	case ftp.EntryTypeFolder:
		out.Type = fs.TypeDirectory
	case ftp.EntryTypeLink:
		out.Type = fs.TypeSymlink
	default:
		out.Type = fs.TypeFile
	}
	return out
}

// classify turns a reply into a *remote.ServerError. Servers answer MKD with
// 550 both when the directory exists and when the parent is missing; only
// the text tells them apart.
func classify(op, path string, err error) error {
	var tp *textproto.Error
	if !stderrors.As(err, &tp) {
		return remote.NewServerError(op, path, remote.ClassOther, 0, "", err)
	}

	class := remote.ClassOther
	switch {
	case tp.Code == 521:
		class = remote.ClassExists
	case tp.Code == ftp.StatusFileUnavailable && op == "mkdir":
		if strings.Contains(strings.ToLower(tp.Msg), "exists") {
			class = remote.ClassExists
		} else {
			class = remote.ClassParentMissing
		}
	}
	return remote.NewServerError(op, path, class, tp.Code, tp.Msg, err)
}

var _ remote.Client = (*Client)(nil)
