// Package remotetest provides an in-memory remote.Client for tests.
//
// The client behaves like a plain FTP server: MakeDir answers 550 both when
// the directory exists and when its parent is missing (only the reply text
// differs), there is no stat command, and SetModTime can be switched off.
// It also records every command and counts commands that overlapped, which
// must never happen behind a remote.FileSystem.
package remotetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
)

type node struct {
	typ     fs.FileType
	mode    uint32
	content []byte
	mtime   time.Time
	target  string
}

// Client is an in-memory remote.Client. The zero value is not usable; call
// NewClient.
type Client struct {
	mu       sync.Mutex
	nodes    map[string]*node
	calls    []string
	failures map[string][]error
	noMDTM   bool
	omitMode bool
	latency  time.Duration

	inFlight atomic.Int32
	overlaps atomic.Int32
	aborted  atomic.Bool
	closed   atomic.Bool
}

// NewClient returns a client whose tree holds only the root directory.
func NewClient() *Client {
	return &Client{
		nodes: map[string]*node{
			"/": {typ: fs.TypeDirectory, mode: 0o755},
		},
		failures: make(map[string][]error),
	}
}

// WithLatency makes every command take at least d, widening the window in
// which overlapping commands would be detected.
func (c *Client) WithLatency(d time.Duration) *Client {
	c.latency = d
	return c
}

// WithoutModTime makes SetModTime fail like a server without MFMT.
func (c *Client) WithoutModTime() *Client {
	c.noMDTM = true
	return c
}

// WithoutPermissions makes List omit permission bits, like servers whose
// listing format the parser cannot read rights from.
func (c *Client) WithoutPermissions() *Client {
	c.omitMode = true
	return c
}

// FailNext makes the next call of op fail with err. Ops are the lower-case
// method names: "list", "retrieve", "store", "delete", "makedir",
// "removedir", "rename", "site", "setmodtime".
func (c *Client) FailNext(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = append(c.failures[op], err)
}

// AddDir creates p and its parents.
func (c *Client) AddDir(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mkdirAll(clean(p))
}

// AddFile creates p, and its parents, with content and mtime.
func (c *Client) AddFile(p, content string, mtime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = clean(p)
	c.mkdirAll(path.Dir(p))
	c.nodes[p] = &node{typ: fs.TypeFile, mode: 0o644, content: []byte(content), mtime: mtime}
}

// AddSymlink creates a symlink at p pointing at target.
func (c *Client) AddSymlink(p, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = clean(p)
	c.mkdirAll(path.Dir(p))
	c.nodes[p] = &node{typ: fs.TypeSymlink, mode: 0o777, target: target}
}

// ReadFile returns the content of p and whether it exists as a file.
func (c *Client) ReadFile(p string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[clean(p)]
	if !ok || n.typ != fs.TypeFile {
		return "", false
	}
	return string(n.content), true
}

// Exists reports whether p exists.
func (c *Client) Exists(p string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.nodes[clean(p)]
	return ok
}

// ModTime returns the modification time of p.
func (c *Client) ModTime(p string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.nodes[clean(p)]; ok {
		return n.mtime
	}
	return time.Time{}
}

// Calls returns the commands received so far, e.g. "MKD /a".
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CountCalls returns how many received commands start with prefix.
func (c *Client) CountCalls(prefix string) int {
	n := 0
	for _, call := range c.Calls() {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

// Overlaps returns how many commands started while another was running.
func (c *Client) Overlaps() int {
	return int(c.overlaps.Load())
}

// Aborted reports whether Abort was called.
func (c *Client) Aborted() bool {
	return c.aborted.Load()
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

func (c *Client) begin(op, call string) error {
	if c.inFlight.Add(1) > 1 {
		c.overlaps.Add(1)
	}
	if c.latency > 0 {
		time.Sleep(c.latency)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	if queued := c.failures[op]; len(queued) > 0 {
		c.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (c *Client) end() {
	c.inFlight.Add(-1)
}

// List implements remote.Client.
func (c *Client) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	defer c.end()
	if err := c.begin("list", "LIST "+dir); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dir = clean(dir)
	n, ok := c.nodes[dir]
	if !ok || n.typ != fs.TypeDirectory {
		return nil, remote.NewServerError("list", dir, remote.ClassOther, 550, "No such file or directory", nil)
	}

	entries := []remote.Entry{
		{Name: ".", Type: fs.TypeDirectory},
		{Name: "..", Type: fs.TypeDirectory},
	}
	for _, p := range c.children(dir) {
		child := c.nodes[p]
		entries = append(entries, remote.Entry{
			Name:    path.Base(p),
			Type:    child.typ,
			Mode:    fsMode(child.mode),
			HasMode: !c.omitMode,
			Size:    int64(len(child.content)),
			ModTime: child.mtime,
			Target:  child.target,
		})
	}
	return entries, nil
}

// Retrieve implements remote.Client. The command stays in flight until the
// returned reader is closed.
func (c *Client) Retrieve(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := c.begin("retrieve", "RETR "+p); err != nil {
		c.end()
		return nil, err
	}

	c.mu.Lock()
	n, ok := c.nodes[clean(p)]
	var data []byte
	if ok && n.typ == fs.TypeFile {
		data = append([]byte(nil), n.content...)
	}
	c.mu.Unlock()

	if !ok || n.typ != fs.TypeFile {
		c.end()
		return nil, remote.NewServerError("retr", p, remote.ClassOther, 550, "Failed to open file", nil)
	}
	return &download{Reader: bytes.NewReader(data), done: c.end}, nil
}

type download struct {
	*bytes.Reader
	once sync.Once
	done func()
}

func (d *download) Close() error {
	d.once.Do(d.done)
	return nil
}

// Store implements remote.Client. An aborted upload leaves no file behind.
func (c *Client) Store(ctx context.Context, r io.Reader, p string) error {
	defer c.end()
	c.aborted.Store(false)
	if err := c.begin("store", "STOR "+p); err != nil {
		return err
	}

	data, readErr := io.ReadAll(r)
	if readErr != nil || c.aborted.Load() {
		return remote.NewServerError("stor", p, remote.ClassOther, 426, "Connection closed; transfer aborted", readErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p = clean(p)
	parent, ok := c.nodes[path.Dir(p)]
	if !ok || parent.typ != fs.TypeDirectory {
		return remote.NewServerError("stor", p, remote.ClassParentMissing, 553, "Could not create file", nil)
	}
	c.nodes[p] = &node{typ: fs.TypeFile, mode: 0o644, content: data, mtime: time.Now()}
	return nil
}

// Delete implements remote.Client.
func (c *Client) Delete(ctx context.Context, p string) error {
	defer c.end()
	if err := c.begin("delete", "DELE "+p); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p = clean(p)
	n, ok := c.nodes[p]
	if !ok || n.typ == fs.TypeDirectory {
		return remote.NewServerError("dele", p, remote.ClassOther, 550, "Delete operation failed", nil)
	}
	delete(c.nodes, p)
	return nil
}

// MakeDir implements remote.Client with vsftpd's ambiguous replies.
func (c *Client) MakeDir(ctx context.Context, p string) error {
	defer c.end()
	if err := c.begin("makedir", "MKD "+p); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p = clean(p)
	if _, ok := c.nodes[p]; ok {
		return remote.NewServerError("mkdir", p, remote.ClassExists, 550, "Create directory operation failed: File exists", nil)
	}
	parent, ok := c.nodes[path.Dir(p)]
	if !ok || parent.typ != fs.TypeDirectory {
		return remote.NewServerError("mkdir", p, remote.ClassParentMissing, 550, "Create directory operation failed", nil)
	}
	c.nodes[p] = &node{typ: fs.TypeDirectory, mode: 0o755, mtime: time.Now()}
	return nil
}

// RemoveDir implements remote.Client.
func (c *Client) RemoveDir(ctx context.Context, p string, recursive bool) error {
	defer c.end()
	if err := c.begin("removedir", "RMD "+p); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p = clean(p)
	n, ok := c.nodes[p]
	if !ok || n.typ != fs.TypeDirectory {
		return remote.NewServerError("rmd", p, remote.ClassOther, 550, "Remove directory operation failed", nil)
	}
	if len(c.children(p)) > 0 && !recursive {
		return remote.NewServerError("rmd", p, remote.ClassOther, 550, "Directory not empty", nil)
	}
	for k := range c.nodes {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(c.nodes, k)
		}
	}
	return nil
}

// Rename implements remote.Client.
func (c *Client) Rename(ctx context.Context, from, to string) error {
	defer c.end()
	if err := c.begin("rename", "RNFR "+from+" RNTO "+to); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	from, to = clean(from), clean(to)
	if _, ok := c.nodes[from]; !ok {
		return remote.NewServerError("rnfr", from, remote.ClassOther, 550, "RNFR command failed", nil)
	}
	moved := make(map[string]*node)
	for k, n := range c.nodes {
		switch {
		case k == from:
			moved[to] = n
			delete(c.nodes, k)
		case strings.HasPrefix(k, from+"/"):
			moved[to+strings.TrimPrefix(k, from)] = n
			delete(c.nodes, k)
		}
	}
	for k, n := range moved {
		c.nodes[k] = n
	}
	return nil
}

// Site implements remote.Client. Only CHMOD is understood.
func (c *Client) Site(ctx context.Context, command string) error {
	defer c.end()
	if err := c.begin("site", "SITE "+command); err != nil {
		return err
	}

	var (
		mode uint32
		p    string
	)
	if _, err := fmt.Sscanf(command, "CHMOD %o %s", &mode, &p); err != nil {
		return remote.NewServerError("site", "", remote.ClassOther, 500, "Unknown SITE command", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[clean(p)]
	if !ok {
		return remote.NewServerError("site", p, remote.ClassOther, 550, "SITE CHMOD command failed", nil)
	}
	n.mode = mode
	return nil
}

// SetModTime implements remote.Client.
func (c *Client) SetModTime(ctx context.Context, p string, mtime time.Time) error {
	defer c.end()
	if err := c.begin("setmodtime", "MFMT "+p); err != nil {
		return err
	}
	if c.noMDTM {
		return remote.NewServerError("mfmt", p, remote.ClassOther, 500, "Unknown command", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[clean(p)]
	if !ok {
		return remote.NewServerError("mfmt", p, remote.ClassOther, 550, "Could not set file modification time", nil)
	}
	n.mtime = mtime
	return nil
}

// Abort implements remote.Client. It is out-of-band and not counted as a
// command.
func (c *Client) Abort(ctx context.Context) error {
	c.aborted.Store(true)
	c.mu.Lock()
	c.calls = append(c.calls, "ABOR")
	c.mu.Unlock()
	return nil
}

// Close implements remote.Client.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Client) mkdirAll(p string) {
	for cur := p; ; cur = path.Dir(cur) {
		if _, ok := c.nodes[cur]; !ok {
			c.nodes[cur] = &node{typ: fs.TypeDirectory, mode: 0o755}
		}
		if cur == "/" {
			return
		}
	}
}

func (c *Client) children(dir string) []string {
	var out []string
	for p := range c.nodes {
		if p != "/" && path.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func fsMode(m uint32) os.FileMode {
	return os.FileMode(m).Perm()
}

func clean(p string) string {
	return path.Clean("/" + p)
}

var _ remote.Client = (*Client)(nil)
