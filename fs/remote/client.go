package remote

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/wangziweng7890/vscode-iconfont/fs"
)

// Client is the primitive command set of a protocol library bound to one
// control connection. Implementations need not be safe for concurrent use:
// the FileSystem never issues two commands at once, with the single
// exception of Abort, which may be called while Store is running.
type Client interface {
	// List returns the raw entries of dir, including "." and ".." if the
	// server sends them.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Retrieve opens a download of path. The transfer, and the connection,
	// stay busy until the returned reader is closed.
	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)

	// Store uploads everything read from r to path.
	Store(ctx context.Context, r io.Reader, path string) error

	// Delete removes a file.
	Delete(ctx context.Context, path string) error

	// MakeDir creates one directory. Failures should be a *ServerError with
	// a Class so directory recovery can tell "exists" from "parent missing".
	MakeDir(ctx context.Context, path string) error

	// RemoveDir removes a directory, and its content when recursive is set.
	RemoveDir(ctx context.Context, path string, recursive bool) error

	// Rename moves from to to.
	Rename(ctx context.Context, from, to string) error

	// Site sends a raw site command such as "CHMOD 644 /a".
	Site(ctx context.Context, command string) error

	// SetModTime sets the modification time of path.
	SetModTime(ctx context.Context, path string, mtime time.Time) error

	// Abort cancels the Store in progress, if any.
	Abort(ctx context.Context) error

	// Close ends the session.
	Close() error
}

// Entry is one line of a directory listing as parsed by the protocol library.
type Entry struct {
	Name    string
	Type    fs.FileType
	Mode    os.FileMode
	HasMode bool
	Size    int64
	ModTime time.Time
	Target  string
}

// DefaultMode is reported for entries whose listing carries no permission
// bits.
const DefaultMode os.FileMode = 0o666
