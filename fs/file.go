package fs

import "os"

// Handle correlates Open, Fstat, Futimes and Close calls for one logical file
// session. Local handles wrap an open OS file; remote handles are a plain
// record of the path and open flags because the protocols have no persistent
// per-file handle.
type Handle interface {
	Path() string
}

// FileOption carries open semantics for Open and Put.
type FileOption struct {
	// Flags are os.O_* flags. Zero means read-only for Open and
	// create-or-truncate for Put.
	Flags int

	// Mode is the permission used when a file is created. Zero means 0o666.
	Mode os.FileMode

	// Handle makes Put write into a file opened earlier with Open on the same
	// back-end.
	Handle Handle
}

// DefaultFileMode is used when a FileOption leaves Mode unset.
const DefaultFileMode os.FileMode = 0o666

// PutFlags returns the flags Put should open the destination with.
func (o FileOption) PutFlags() int {
	if o.Flags == 0 {
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	return o.Flags
}

// FileMode returns Mode, or DefaultFileMode when unset.
func (o FileOption) FileMode() os.FileMode {
	if o.Mode == 0 {
		return DefaultFileMode
	}
	return o.Mode
}

// PathHandle is a Handle that only remembers what Open was called with.
type PathHandle struct {
	Name  string
	Flags int
	Mode  os.FileMode
}

// Path implements Handle.
func (h *PathHandle) Path() string {
	return h.Name
}
