package fs

import (
	iofs "io/fs"

	"github.com/wangziweng7890/vscode-iconfont/errors"
)

// Sentinel errors shared by every back-end. Each carries a code from the
// errors package and also matches the corresponding io/fs sentinel, so both
// errors.Is(err, fs.ErrNotExist) and errors.Is(err, iofs.ErrNotExist) hold.
var (
	ErrNotExist = errors.Wrap(iofs.ErrNotExist, errors.CodeNotFound, "fs: file not exist")
	ErrExist    = errors.Wrap(iofs.ErrExist, errors.CodeAlreadyExists, "fs: file already exists")
	ErrNotDir   = errors.New(errors.CodeNotADirectory, "fs: not a directory")
	ErrNotEmpty = errors.New(errors.CodeNotEmpty, "fs: directory not empty")
)

// PathError records the operation and path that failed on top of the cause.
// It reuses io/fs.PathError so callers can inspect it with errors.As.
type PathError = iofs.PathError

// NewPathError builds a *PathError.
func NewPathError(op, path string, err error) error {
	return &iofs.PathError{Op: op, Path: path, Err: err}
}
