package remote

import (
	stderrors "errors"
	"fmt"
	iofs "io/fs"

	"github.com/wangziweng7890/vscode-iconfont/errors"
)

// ErrorClass tells the file system how to react to a failed command whose
// reply code alone is ambiguous.
type ErrorClass int

const (
	// ClassOther is any failure that is neither of the classes below.
	ClassOther ErrorClass = iota
	// ClassExists means the target already exists.
	ClassExists
	// ClassParentMissing means a parent directory of the target is missing.
	ClassParentMissing
)

// String returns the class name.
func (c ErrorClass) String() string {
	switch c {
	case ClassExists:
		return "exists"
	case ClassParentMissing:
		return "parent-missing"
	default:
		return "other"
	}
}

// ServerError is a failure reported by the remote server for one command.
// Clients classify it at the protocol boundary so the file system never has
// to interpret reply text.
type ServerError struct {
	// Op is the command that failed (e.g., "mkdir", "stor", "site").
	Op string

	// Path is the remote path the command was about, if any.
	Path string

	// Class is the classification used by directory recovery.
	Class ErrorClass

	// Code is the protocol reply code, or 0 when the protocol has none.
	Code int

	// Message is the reply text from the server.
	Message string

	// Err is the underlying library error.
	Err error
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	var reply string
	switch {
	case e.Code != 0 && e.Message != "":
		reply = fmt.Sprintf("%d %s", e.Code, e.Message)
	case e.Message != "":
		reply = e.Message
	case e.Err != nil:
		reply = e.Err.Error()
	default:
		reply = e.Class.String()
	}

	if e.Path != "" {
		return fmt.Sprintf("remote.%s %s: %s", e.Op, e.Path, reply)
	}
	return fmt.Sprintf("remote.%s: %s", e.Op, reply)
}

// Unwrap returns the underlying error.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the io/fs sentinels for classified errors.
func (e *ServerError) Is(target error) bool {
	switch e.Class {
	case ClassExists:
		return target == iofs.ErrExist
	case ClassParentMissing:
		return target == iofs.ErrNotExist
	default:
		return false
	}
}

// NewServerError creates a ServerError.
func NewServerError(op, path string, class ErrorClass, code int, message string, err error) *ServerError {
	return &ServerError{
		Op:      op,
		Path:    path,
		Class:   class,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Classify returns the class of err. Errors that are not a ServerError are
// classified through the io/fs sentinels.
func Classify(err error) ErrorClass {
	var se *ServerError
	if stderrors.As(err, &se) {
		return se.Class
	}
	switch {
	case stderrors.Is(err, iofs.ErrExist):
		return ClassExists
	case stderrors.Is(err, iofs.ErrNotExist):
		return ClassParentMissing
	default:
		return ClassOther
	}
}

var (
	// ErrNotSupported is returned by clients for commands the server or the
	// protocol library cannot perform.
	ErrNotSupported = errors.New(errors.CodeNotImplemented, "remote: command not supported")

	// ErrNotADirectory is returned by EnsureDir when a non-directory occupies
	// the path.
	ErrNotADirectory = errors.New(errors.CodeNotADirectory, "remote: not a valid directory path")
)
