package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// PlatformError is the error type produced by this module.
// It carries a code, a human readable message, optional structured context
// and the wrapped cause. Use errors.As to extract it from an error chain.
type PlatformError interface {
	error

	// Code returns the error code.
	Code() ErrorCode

	// Message returns the message without the cause.
	Message() string

	// Context returns the structured context attached to the error.
	// The returned map must not be modified.
	Context() map[string]interface{}

	// Unwrap returns the wrapped cause, if any.
	Unwrap() error

	// Retryable reports whether the failure is transient.
	Retryable() bool
}

type platformError struct {
	code    ErrorCode
	message string
	context map[string]interface{}
	cause   error
}

// New creates a PlatformError with the given code and message.
//
//nolint:ireturn // PlatformError is the public error contract of this package.
func New(code ErrorCode, message string) PlatformError {
	return &platformError{code: code, message: message}
}

// Newf creates a PlatformError with a formatted message.
//
//nolint:ireturn // PlatformError is the public error contract of this package.
func Newf(code ErrorCode, format string, args ...interface{}) PlatformError {
	return &platformError{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message. It returns nil when err is nil.
//
//nolint:ireturn // PlatformError is the public error contract of this package.
func Wrap(err error, code ErrorCode, message string) PlatformError {
	if err == nil {
		return nil
	}
	return &platformError{code: code, message: message, cause: err}
}

// WrapWithContext wraps err with a code, a message and structured context.
// It returns nil when err is nil.
//
//nolint:ireturn // PlatformError is the public error contract of this package.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) PlatformError {
	if err == nil {
		return nil
	}
	return &platformError{code: code, message: message, context: ctx, cause: err}
}

// Error implements the error interface.
func (e *platformError) Error() string {
	var b strings.Builder
	b.WriteString(e.message)

	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.context[k])
		}
		b.WriteString(")")
	}

	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *platformError) Code() ErrorCode                 { return e.code }
func (e *platformError) Message() string                 { return e.message }
func (e *platformError) Context() map[string]interface{} { return e.context }
func (e *platformError) Unwrap() error                   { return e.cause }
func (e *platformError) Retryable() bool                 { return e.code.IsRetryable() }

// Is matches another PlatformError with the same code, so that sentinel
// values created with New can be used as errors.Is targets.
func (e *platformError) Is(target error) bool {
	var pe PlatformError
	if !stderrors.As(target, &pe) {
		return false
	}
	return pe.Code() == e.code && pe.Message() == e.message
}

// GetCode returns the code of the first PlatformError in the chain,
// or CodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var pe PlatformError
	if stderrors.As(err, &pe) {
		return pe.Code()
	}
	return CodeUnknown
}

// HasCode reports whether any PlatformError in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if pe, ok := err.(PlatformError); ok && pe.Code() == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable reports whether err is a PlatformError with a transient code.
func IsRetryable(err error) bool {
	var pe PlatformError
	return stderrors.As(err, &pe) && pe.Retryable()
}

// Is is re-exported from the standard library for convenience.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As is re-exported from the standard library for convenience.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Unwrap is re-exported from the standard library for convenience.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join is re-exported from the standard library for convenience.
func Join(errs ...error) error { return stderrors.Join(errs...) }
