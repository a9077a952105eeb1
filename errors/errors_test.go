package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeInvalidInput, "bad path")

	assert.Equal(t, CodeInvalidInput, err.Code())
	assert.Equal(t, "bad path", err.Message())
	assert.Equal(t, "bad path", err.Error())
	assert.Nil(t, err.Unwrap())
	assert.False(t, err.Retryable())
}

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, CodeInternal, "noop"))
		assert.Nil(t, WrapWithContext(nil, CodeInternal, "noop", nil))
	})

	t.Run("cause is preserved", func(t *testing.T) {
		err := Wrap(fs.ErrNotExist, CodeNotFound, "file not exist")

		assert.True(t, stderrors.Is(err, fs.ErrNotExist))
		assert.Equal(t, "file not exist: file does not exist", err.Error())
	})

	t.Run("context is rendered in key order", func(t *testing.T) {
		err := WrapWithContext(
			fs.ErrExist,
			CodeAlreadyExists,
			"mkdir failed",
			map[string]interface{}{"path": "/a", "attempt": 2},
		)

		assert.Equal(t, "mkdir failed (attempt=2, path=/a): file already exists", err.Error())
		assert.Equal(t, "/a", err.Context()["path"])
	})
}

func TestAsThroughFmtWrapping(t *testing.T) {
	inner := New(CodeTimeout, "dial timed out")
	outer := fmt.Errorf("connect: %w", inner)

	var pe PlatformError
	require.True(t, As(outer, &pe))
	assert.Equal(t, CodeTimeout, pe.Code())
	assert.Equal(t, CodeTimeout, GetCode(outer))
	assert.True(t, HasCode(outer, CodeTimeout))
	assert.True(t, IsRetryable(outer))
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, CodeUnknown, GetCode(nil))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestIsMatchesSentinel(t *testing.T) {
	sentinel := New(CodeNotImplemented, "site commands are not supported")
	err := fmt.Errorf("chmod /a: %w", New(CodeNotImplemented, "site commands are not supported"))

	assert.True(t, Is(err, sentinel))
	assert.False(t, Is(err, New(CodeNotImplemented, "something else")))
}

func TestRetryableCodes(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{CodeNetwork, true},
		{CodeTimeout, true},
		{CodeUnavailable, true},
		{CodeNotFound, false},
		{CodeInvalidConfig, false},
		{CodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.IsRetryable())
		})
	}
}
