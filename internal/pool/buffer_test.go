package pool

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufferPool(t *testing.T) {
	bp := NewBufferPool()
	require.NotNil(t, bp)
	assert.NotNil(t, bp.small)
	assert.NotNil(t, bp.copy)
}

func TestBufferPool_GetSmall(t *testing.T) {
	bp := NewBufferPool()

	buf := bp.GetSmall()
	assert.Len(t, buf, SmallBufferSize)
	assert.Equal(t, SmallBufferSize, cap(buf))

	bp.PutSmall(buf)
	// Foreign buffers are dropped rather than pooled.
	bp.PutSmall(make([]byte, 10))
}

func TestBufferPool_GetCopy(t *testing.T) {
	bp := NewBufferPool()

	buf := bp.GetCopy()
	assert.Len(t, buf, CopyBufferSize)

	// Returned buffers come back full length even if the caller resliced them.
	bp.PutCopy(buf[:0])
	again := bp.GetCopy()
	assert.Len(t, again, CopyBufferSize)
	bp.PutCopy(again)
}

func TestCopy(t *testing.T) {
	t.Run("copies everything", func(t *testing.T) {
		src := strings.Repeat("0123456789", CopyBufferSize/5)
		var dst bytes.Buffer

		n, err := Copy(&dst, strings.NewReader(src))
		require.NoError(t, err)
		assert.Equal(t, int64(len(src)), n)
		assert.Equal(t, src, dst.String())
	})

	t.Run("surfaces reader errors", func(t *testing.T) {
		boom := errors.New("boom")
		var dst bytes.Buffer

		_, err := Copy(&dst, io.MultiReader(strings.NewReader("abc"), &failingReader{err: boom}))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "abc", dst.String())
	})
}

func TestGlobalSmallBuffer(t *testing.T) {
	buf := GetSmallBuffer()
	assert.Len(t, buf, SmallBufferSize)
	PutSmallBuffer(buf)
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }
