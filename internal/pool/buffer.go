// Package pool provides reusable byte buffers for stream copies.
//
// Every transfer in this module moves bytes between an io.Reader and an
// io.Writer. Drawing the copy buffer from a pool keeps a long-running sync
// from allocating a fresh buffer per file.
package pool

import (
	"io"
	"sync"
)

const (
	// SmallBufferSize is enough to sniff the content type of a stream (4KB).
	SmallBufferSize = 4 * 1024
	// CopyBufferSize is the buffer used for stream copies (64KB).
	CopyBufferSize = 64 * 1024
)

// BufferPool manages reusable buffers of two sizes.
type BufferPool struct {
	small *sync.Pool
	copy  *sync.Pool
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, SmallBufferSize)
				return &buf
			},
		},
		copy: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, CopyBufferSize)
				return &buf
			},
		},
	}
}

// GetSmall returns a full-length small buffer.
// The caller is responsible for calling PutSmall to return it.
func (bp *BufferPool) GetSmall() []byte {
	bufPtr := bp.small.Get().(*[]byte)
	return (*bufPtr)[:SmallBufferSize]
}

// PutSmall returns a small buffer to the pool.
func (bp *BufferPool) PutSmall(buf []byte) {
	if cap(buf) != SmallBufferSize {
		return
	}
	buf = buf[:SmallBufferSize]
	bp.small.Put(&buf)
}

// GetCopy returns a full-length copy buffer.
// The caller is responsible for calling PutCopy to return it.
func (bp *BufferPool) GetCopy() []byte {
	bufPtr := bp.copy.Get().(*[]byte)
	return (*bufPtr)[:CopyBufferSize]
}

// PutCopy returns a copy buffer to the pool.
func (bp *BufferPool) PutCopy(buf []byte) {
	if cap(buf) != CopyBufferSize {
		return
	}
	buf = buf[:CopyBufferSize]
	bp.copy.Put(&buf)
}

// Copy copies src to dst through a pooled buffer.
func (bp *BufferPool) Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := bp.GetCopy()
	defer bp.PutCopy(buf)
	return io.CopyBuffer(dst, src, buf)
}

// Global buffer pool instance for use throughout the module.
var globalBufferPool = NewBufferPool()

// GetSmallBuffer returns a small buffer from the global pool.
func GetSmallBuffer() []byte {
	return globalBufferPool.GetSmall()
}

// PutSmallBuffer returns a small buffer to the global pool.
func PutSmallBuffer(buf []byte) {
	globalBufferPool.PutSmall(buf)
}

// Copy copies src to dst through a buffer from the global pool.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	return globalBufferPool.Copy(dst, src)
}
