package remote

import (
	"context"
	"io"
	"sync"
)

// heldReader keeps a download's job running until the caller closes the
// stream, so no other command is sent while the data connection is open.
type heldReader struct {
	rc       io.ReadCloser
	once     sync.Once
	released chan struct{}
	closeErr error
}

func newHeldReader(rc io.ReadCloser) *heldReader {
	return &heldReader{
		rc:       rc,
		released: make(chan struct{}),
	}
}

func (h *heldReader) Read(p []byte) (int, error) {
	return h.rc.Read(p)
}

// Close finishes the transfer and releases the connection. It is safe to
// call more than once.
func (h *heldReader) Close() error {
	h.once.Do(func() {
		h.closeErr = h.rc.Close()
		close(h.released)
	})
	<-h.released
	return h.closeErr
}

// wait blocks until Close has run and returns its error.
func (h *heldReader) wait() error {
	<-h.released
	return h.closeErr
}

// abortingReader calls onError once, on the first read error other than
// io.EOF, and remembers that error. A read after ctx has ended fails with
// ctx.Err().
type abortingReader struct {
	ctx     context.Context
	r       io.Reader
	onError func()

	mu  sync.Mutex
	err error
}

func newAbortingReader(ctx context.Context, r io.Reader, onError func()) *abortingReader {
	return &abortingReader{ctx: ctx, r: r, onError: onError}
}

func (a *abortingReader) Read(p []byte) (int, error) {
	var n int
	err := a.ctx.Err()
	if err == nil {
		n, err = a.r.Read(p)
	}
	if err != nil && err != io.EOF {
		a.mu.Lock()
		first := a.err == nil
		if first {
			a.err = err
		}
		a.mu.Unlock()
		if first {
			a.onError()
		}
	}
	return n, err
}

func (a *abortingReader) failure() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
