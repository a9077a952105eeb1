package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"

	"github.com/wangziweng7890/vscode-iconfont/internal/pool"
)

// download streams one object. The object is stat'ed before it is handed
// out so a missing key fails at Retrieve rather than on the first Read.
type download struct {
	obj *minio.Object
}

func newDownload(ctx context.Context, c *Client, key string) (*download, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return &download{obj: obj}, nil
}

func (d *download) Read(p []byte) (int, error) {
	return d.obj.Read(p)
}

// Close releases the underlying HTTP response.
func (d *download) Close() error {
	return d.obj.Close()
}

// upload carries the body of one PutObject call. The first bytes are read
// up front to detect the content type.
type upload struct {
	body        io.Reader
	contentType string
	head        []byte
}

func newUpload(r io.Reader) (*upload, error) {
	head := pool.GetSmallBuffer()
	n, err := io.ReadFull(r, head)
	switch err {
	case nil, io.EOF, io.ErrUnexpectedEOF:
	default:
		pool.PutSmallBuffer(head)
		return nil, err
	}

	return &upload{
		body:        io.MultiReader(bytes.NewReader(head[:n]), r),
		contentType: mimetype.Detect(head[:n]).String(),
		head:        head,
	}, nil
}

// release returns the sniffing buffer to the pool. The body must not be
// read afterwards.
func (u *upload) release() {
	pool.PutSmallBuffer(u.head)
	u.head = nil
}
