// Package minio connects a remote.FileSystem to an S3-compatible bucket
// using the MinIO SDK.
//
// Object stores have no directories. A directory is represented by an empty
// marker object whose key ends in "/", which is how most S3 browsers create
// folders, and a directory also exists implicitly while any key lives under
// it. Modification times are set by the store and cannot be changed, and
// there are no permission bits.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
)

// Config holds the connection parameters of a bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string

	// Prefix roots the file system below a key prefix.
	Prefix string

	// Secure selects HTTPS.
	Secure bool

	// CreateBucket creates the bucket when it does not exist.
	CreateBucket bool
}

// Client implements remote.Client over a bucket.
type Client struct {
	api     *minio.Client
	bucket  string
	prefix  string
	aborted atomic.Bool
}

// Dial connects to the endpoint and checks the bucket.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "minio: endpoint and bucket are required")
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "minio: create client")
	}

	exists, err := api.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, fmt.Sprintf("minio: check bucket %s", cfg.Bucket))
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, errors.Newf(errors.CodeNotFound, "minio: bucket %s does not exist", cfg.Bucket)
		}
		if err := api.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnavailable, fmt.Sprintf("minio: create bucket %s", cfg.Bucket))
		}
	}

	return NewClient(api, cfg.Bucket, cfg.Prefix), nil
}

// NewClient wraps an existing SDK client.
func NewClient(api *minio.Client, bucket, prefix string) *Client {
	return &Client{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// New dials cfg and wraps the bucket in a remote.FileSystem.
func New(ctx context.Context, cfg Config, opts ...remote.Option) (*remote.FileSystem, error) {
	client, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return remote.New(client, opts...)
}

// key maps a slash path onto an object key.
func (c *Client) key(p string) string {
	k := strings.TrimPrefix(path.Clean("/"+p), "/")
	if c.prefix == "" {
		return k
	}
	if k == "" {
		return c.prefix
	}
	return c.prefix + "/" + k
}

// dirPrefix is the listing prefix of directory p.
func (c *Client) dirPrefix(p string) string {
	k := c.key(p)
	if k == "" {
		return ""
	}
	return k + "/"
}

// List implements remote.Client.
func (c *Client) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	prefix := c.dirPrefix(dir)

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var entries []remote.Entry
	found := prefix == "" || path.Clean("/"+dir) == "/"
	for obj := range c.api.ListObjects(listCtx, c.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, classify("list", dir, obj.Err)
		}
		found = true
		if obj.Key == prefix {
			continue
		}

		name := strings.TrimPrefix(obj.Key, prefix)
		if strings.HasSuffix(name, "/") {
			entries = append(entries, remote.Entry{
				Name: strings.TrimSuffix(name, "/"),
				Type: fs.TypeDirectory,
			})
			continue
		}
		entries = append(entries, remote.Entry{
			Name:    name,
			Type:    fs.TypeFile,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	}

	if !found {
		return nil, remote.NewServerError("list", dir, remote.ClassOther, http.StatusNotFound, "no such directory", fs.ErrNotExist)
	}
	return entries, nil
}

// Retrieve implements remote.Client.
func (c *Client) Retrieve(ctx context.Context, p string) (io.ReadCloser, error) {
	d, err := newDownload(ctx, c, c.key(p))
	if err != nil {
		return nil, classify("get", p, err)
	}
	return d, nil
}

// Store implements remote.Client. The upload size is unknown, so the SDK
// streams it as a multipart upload, which it aborts itself when the body
// fails. A marked abort also removes any object that did get written.
func (c *Client) Store(ctx context.Context, r io.Reader, p string) error {
	c.aborted.Store(false)

	up, err := newUpload(r)
	if err != nil {
		return err
	}
	defer up.release()

	key := c.key(p)
	_, err = c.api.PutObject(ctx, c.bucket, key, up.body, -1, minio.PutObjectOptions{
		ContentType: up.contentType,
	})
	if c.aborted.Swap(false) {
		_ = c.api.RemoveObject(context.WithoutCancel(ctx), c.bucket, key, minio.RemoveObjectOptions{})
	}
	if err != nil {
		return classify("put", p, err)
	}
	return nil
}

// Delete implements remote.Client. Deleting a missing key succeeds on S3,
// so existence is checked first.
func (c *Client) Delete(ctx context.Context, p string) error {
	key := c.key(p)
	if _, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		return classify("delete", p, err)
	}
	if err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify("delete", p, err)
	}
	return nil
}

// MakeDir implements remote.Client by writing a directory marker.
func (c *Client) MakeDir(ctx context.Context, p string) error {
	exists, err := c.dirExists(ctx, p)
	if err != nil {
		return classify("mkdir", p, err)
	}
	if exists {
		return remote.NewServerError("mkdir", p, remote.ClassExists, http.StatusConflict, "directory exists", nil)
	}
	if _, err := c.api.StatObject(ctx, c.bucket, c.key(p), minio.StatObjectOptions{}); err == nil {
		return remote.NewServerError("mkdir", p, remote.ClassExists, http.StatusConflict, "file exists", nil)
	}

	parent := path.Dir(path.Clean("/" + p))
	if parent != "/" {
		ok, err := c.dirExists(ctx, parent)
		if err != nil {
			return classify("mkdir", p, err)
		}
		if !ok {
			return remote.NewServerError("mkdir", p, remote.ClassParentMissing, http.StatusNotFound, "parent directory missing", nil)
		}
	}

	_, err = c.api.PutObject(ctx, c.bucket, c.dirPrefix(p), strings.NewReader(""), 0, minio.PutObjectOptions{
		ContentType: "application/x-directory",
	})
	if err != nil {
		return classify("mkdir", p, err)
	}
	return nil
}

// RemoveDir implements remote.Client.
func (c *Client) RemoveDir(ctx context.Context, p string, recursive bool) error {
	prefix := c.dirPrefix(p)

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range c.api.ListObjects(listCtx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return classify("rmdir", p, obj.Err)
		}
		keys = append(keys, obj.Key)
	}

	if len(keys) == 0 {
		return remote.NewServerError("rmdir", p, remote.ClassOther, http.StatusNotFound, "no such directory", fs.ErrNotExist)
	}
	if !recursive && (len(keys) > 1 || keys[0] != prefix) {
		return remote.NewServerError("rmdir", p, remote.ClassOther, http.StatusConflict, "directory not empty", fs.ErrNotEmpty)
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var first error
	for rerr := range c.api.RemoveObjects(ctx, c.bucket, objects, minio.RemoveObjectsOptions{}) {
		if first == nil {
			first = classify("rmdir", p, rerr.Err)
		}
	}
	return first
}

// Rename implements remote.Client with server-side copies. Renaming a
// directory moves every key below it.
func (c *Client) Rename(ctx context.Context, from, to string) error {
	src := c.key(from)
	if _, err := c.api.StatObject(ctx, c.bucket, src, minio.StatObjectOptions{}); err == nil {
		return c.move(ctx, src, c.key(to))
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcPrefix, dstPrefix := c.dirPrefix(from), c.dirPrefix(to)
	moved := 0
	for obj := range c.api.ListObjects(listCtx, c.bucket, minio.ListObjectsOptions{Prefix: srcPrefix, Recursive: true}) {
		if obj.Err != nil {
			return classify("rename", from, obj.Err)
		}
		if err := c.move(ctx, obj.Key, dstPrefix+strings.TrimPrefix(obj.Key, srcPrefix)); err != nil {
			return err
		}
		moved++
	}
	if moved == 0 {
		return remote.NewServerError("rename", from, remote.ClassOther, http.StatusNotFound, "no such file or directory", fs.ErrNotExist)
	}
	return nil
}

func (c *Client) move(ctx context.Context, src, dst string) error {
	_, err := c.api.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: c.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: c.bucket, Object: src},
	)
	if err != nil {
		return classify("rename", src, err)
	}
	if err := c.api.RemoveObject(ctx, c.bucket, src, minio.RemoveObjectOptions{}); err != nil {
		return classify("rename", src, err)
	}
	return nil
}

// Site implements remote.Client. Object stores have no site commands.
func (c *Client) Site(ctx context.Context, command string) error {
	return fmt.Errorf("minio: site %s: %w", command, remote.ErrNotSupported)
}

// SetModTime implements remote.Client. LastModified is owned by the store.
func (c *Client) SetModTime(ctx context.Context, p string, mtime time.Time) error {
	return fmt.Errorf("minio: set time %s: %w", p, remote.ErrNotSupported)
}

// Abort implements remote.Client.
func (c *Client) Abort(ctx context.Context) error {
	c.aborted.Store(true)
	return nil
}

// Close implements remote.Client. The SDK keeps no session.
func (c *Client) Close() error {
	return nil
}

// dirExists reports whether p has a marker or any key below it.
func (c *Client) dirExists(ctx context.Context, p string) (bool, error) {
	prefix := c.dirPrefix(p)
	if prefix == "" {
		return true, nil
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range c.api.ListObjects(listCtx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, MaxKeys: 1}) {
		if obj.Err != nil {
			return false, obj.Err
		}
		return true, nil
	}
	return false, nil
}

func classify(op, p string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return remote.NewServerError(op, p, remote.ClassOther, resp.StatusCode, resp.Message, fmt.Errorf("%w: %w", fs.ErrNotExist, err))
	case "":
		return remote.NewServerError(op, p, remote.ClassOther, 0, "", err)
	default:
		return remote.NewServerError(op, p, remote.ClassOther, resp.StatusCode, resp.Message, err)
	}
}

var _ remote.Client = (*Client)(nil)
