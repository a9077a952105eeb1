package remote

import (
	"io"
	"log/slog"
	"time"

	"github.com/wangziweng7890/vscode-iconfont/fs"
)

type options struct {
	logger     *slog.Logger
	timeOffset time.Duration
	paths      fs.PathResolver
}

// Option configures a FileSystem.
type Option func(*options)

// WithLogger sets the logger used for capability downgrades and abort
// failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeOffset shifts every listed modification time by offset. Use it for
// servers whose clock or reported time zone differs from local time.
func WithTimeOffset(offset time.Duration) Option {
	return func(o *options) {
		o.timeOffset = offset
	}
}

// WithPaths replaces the path resolver. The default is fs.RemotePaths.
func WithPaths(paths fs.PathResolver) Option {
	return func(o *options) {
		o.paths = paths
	}
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		paths:  fs.RemotePaths,
	}
}

func applyOptions(opts ...Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.paths == nil {
		o.paths = fs.RemotePaths
	}
	return o
}
