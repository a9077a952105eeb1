package transfer

import (
	"io"
	"log/slog"
)

// ProgressFunc is called after every completed file with the running totals.
type ProgressFunc func(files, bytes int64)

// Option configures a Transferer.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	preserveTimes bool
	progress      ProgressFunc
	ignore        []string
}

// WithLogger sets the logger for transfer events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPreserveTimes controls whether the source modification time is set on
// the copied file. Enabled by default.
func WithPreserveTimes(preserve bool) Option {
	return func(o *options) {
		o.preserveTimes = preserve
	}
}

// WithProgress registers fn to be told about every completed file.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithIgnore leaves paths matching the .gitignore-style patterns out of tree
// copies.
func WithIgnore(patterns ...string) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, patterns...)
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{preserveTimes: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
