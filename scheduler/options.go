package scheduler

import (
	"io"
	"log/slog"
)

type options struct {
	autoStart bool
	logger    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*options)

// WithAutoStart controls whether the scheduler dispatches jobs as soon as it
// is created. The default is true; pass false and call Start later to hold
// jobs back.
func WithAutoStart(autoStart bool) Option {
	return func(o *options) {
		o.autoStart = autoStart
	}
}

// WithLogger sets the logger used to report recovered job panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func defaultOptions() *options {
	return &options{
		autoStart: true,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
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
	return o
}

type addOptions struct {
	priority int
}

// AddOption configures a single Add or AddAll call.
type AddOption func(*addOptions)

// WithPriority sets the job priority. Higher priorities are dispatched first;
// the default is 0.
func WithPriority(priority int) AddOption {
	return func(o *addOptions) {
		o.priority = priority
	}
}
