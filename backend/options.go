package backend

import (
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wangziweng7890/vscode-iconfont/config"
)

// Option configures Open.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	dialers map[config.Protocol]Dialer
	backOff func(timeout time.Duration) backoff.BackOff
}

// WithLogger sets the logger handed to the file system and scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDialer replaces the dialer used for protocol.
func WithDialer(protocol config.Protocol, d Dialer) Option {
	return func(o *options) {
		o.dialers[protocol] = d
	}
}

// WithBackOff replaces the retry policy. fn receives the profile's connect
// timeout.
func WithBackOff(fn func(timeout time.Duration) backoff.BackOff) Option {
	return func(o *options) {
		o.backOff = fn
	}
}

// defaultBackOff retries for at most timeout, starting at 200ms. Without a
// timeout there is a single attempt.
//
//nolint:ireturn // backoff policies are interchangeable.
func defaultBackOff(timeout time.Duration) backoff.BackOff {
	if timeout <= 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithMaxElapsedTime(timeout),
	)
}

func applyOptions(opts ...Option) *options {
	o := &options{
		dialers: defaultDialers(),
		backOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
