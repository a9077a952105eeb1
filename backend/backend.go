package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wangziweng7890/vscode-iconfont/config"
	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/local"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
	"github.com/wangziweng7890/vscode-iconfont/scheduler"
	"github.com/wangziweng7890/vscode-iconfont/transfer"
)

// Session is an open connection described by one profile.
type Session struct {
	cfg    config.Config
	fsys   fs.FileSystem
	queue  *scheduler.Scheduler
	logger *slog.Logger
}

// Open fills in defaults, validates cfg and connects to its back-end. Failures the errors
// package reports as retryable (network, timeout, unavailable) are retried
// until the connect timeout has elapsed; anything else fails at once.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Session, error) {
	o := applyOptions(opts...)

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dial, ok := o.dialers[cfg.Protocol]
	if !ok {
		return nil, errors.Newf(errors.CodeNotImplemented, "backend: no dialer for protocol %q", cfg.Protocol)
	}

	queue, err := scheduler.New(cfg.Concurrency, scheduler.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	remoteOpts := []remote.Option{
		remote.WithLogger(o.logger),
		remote.WithTimeOffset(cfg.TimeOffset()),
	}

	logger := o.logger.With("protocol", cfg.Protocol, "address", cfg.Address())
	attempt := 0
	connect := func() (fs.FileSystem, error) {
		attempt++
		dialCtx := ctx
		if timeout := cfg.Timeout(); timeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		fsys, err := dial(dialCtx, cfg, remoteOpts...)
		if err != nil {
			if errors.IsRetryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return fsys, nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("connection attempt failed", "attempt", attempt, "retry_in", wait, "error", err)
	}

	b := backoff.WithContext(o.backOff(cfg.Timeout()), ctx)
	fsys, err := backoff.RetryNotifyWithData(connect, b, notify)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	logger.Debug("connected", "attempts", attempt, "root", cfg.RemotePath)
	return &Session{
		cfg:    cfg,
		fsys:   fsys,
		queue:  queue,
		logger: o.logger,
	}, nil
}

// Config returns the profile the session was opened with.
func (s *Session) Config() config.Config {
	return s.cfg
}

// FS returns the connected file system.
//
//nolint:ireturn // the back-end is chosen at runtime.
func (s *Session) FS() fs.FileSystem {
	return s.fsys
}

// Root returns the directory the profile is rooted at.
func (s *Session) Root() string {
	return s.cfg.RemotePath
}

// Queue returns the scheduler that bounds parallel transfers.
func (s *Session) Queue() *scheduler.Scheduler {
	return s.queue
}

// Resolve maps p onto the session's file system. Absolute paths are kept;
// relative paths are taken from Root.
func (s *Session) Resolve(p string) string {
	paths := s.fsys.Paths()
	if p == "" {
		return s.Root()
	}
	if paths.IsAbs(p) {
		return p
	}
	return paths.Join(s.Root(), p)
}

// IgnorePatterns returns the profile's ignore patterns followed by the
// content of its ignore file, which is read from the local disk relative to
// the profile's context directory.
func (s *Session) IgnorePatterns(ctx context.Context) ([]string, error) {
	patterns := append([]string(nil), s.cfg.Ignore...)
	if s.cfg.IgnoreFile == "" {
		return patterns, nil
	}

	host := local.NewOS()
	path := s.cfg.IgnoreFile
	if s.cfg.Context != "" && !host.Paths().IsAbs(path) {
		path = host.Paths().Join(s.cfg.Context, path)
	}
	more, err := transfer.ReadIgnoreFile(ctx, host, path)
	if err != nil {
		return nil, fmt.Errorf("backend: read ignore file: %w", err)
	}
	return append(patterns, more...), nil
}

// Transferer returns a transferer running on the session's queue with the
// profile's ignore patterns.
func (s *Session) Transferer(ctx context.Context, opts ...transfer.Option) (*transfer.Transferer, error) {
	patterns, err := s.IgnorePatterns(ctx)
	if err != nil {
		return nil, err
	}
	base := []transfer.Option{
		transfer.WithLogger(s.logger),
		transfer.WithIgnore(patterns...),
	}
	return transfer.New(s.queue, append(base, opts...)...), nil
}

// Close waits for queued transfers and disconnects remote back-ends.
func (s *Session) Close(ctx context.Context) error {
	if err := s.queue.WaitIdle(ctx); err != nil {
		return err
	}
	if d, ok := s.fsys.(interface {
		Disconnect(ctx context.Context) error
	}); ok {
		return d.Disconnect(ctx)
	}
	return nil
}
