package backend

import (
	"context"
	"crypto/tls"
	"os"

	"github.com/wangziweng7890/vscode-iconfont/config"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/ftp"
	"github.com/wangziweng7890/vscode-iconfont/fs/local"
	"github.com/wangziweng7890/vscode-iconfont/fs/minio"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote"
	"github.com/wangziweng7890/vscode-iconfont/fs/sftp"
)

// Dialer connects to the back-end described by cfg. Remote dialers pass
// opts on to remote.New.
type Dialer func(ctx context.Context, cfg config.Config, opts ...remote.Option) (fs.FileSystem, error)

func defaultDialers() map[config.Protocol]Dialer {
	return map[config.Protocol]Dialer{
		config.ProtocolLocal: dialLocal,
		config.ProtocolFTP:   dialFTP,
		config.ProtocolSFTP:  dialSFTP,
		config.ProtocolMinIO: dialMinIO,
	}
}

//nolint:ireturn // dialers share one signature.
func dialLocal(_ context.Context, _ config.Config, _ ...remote.Option) (fs.FileSystem, error) {
	return local.NewOS(), nil
}

//nolint:ireturn // dialers share one signature.
func dialFTP(ctx context.Context, cfg config.Config, opts ...remote.Option) (fs.FileSystem, error) {
	fc := ftp.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		User:        cfg.Username,
		Password:    cfg.Password,
		Timeout:     cfg.Timeout(),
		DisableEPSV: cfg.Passive,
	}
	if cfg.Secure.Enabled() {
		fc.TLS = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
		fc.ExplicitTLS = cfg.Secure == config.SecureControl
	}
	return wrap(ftp.New(ctx, fc, opts...))
}

//nolint:ireturn // dialers share one signature.
func dialSFTP(ctx context.Context, cfg config.Config, opts ...remote.Option) (fs.FileSystem, error) {
	auth := sftp.Auth{
		Username:       cfg.Username,
		Password:       cfg.Password,
		PrivateKeyPath: expandHome(cfg.PrivateKeyPath),
		Passphrase:     cfg.Passphrase,
		KnownHostsPath: expandHome(cfg.KnownHostsPath),
	}
	if cfg.Agent != "" {
		auth.UseSSHAgent = true
		if cfg.Agent != "env" {
			auth.AgentSocket = cfg.Agent
		}
	}
	return wrap(sftp.New(ctx, sftp.Config{
		Host:    cfg.Host,
		Port:    cfg.Port,
		Auth:    auth,
		Timeout: cfg.Timeout(),
	}, opts...))
}

//nolint:ireturn // dialers share one signature.
func dialMinIO(ctx context.Context, cfg config.Config, opts ...remote.Option) (fs.FileSystem, error) {
	return wrap(minio.New(ctx, minio.Config{
		Endpoint:  cfg.Address(),
		AccessKey: cfg.Username,
		SecretKey: cfg.Password,
		Region:    cfg.Region,
		Bucket:    cfg.Bucket,
		Secure:    cfg.UseSSL,
	}, opts...))
}

// wrap keeps a nil *remote.FileSystem from becoming a non-nil interface.
//
//nolint:ireturn // dialers share one signature.
func wrap(r *remote.FileSystem, err error) (fs.FileSystem, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if len(p) < 2 || p[0] != '~' || p[1] != '/' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return home + p[1:]
}
