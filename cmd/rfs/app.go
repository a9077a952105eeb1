package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wangziweng7890/vscode-iconfont/backend"
	"github.com/wangziweng7890/vscode-iconfont/config"
	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs/local"
)

const (
	envPrefix = "RFS"
	appName   = "rfs"
)

// configCandidates are looked up under the XDG config directories when
// --config is not given.
var configCandidates = []string{
	filepath.Join(appName, "config.json"),
	filepath.Join(appName, "config.yaml"),
	filepath.Join(appName, "config.yml"),
}

// app holds state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	logger  *slog.Logger
	logFile *lumberjack.Logger

	// backendOpts are appended to every backend.Open call.
	backendOpts []backend.Option
}

func newRootCommand(a *app) *cobra.Command {
	a.v = viper.New()
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Browse and synchronize remote file systems",
		Long: `rfs talks to SFTP, FTP(S) and S3-compatible servers through
connection profiles.

Profiles are read from --config, $RFS_CONFIG or rfs/config.json under the
XDG config directories. A file holds one profile object or a list of them;
--name picks one, otherwise the first profile is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogging(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to the profile file")
	flags.StringP("name", "n", "", "Profile to use")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Also write logs to this file, rotated by size")
	_ = a.v.BindPFlags(flags)

	rootCmd.AddCommand(
		newProfilesCommand(a),
		newLsCommand(a),
		newStatCommand(a),
		newMkdirCommand(a),
		newRmCommand(a),
		newMvCommand(a),
		newChmodCommand(a),
		newDownloadCommand(a),
		newUploadCommand(a),
	)
	return rootCmd
}

func (a *app) setupLogging(stderr io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log-level"))); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "invalid --log-level")
	}

	w := stderr
	if path := a.v.GetString("log-file"); path != "" {
		a.logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		w = io.MultiWriter(stderr, a.logFile)
	}
	a.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

// Close releases the log file.
func (a *app) Close() error {
	if a.logFile == nil {
		return nil
	}
	return a.logFile.Close()
}

func (a *app) configPath() (string, error) {
	if p := a.v.GetString("config"); p != "" {
		return filepath.Abs(p)
	}
	for _, rel := range configCandidates {
		if p, err := xdg.SearchConfigFile(rel); err == nil {
			return p, nil
		}
	}
	return "", errors.Newf(
		errors.CodeNotFound,
		"no profile file found; pass --config or create %s",
		filepath.Join(xdg.ConfigHome, configCandidates[0]),
	)
}

func (a *app) profiles(ctx context.Context) (config.Profiles, error) {
	path, err := a.configPath()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loading profiles", "path", path)
	return config.Load(ctx, local.NewOS(), path)
}

func (a *app) profile(ctx context.Context) (config.Config, error) {
	profiles, err := a.profiles(ctx)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := profiles.Get(a.v.GetString("name"))
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Context == "" {
		if dir, err := os.Getwd(); err == nil {
			cfg.Context = dir
		}
	}
	return cfg, nil
}

// withSession opens the selected profile, runs fn and closes the session.
func (a *app) withSession(ctx context.Context, fn func(s *backend.Session) error) (err error) {
	cfg, err := a.profile(ctx)
	if err != nil {
		return err
	}

	opts := append([]backend.Option{backend.WithLogger(a.logger)}, a.backendOpts...)
	s, err := backend.Open(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Address(), err)
	}
	defer func() {
		if cerr := s.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}
