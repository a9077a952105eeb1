package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wangziweng7890/vscode-iconfont/backend"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/local"
	"github.com/wangziweng7890/vscode-iconfont/transfer"
)

type transferFlags struct {
	noTimes bool
	verbose bool
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noTimes, "no-times", false, "Do not carry modification times over")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print running totals while copying a directory")
}

func newDownloadCommand(a *app) *cobra.Command {
	var flags transferFlags
	cmd := &cobra.Command{
		Use:   "download <remote> [local]",
		Short: "Copy a remote file or directory to the local disk",
		Long: `Copy a remote file or directory to the local disk.

A directory is copied recursively, skipping paths matched by the profile's
ignore patterns. The local path defaults to the base name of the remote path
in the current directory.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				remotePath := s.Resolve(args[0])
				localArg := s.FS().Paths().Basename(remotePath)
				if len(args) == 2 {
					localArg = args[1]
				}
				localPath, err := filepath.Abs(localArg)
				if err != nil {
					return err
				}
				return a.copy(cmd.Context(), cmd.OutOrStdout(), s, flags, s.FS(), remotePath, local.NewOS(), localPath)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newUploadCommand(a *app) *cobra.Command {
	var flags transferFlags
	cmd := &cobra.Command{
		Use:   "upload <local> [remote]",
		Short: "Copy a local file or directory to the remote side",
		Long: `Copy a local file or directory to the remote side.

A directory is copied recursively, skipping paths matched by the profile's
ignore patterns. The remote path defaults to the base name of the local path
under the profile's remotePath.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				remoteArg := filepath.Base(localPath)
				if len(args) == 2 {
					remoteArg = args[1]
				}
				return a.copy(cmd.Context(), cmd.OutOrStdout(), s, flags, local.NewOS(), localPath, s.FS(), s.Resolve(remoteArg))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) copy(
	ctx context.Context,
	out io.Writer,
	s *backend.Session,
	flags transferFlags,
	src fs.FileSystem, srcPath string,
	dst fs.FileSystem, dstPath string,
) error {
	opts := []transfer.Option{transfer.WithPreserveTimes(!flags.noTimes)}
	if flags.verbose {
		opts = append(opts, transfer.WithProgress(func(files, bytes int64) {
			fmt.Fprintf(out, "%d files, %d bytes\n", files, bytes)
		}))
	}
	t, err := s.Transferer(ctx, opts...)
	if err != nil {
		return err
	}

	st, err := src.Lstat(ctx, srcPath)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		if err := t.CopyFile(ctx, src, srcPath, dst, dstPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s -> %s\n", srcPath, dstPath)
		return nil
	}

	result, err := t.CopyTree(ctx, src, srcPath, dst, dstPath)
	if result != nil {
		for _, e := range result.Errors {
			a.logger.Error("copy failed", "source", e.Source, "destination", e.Destination, "error", e.Err)
		}
		fmt.Fprintf(out, "copied %d files (%d bytes) in %s\n", result.Files, result.Bytes, result.Duration.Round(time.Millisecond))
	}
	return err
}
