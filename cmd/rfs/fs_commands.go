package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wangziweng7890/vscode-iconfont/backend"
	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
)

func newProfilesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles in the profile file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := a.profiles(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", profiles.Names()[i], p.Protocol, p.Address(), p.RemotePath)
			}
			return w.Flush()
		},
	}
}

func newLsCommand(a *app) *cobra.Command {
	var all, long bool
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Long:  "List a remote directory. Relative paths start at the profile's remotePath.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				var opts []fs.ListOption
				if all {
					opts = append(opts, fs.WithHiddenFiles())
				}
				entries, err := s.FS().List(cmd.Context(), s.Resolve(firstArg(args)), opts...)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !long {
					for _, e := range entries {
						fmt.Fprintln(out, e.Name)
					}
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 4, 1, ' ', tabwriter.AlignRight)
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%d\t%s\t %s\n", modeString(e.FileStats), e.Size, formatTime(e.MTime), displayName(e))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include entries starting with a dot")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show mode, size and modification time")
	return cmd
}

func newStatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the stats of a remote path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				p := s.Resolve(args[0])
				st, err := s.FS().Lstat(cmd.Context(), p)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "path:  %s\n", p)
				fmt.Fprintf(out, "type:  %s\n", st.Type)
				fmt.Fprintf(out, "mode:  %s\n", modeString(st))
				fmt.Fprintf(out, "size:  %d\n", st.Size)
				fmt.Fprintf(out, "mtime: %s\n", formatTime(st.MTime))
				if st.Target != "" {
					fmt.Fprintf(out, "link:  %s\n", st.Target)
				}
				return nil
			})
		},
	}
}

func newMkdirCommand(a *app) *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "mkdir <path>...",
		Short: "Create remote directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				for _, arg := range args {
					p := s.Resolve(arg)
					mkdir := s.FS().Mkdir
					if parents {
						mkdir = s.FS().EnsureDir
					}
					if err := mkdir(cmd.Context(), p); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "Create missing parents; no error if the directory exists")
	return cmd
}

func newRmCommand(a *app) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove remote files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				ctx := cmd.Context()
				for _, arg := range args {
					p := s.Resolve(arg)
					st, err := s.FS().Lstat(ctx, p)
					if err != nil {
						return err
					}
					if st.IsDir() {
						err = s.FS().Rmdir(ctx, p, recursive)
					} else {
						err = s.FS().Unlink(ctx, p)
					}
					if err != nil {
						return err
					}
					a.logger.Info("removed", "path", p, "type", st.Type)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Remove directories and their content")
	return cmd
}

func newMvCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Rename a remote path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				return s.FS().Rename(cmd.Context(), s.Resolve(args[0]), s.Resolve(args[1]))
			})
		},
	}
}

func newChmodCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chmod <mode> <path>...",
		Short: "Change the permission bits of remote paths",
		Long: `Change the permission bits of remote paths.

Works on sftp and local profiles. The FTP client library cannot send
SITE CHMOD, so ftp profiles always fail with a not implemented error, as do
minio profiles, whose objects carry no permission bits.`,
		Example: `  rfs chmod 644 index.html
  rfs chmod 0755 bin/deploy.sh`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *backend.Session) error {
				for _, arg := range args[1:] {
					if err := s.FS().Chmod(cmd.Context(), s.Resolve(arg), mode); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func parseMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil || n > uint64(os.ModePerm) {
		return 0, errors.Newf(errors.CodeInvalidInput, "invalid mode %q: want octal permission bits such as 644", s)
	}
	return os.FileMode(n), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func modeString(st fs.FileStats) string {
	var c byte
	switch st.Type {
	case fs.TypeDirectory:
		c = 'd'
	case fs.TypeSymlink:
		c = 'l'
	case fs.TypeFile:
		c = '-'
	default:
		c = '?'
	}
	// FileMode.String prefixes a type letter we replace with our own.
	perm := fs.PermissionBits(st.Mode).String()
	return string(c) + perm[1:]
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

func displayName(e fs.FileEntry) string {
	if e.Type == fs.TypeSymlink && e.Target != "" {
		return e.Name + " -> " + e.Target
	}
	return e.Name
}
