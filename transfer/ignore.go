package transfer

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/wangziweng7890/vscode-iconfont/fs"
)

const commentPrefix = "#"

// Ignore decides which paths of a tree copy are left out. Patterns follow
// .gitignore syntax and are matched against paths relative to the root of
// the copy.
type Ignore struct {
	matcher gitignore.Matcher
	count   int
}

// NewIgnore compiles patterns. Later patterns take precedence, so a "!"
// pattern re-includes what an earlier one excluded.
func NewIgnore(patterns ...string) *Ignore {
	ps := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if strings.HasPrefix(p, commentPrefix) || strings.TrimSpace(p) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	return &Ignore{matcher: gitignore.NewMatcher(ps), count: len(ps)}
}

// Match reports whether the relative path parts are ignored.
func (i *Ignore) Match(parts []string, isDir bool) bool {
	if i == nil || i.count == 0 {
		return false
	}
	return i.matcher.Match(parts, isDir)
}

// Len returns the number of compiled patterns.
func (i *Ignore) Len() int {
	if i == nil {
		return 0
	}
	return i.count
}

// ParseIgnore reads .gitignore-style lines from r. Blank lines and comments
// are dropped.
func ParseIgnore(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s := scanner.Text()
		if !strings.HasPrefix(s, commentPrefix) && len(strings.TrimSpace(s)) > 0 {
			patterns = append(patterns, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// ReadIgnoreFile loads ignore patterns from path on fsys.
func ReadIgnoreFile(ctx context.Context, fsys fs.FileSystem, path string) ([]string, error) {
	rc, err := fsys.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return ParseIgnore(rc)
}
