package fs

import (
	"path"
	"path/filepath"
	"strings"
)

// PathResolver joins and splits paths in one back-end's namespace.
// Implementations are stateless and safe to share.
type PathResolver interface {
	Join(elem ...string) string
	Dirname(p string) string
	Basename(p string) string
	Split(p string) []string
	IsRoot(p string) bool
	IsAbs(p string) bool
}

var (
	// RemotePaths resolves slash-separated paths as used by every remote
	// protocol, whatever the host OS.
	RemotePaths PathResolver = posixPaths{}

	// LocalPaths resolves paths with the host OS separators.
	LocalPaths PathResolver = hostPaths{}
)

type posixPaths struct{}

func (posixPaths) Join(elem ...string) string { return path.Join(elem...) }
func (posixPaths) Dirname(p string) string    { return path.Dir(p) }

func (posixPaths) Basename(p string) string {
	if p == "" {
		return ""
	}
	b := path.Base(p)
	if b == "/" || b == "." {
		return ""
	}
	return b
}

func (posixPaths) Split(p string) []string {
	return splitNonEmpty(path.Clean(p), "/")
}

func (posixPaths) IsRoot(p string) bool { return path.Clean(p) == "/" }
func (posixPaths) IsAbs(p string) bool  { return path.IsAbs(p) }

type hostPaths struct{}

func (hostPaths) Join(elem ...string) string { return filepath.Join(elem...) }
func (hostPaths) Dirname(p string) string    { return filepath.Dir(p) }

func (hostPaths) Basename(p string) string {
	if p == "" {
		return ""
	}
	b := filepath.Base(p)
	if b == string(filepath.Separator) || b == "." {
		return ""
	}
	return b
}

func (hostPaths) Split(p string) []string {
	p = filepath.Clean(p)
	p = strings.TrimPrefix(p, filepath.VolumeName(p))
	return splitNonEmpty(p, string(filepath.Separator))
}

func (hostPaths) IsRoot(p string) bool {
	p = filepath.Clean(p)
	return filepath.Dir(p) == p
}

func (hostPaths) IsAbs(p string) bool { return filepath.IsAbs(p) }

func splitNonEmpty(p, sep string) []string {
	parts := strings.Split(p, sep)
	out := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}
