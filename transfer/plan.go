package transfer

import (
	"context"
	"slices"

	"github.com/wangziweng7890/vscode-iconfont/fs"
)

type planned struct {
	src   string
	dst   string
	stats fs.FileStats
}

// plan is the result of walking a source tree.
type plan struct {
	dirs  []planned
	files []planned
	links []planned

	// failed holds destination directories that could not be created.
	failed []string
}

// plan walks srcDir depth first. Directories are listed before their
// content so creating them in order never hits a missing parent. Listing
// failures are recorded and the subtree is skipped. Once ctx ends the walk
// records the cancellation against the next directory and stops.
func (t *Transferer) plan(
	ctx context.Context,
	src fs.FileSystem, srcDir string,
	dst fs.FileSystem, dstDir string,
	c *collector,
) *plan {
	p := &plan{}
	p.dirs = append(p.dirs, planned{src: srcDir, dst: dstDir})

	var walk func(srcDir, dstDir string, rel []string)
	walk = func(srcDir, dstDir string, rel []string) {
		if err := ctx.Err(); err != nil {
			c.fail(srcDir, dstDir, err)
			return
		}
		entries, err := src.List(ctx, srcDir, fs.WithHiddenFiles())
		if err != nil {
			c.fail(srcDir, dstDir, err)
			return
		}
		for _, e := range entries {
			parts := append(append([]string(nil), rel...), e.Name)
			if t.ignore.Match(parts, e.IsDir()) {
				t.logger.Debug("ignoring path", "path", e.Path)
				continue
			}
			item := planned{src: e.Path, dst: dst.Paths().Join(dstDir, e.Name), stats: e.FileStats}
			switch e.Type {
			case fs.TypeDirectory:
				p.dirs = append(p.dirs, item)
				walk(item.src, item.dst, parts)
			case fs.TypeSymlink:
				if item.stats.Target == "" {
					target, err := src.Readlink(ctx, item.src)
					if err != nil {
						c.fail(item.src, item.dst, err)
						continue
					}
					item.stats.Target = target
				}
				p.links = append(p.links, item)
			default:
				p.files = append(p.files, item)
			}
		}
	}
	walk(srcDir, dstDir, nil)

	return p
}

// skip marks dir, and everything below it, as not to be copied.
func (p *plan) skip(dir string) {
	p.failed = append(p.failed, dir)
}

// skipped reports whether path lies below a directory passed to skip.
func (p *plan) skipped(path string, paths fs.PathResolver) bool {
	if len(p.failed) == 0 {
		return false
	}
	for dir := paths.Dirname(path); ; dir = paths.Dirname(dir) {
		if slices.Contains(p.failed, dir) {
			return true
		}
		if paths.Dirname(dir) == dir {
			return false
		}
	}
}
