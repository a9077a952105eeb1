package sftp

import (
	"testing"

	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/fstest"
)

func TestConformance(t *testing.T) {
	fstest.TestSuite(t, func(t *testing.T) (fs.FileSystem, string) {
		return newPipeFS(t)
	})
}
