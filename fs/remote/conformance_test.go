package remote_test

import (
	"testing"

	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/fstest"
	"github.com/wangziweng7890/vscode-iconfont/fs/remote/remotetest"
)

func TestConformance(t *testing.T) {
	fstest.TestSuite(t, func(t *testing.T) (fs.FileSystem, string) {
		return newFS(t, remotetest.NewClient()), "/suite"
	})
}
