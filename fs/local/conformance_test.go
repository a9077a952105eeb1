package local

import (
	"testing"

	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/fstest"
)

func TestConformanceOS(t *testing.T) {
	fstest.TestSuite(t, func(t *testing.T) (fs.FileSystem, string) {
		return NewOS(), t.TempDir()
	})
}

func TestConformanceMemory(t *testing.T) {
	// memfs implements neither chmod nor chtimes.
	fstest.TestSuiteWithSkip(t, func(t *testing.T) (fs.FileSystem, string) {
		return NewMemory(), "/suite"
	}, []string{"Metadata/Futimes", "Metadata/Chmod"})
}
