// Package fstest provides a conformance test suite for fs.FileSystem
// back-ends.
//
// The suite checks the contract every back-end shares: stat, listing,
// transfers, directory management and handle metadata. Back-ends differ in
// what they can do (an object store cannot chmod, a plain FTP server cannot
// either), so capabilities that are legitimately missing are skipped by
// name rather than weakened for everyone.
//
// Example usage:
//
//	func TestConformance(t *testing.T) {
//	    fstest.TestSuite(t, func(t *testing.T) (fs.FileSystem, string) {
//	        return local.NewOS(), t.TempDir()
//	    })
//	}
package fstest

import (
	"context"
	"testing"

	"github.com/wangziweng7890/vscode-iconfont/fs"
)

// NewFunc returns a file system and an empty directory on it to work in.
// It is called once per group of tests.
type NewFunc func(t *testing.T) (fs.FileSystem, string)

// TestSuite runs all conformance tests.
func TestSuite(t *testing.T, newFS NewFunc) {
	TestSuiteWithSkip(t, newFS, nil)
}

// TestSuiteWithSkip runs conformance tests, skipping the named ones
// (e.g., "Metadata" or "Metadata/Chmod").
func TestSuiteWithSkip(t *testing.T, newFS NewFunc, skipTests []string) {
	groups := []struct {
		name string
		run  func(t *testing.T, filesystem fs.FileSystem, root string, skip func(string) bool)
	}{
		{name: "Read", run: TestReadFS},
		{name: "Write", run: TestWriteFS},
		{name: "Manage", run: TestManageFS},
		{name: "Metadata", run: TestMetadataFS},
	}

	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if shouldSkip(skipTests, g.name) {
				t.Skip("Skipped by provider configuration")
				return
			}
			filesystem, root := newFS(t)
			if err := filesystem.EnsureDir(context.Background(), root); err != nil {
				t.Fatalf("EnsureDir(%q): setup failed: %v", root, err)
			}
			g.run(t, filesystem, root, func(name string) bool {
				return shouldSkip(skipTests, g.name+"/"+name)
			})
		})
	}
}

func shouldSkip(skipTests []string, name string) bool {
	for _, skip := range skipTests {
		if skip == name {
			return true
		}
	}
	return false
}

// run runs one named subtest unless it is skipped.
func run(t *testing.T, name string, skip func(string) bool, fn func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		if skip != nil && skip(name) {
			t.Skip("Skipped by provider configuration")
			return
		}
		fn(t)
	})
}
