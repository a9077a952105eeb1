// Package transfer copies files and directory trees between two
// fs.FileSystem back-ends.
//
// Copies run as jobs on a caller-supplied scheduler, which bounds how many
// files are in flight at once. Each file is streamed from the source with Get
// straight into Put on the destination; the destination parent directory is
// created first, and the source modification time is carried over afterwards
// when the destination supports it.
//
// Remote back-ends serialize all commands on one control connection and a
// Get keeps that connection busy until its reader is closed. Source and
// destination must therefore not be the same remote file system.
package transfer
