package fs

import "os"

// FileType classifies a file system entry.
type FileType int

const (
	TypeUnknown FileType = iota
	TypeFile
	TypeDirectory
	TypeSymlink
)

// String returns the lower-case name of the type.
func (t FileType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// TypeFromMode classifies an entry from its os.FileMode.
func TypeFromMode(mode os.FileMode) FileType {
	switch {
	case mode&os.ModeSymlink != 0:
		return TypeSymlink
	case mode.IsDir():
		return TypeDirectory
	case mode.IsRegular():
		return TypeFile
	default:
		return TypeUnknown
	}
}

// PermissionBits keeps only the rwx bits of mode.
func PermissionBits(mode os.FileMode) os.FileMode {
	return mode & os.ModePerm
}
