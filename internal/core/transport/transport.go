package transport

import (
	"errors"
	"io/fs"
)

// TmpPrefix is the reserved name prefix for temporary files used during
// atomic publication. Listings never return names with this prefix.
const TmpPrefix = "tmp-"

// Kind of a directory entry.
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindDir
)

// Metadata describes a single file or directory.
type Metadata struct {
	Kind Kind
	Len  int64
}

// ListDir is the result of listing one directory, without recursion.
type ListDir struct {
	Files []string
	Dirs  []string
}

// Transport abstracts file IO against an archive root.
//
// All paths are relative to the transport's root and use "/" separators.
// Files in archives have bounded size and fit in memory, so reads and
// writes are whole-file. Implementations must be safe for use from
// multiple goroutines.
type Transport interface {
	// ListDir reads one directory, non-recursively. Entries are returned
	// in arbitrary order; "." and ".." and temporary files are excluded.
	ListDir(relpath string) (ListDir, error)

	// ReadFile returns the complete contents of a file.
	ReadFile(relpath string) ([]byte, error)

	// WriteFile writes a complete file atomically: the content is written
	// to a temporary name with TmpPrefix and then renamed into place,
	// replacing any existing file.
	WriteFile(relpath string, data []byte) error

	// WriteNewFile atomically creates a file that must not already exist.
	// If it does, the returned error satisfies IsExist.
	WriteNewFile(relpath string, data []byte) error

	// CreateDir creates a directory. It is not an error if the directory
	// already exists. Missing parents are not created.
	CreateDir(relpath string) error

	// Metadata returns the kind and length of an entry.
	Metadata(relpath string) (Metadata, error)

	RemoveFile(relpath string) error
	RemoveDir(relpath string) error
	RemoveDirAll(relpath string) error

	// Sub returns a transport rooted at a subpath of this one.
	Sub(relpath string) Transport

	// String describes the root location, for error messages.
	String() string
}

// IsNotFound reports whether err means the path does not exist, as
// distinct from other IO failures. This distinction drives presence
// probes such as BlockDir.Contains.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsExist reports whether err means the path already exists.
func IsExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}
