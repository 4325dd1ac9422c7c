package index

import (
	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/blockdir"
)

// Kind of tree entry stored in the archive.
type Kind string

const (
	KindFile    Kind = "File"
	KindDir     Kind = "Dir"
	KindSymlink Kind = "Symlink"
	// KindUnknown is observed in local trees but never stored.
	KindUnknown Kind = "Unknown"
)

// Entry describes one file, directory or symlink in a stored tree.
//
// For a file, Addrs lists the block ranges that concatenate to the file
// content, and ContentHash is the BLAKE2b of the whole uncompressed
// content. Dirs and symlinks have no addresses.
type Entry struct {
	Apath       apath.Apath        `json:"apath"`
	Kind        Kind               `json:"kind"`
	Mtime       int64              `json:"mtime"`
	MtimeNanos  uint32             `json:"mtime_nanos,omitempty"`
	UnixMode    *uint32            `json:"unix_mode,omitempty"`
	Addrs       []blockdir.Address `json:"addrs,omitempty"`
	Target      string             `json:"target,omitempty"`
	ContentHash string             `json:"blake2b,omitempty"`
}

// Size returns the file size implied by the address list.
func (e *Entry) Size() uint64 {
	var total uint64
	for _, a := range e.Addrs {
		total += a.Len
	}
	return total
}
