package conserve

import (
	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/monitor"
)

// BandSelection picks which version of the tree to read.
type BandSelection struct {
	kind selectionKind
	id   band.Id
}

type selectionKind int

const (
	selectLatest selectionKind = iota
	selectLatestClosed
	selectSpecified
)

// SelectLatest reads the newest band, even if incomplete; missing
// apaths are stitched in from older bands.
func SelectLatest() BandSelection {
	return BandSelection{kind: selectLatest}
}

// SelectLatestClosed reads the newest complete band.
func SelectLatestClosed() BandSelection {
	return BandSelection{kind: selectLatestClosed}
}

// SelectBand reads one specific band.
func SelectBand(id band.Id) BandSelection {
	return BandSelection{kind: selectSpecified, id: id}
}

// StoredTree reads one version of the tree stored in the archive,
// hiding that its data may span multiple bands and blocks.
type StoredTree struct {
	archive *Archive
	band    *band.Band
}

// OpenStoredTree resolves a band selection to a readable tree.
func (a *Archive) OpenStoredTree(sel BandSelection) (*StoredTree, error) {
	var b *band.Band
	switch sel.kind {
	case selectSpecified:
		opened, err := band.Open(a.transport, sel.id)
		if err != nil {
			return nil, err
		}
		b = opened
	case selectLatestClosed:
		last, ok, err := a.LastCompleteBand()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrArchiveEmpty
		}
		b = last
	default:
		id, ok, err := a.LastBandId()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrArchiveEmpty
		}
		opened, err := band.Open(a.transport, id)
		if err != nil {
			return nil, err
		}
		b = opened
	}
	return &StoredTree{archive: a, band: b}, nil
}

// Band returns the tree's starting band.
func (st *StoredTree) Band() *band.Band {
	return st.band
}

// Iter returns the tree's entries in apath order, stitched across older
// bands where this band is incomplete.
func (st *StoredTree) Iter(subtree apath.Apath, excl exclude.Exclude, mon monitor.Monitor) *index.EntryIter {
	return st.archive.StitchedIndexHunks(st.band.Id(), mon).Entries(subtree, excl)
}
