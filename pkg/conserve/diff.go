package conserve

import (
	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/internal/core/source"
)

// DiffKind classifies one difference between a stored and a local tree.
type DiffKind int

const (
	DiffAdded DiffKind = iota
	DiffDeleted
	DiffChanged
)

func (k DiffKind) String() string {
	switch k {
	case DiffAdded:
		return "added"
	case DiffDeleted:
		return "deleted"
	case DiffChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// DiffEntry is one reported difference.
type DiffEntry struct {
	Apath apath.Apath
	Kind  DiffKind
}

// Diff walks a stored tree and a local tree in lock-step by apath and
// reports entries present only on one side or with differing metadata.
// Content is compared by kind, size and mtime, not bytes.
func Diff(st *StoredTree, tree *source.Tree, excl exclude.Exclude, mon monitor.Monitor) ([]DiffEntry, error) {
	var out []DiffEntry

	stored := st.Iter(apath.Root, excl, mon)
	local := tree.Iter()

	var storedCur index.Entry
	var localCur source.Entry
	haveStored, haveLocal := false, false

	nextStored := func() error {
		e, ok, err := stored.Next()
		if err != nil {
			return err
		}
		storedCur, haveStored = e, ok
		return nil
	}
	nextLocal := func() error {
		for {
			e, more, err := local.Next()
			if err != nil {
				mon.Error(err)
				continue
			}
			localCur, haveLocal = e, more
			return nil
		}
	}
	if err := nextStored(); err != nil {
		return nil, err
	}
	if err := nextLocal(); err != nil {
		return nil, err
	}

	for haveStored || haveLocal {
		switch {
		case !haveLocal:
			out = append(out, DiffEntry{Apath: storedCur.Apath, Kind: DiffDeleted})
			if err := nextStored(); err != nil {
				return nil, err
			}
		case !haveStored:
			out = append(out, DiffEntry{Apath: localCur.Proto.Apath, Kind: DiffAdded})
			if err := nextLocal(); err != nil {
				return nil, err
			}
		default:
			switch cmp := apath.Compare(storedCur.Apath, localCur.Proto.Apath); {
			case cmp < 0:
				out = append(out, DiffEntry{Apath: storedCur.Apath, Kind: DiffDeleted})
				if err := nextStored(); err != nil {
					return nil, err
				}
			case cmp > 0:
				out = append(out, DiffEntry{Apath: localCur.Proto.Apath, Kind: DiffAdded})
				if err := nextLocal(); err != nil {
					return nil, err
				}
			default:
				if entryDiffers(&storedCur, &localCur) {
					out = append(out, DiffEntry{Apath: storedCur.Apath, Kind: DiffChanged})
				}
				if err := nextStored(); err != nil {
					return nil, err
				}
				if err := nextLocal(); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func entryDiffers(stored *index.Entry, local *source.Entry) bool {
	if stored.Kind != local.Proto.Kind {
		return true
	}
	if stored.Kind == index.KindFile {
		return stored.Mtime != local.Proto.Mtime ||
			stored.MtimeNanos != local.Proto.MtimeNanos ||
			stored.Size() != uint64(local.Size)
	}
	if stored.Kind == index.KindSymlink {
		return stored.Target != local.Proto.Target
	}
	return false
}
