package index

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/golang/snappy"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/transport"
)

// HunkIter yields a band's index hunks in numeric order, lazily reading
// and decompressing each one.
type HunkIter struct {
	transport transport.Transport
	listed    bool
	relpaths  []string
	pos       int
	after     apath.Apath
	haveAfter bool
}

// IterHunks returns an iterator over the hunks under the given index
// transport. A missing index directory yields no hunks.
func IterHunks(t transport.Transport) *HunkIter {
	return &HunkIter{transport: t}
}

// AdvanceToAfter positions the iterator so the first entry it yields has
// an apath strictly greater than the given one. Whole hunks whose final
// apath is not past it are skipped; the first overlapping hunk is
// filtered.
func (it *HunkIter) AdvanceToAfter(ap apath.Apath) *HunkIter {
	it.after = ap
	it.haveAfter = true
	return it
}

// list enumerates hunk files in sorted numeric order.
func (it *HunkIter) list() error {
	it.listed = true
	top, err := it.transport.ListDir("")
	if err != nil {
		if transport.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("list index: %w", err)
	}
	type hunk struct {
		n       int
		relpath string
	}
	var hunks []hunk
	for _, dir := range top.Dirs {
		if _, err := strconv.Atoi(dir); err != nil {
			continue
		}
		sub, err := it.transport.ListDir(dir)
		if err != nil {
			return fmt.Errorf("list index subdirectory %q: %w", dir, err)
		}
		for _, name := range sub.Files {
			n, err := strconv.Atoi(name)
			if err != nil {
				continue
			}
			hunks = append(hunks, hunk{n: n, relpath: dir + "/" + name})
		}
	}
	sort.Slice(hunks, func(i, j int) bool { return hunks[i].n < hunks[j].n })
	it.relpaths = make([]string, len(hunks))
	for i, h := range hunks {
		it.relpaths[i] = h.relpath
	}
	return nil
}

// Next returns the next hunk's entries, or nil when exhausted.
func (it *HunkIter) Next() ([]Entry, error) {
	if !it.listed {
		if err := it.list(); err != nil {
			return nil, err
		}
	}
	for it.pos < len(it.relpaths) {
		relpath := it.relpaths[it.pos]
		it.pos++
		compressed, err := it.transport.ReadFile(relpath)
		if err != nil {
			return nil, fmt.Errorf("read index hunk %q: %w", relpath, err)
		}
		data, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("decompress index hunk %q: %w", relpath, err)
		}
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("deserialize index hunk %q: %w", relpath, err)
		}
		if it.haveAfter {
			if len(entries) == 0 || apath.Compare(entries[len(entries)-1].Apath, it.after) <= 0 {
				continue
			}
			first := sort.Search(len(entries), func(i int) bool {
				return apath.Compare(entries[i].Apath, it.after) > 0
			})
			entries = entries[first:]
			it.haveAfter = false
		}
		return entries, nil
	}
	return nil, nil
}

// HunkSource yields successive hunks of entries; nil means exhausted.
// It is implemented by HunkIter and by the stitched iterator.
type HunkSource interface {
	NextHunk() ([]Entry, error)
}

// NextHunk lets a HunkIter serve as a HunkSource.
func (it *HunkIter) NextHunk() ([]Entry, error) {
	return it.Next()
}

// EntryIter flattens a hunk source into single entries, filtered to a
// subtree and an exclusion set.
type EntryIter struct {
	src     HunkSource
	buf     []Entry
	pos     int
	subtree apath.Apath
	excl    exclude.Exclude
}

// NewEntryIter returns an entry iterator over the source. Only entries
// equal to or strictly inside subtree are yielded; excluded apaths are
// dropped.
func NewEntryIter(src HunkSource, subtree apath.Apath, excl exclude.Exclude) *EntryIter {
	return &EntryIter{src: src, subtree: subtree, excl: excl}
}

// Next returns the next matching entry. The second result is false when
// the iterator is exhausted.
func (ei *EntryIter) Next() (Entry, bool, error) {
	for {
		if ei.pos < len(ei.buf) {
			e := ei.buf[ei.pos]
			ei.pos++
			if !e.Apath.InSubtree(ei.subtree) {
				continue
			}
			if ei.excl.Matches(e.Apath) {
				continue
			}
			return e, true, nil
		}
		hunk, err := ei.src.NextHunk()
		if err != nil {
			return Entry{}, false, err
		}
		if hunk == nil {
			return Entry{}, false, nil
		}
		ei.buf = hunk
		ei.pos = 0
	}
}
