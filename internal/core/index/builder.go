package index

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/internal/core/transport"
)

// MaxEntriesPerHunk is how many entries are buffered before a hunk is
// flushed.
const MaxEntriesPerHunk = 1000

// hunksPerSubdir bounds per-directory fanout with a two-level numbering.
const hunksPerSubdir = 10000

// hunkSubdir returns the subdirectory name for hunk n.
func hunkSubdir(n int) string {
	return fmt.Sprintf("%04d", n/hunksPerSubdir)
}

// hunkRelpath returns the index-relative path of hunk n.
func hunkRelpath(n int) string {
	return fmt.Sprintf("%s/%09d", hunkSubdir(n), n)
}

// Builder accumulates index entries in apath order and writes them out
// as numbered, compressed hunks.
type Builder struct {
	transport   transport.Transport
	entries     []Entry
	hunkCount   int
	lastApath   apath.Apath
	haveLast    bool
	createdDirs map[string]struct{}
}

// NewBuilder returns a builder writing hunks under the given transport,
// which should be rooted at the band's index directory.
func NewBuilder(t transport.Transport) *Builder {
	return &Builder{
		transport:   t,
		createdDirs: make(map[string]struct{}),
	}
}

// PushEntry adds one entry. Entries must arrive in strictly increasing
// apath order; a violation is a bug in the caller, not a recoverable
// condition, so it panics.
func (b *Builder) PushEntry(e Entry) {
	if b.haveLast && apath.Compare(e.Apath, b.lastApath) <= 0 {
		panic(fmt.Sprintf("index entry %q pushed out of order after %q", e.Apath, b.lastApath))
	}
	b.lastApath = e.Apath
	b.haveLast = true
	b.entries = append(b.entries, e)
}

// BufferedEntries returns how many entries await the next hunk.
func (b *Builder) BufferedEntries() int {
	return len(b.entries)
}

// FinishHunk serializes, compresses and atomically publishes the
// buffered entries as the next-numbered hunk. With nothing buffered it
// does nothing.
func (b *Builder) FinishHunk(mon monitor.Monitor) error {
	if len(b.entries) == 0 {
		return nil
	}
	data, err := json.Marshal(b.entries)
	if err != nil {
		return fmt.Errorf("serialize index hunk: %w", err)
	}
	compressed := snappy.Encode(nil, data)
	subdir := hunkSubdir(b.hunkCount)
	if _, ok := b.createdDirs[subdir]; !ok {
		if err := b.transport.CreateDir(subdir); err != nil {
			return fmt.Errorf("create index subdirectory: %w", err)
		}
		b.createdDirs[subdir] = struct{}{}
	}
	relpath := hunkRelpath(b.hunkCount)
	if err := b.transport.WriteFile(relpath, compressed); err != nil {
		return fmt.Errorf("write index hunk %q: %w", relpath, err)
	}
	mon.Count(monitor.IndexWrites, 1)
	mon.Count(monitor.IndexWriteUncompressedBytes, len(data))
	mon.Count(monitor.IndexWriteCompressedBytes, len(compressed))
	b.entries = b.entries[:0]
	b.hunkCount++
	return nil
}

// Finish flushes any buffered entries and returns the total hunk count.
func (b *Builder) Finish(mon monitor.Monitor) (int, error) {
	if err := b.FinishHunk(mon); err != nil {
		return b.hunkCount, err
	}
	return b.hunkCount, nil
}
