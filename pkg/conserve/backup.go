package conserve

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/blockdir"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/internal/core/source"
)

// BackupOptions controls one backup run.
type BackupOptions struct {
	Exclude exclude.Exclude
	// NoIndex disables the unchanged-file shortcut against the previous
	// band's index, forcing every file's bytes to be re-read.
	NoIndex bool
}

// BackupStats summarizes one backup run.
type BackupStats struct {
	blockdir.StoreStats

	BandId         band.Id
	Files          int
	Dirs           int
	Symlinks       int
	UnchangedFiles int
	ModifiedFiles  int
	NewFiles       int
	EntriesWritten int
	SkippedErrors  int
	IndexHunks     int
	Elapsed        time.Duration
}

// Backup copies a local tree into the archive as a new band.
//
// Source files that cannot be read are reported to the monitor and
// skipped; the backup continues. Archive IO failures abort, leaving an
// incomplete band whose hunks remain usable through stitched reads.
func Backup(a *Archive, sourcePath string, opts *BackupOptions, mon monitor.Monitor) (*BackupStats, error) {
	start := time.Now()
	if opts == nil {
		opts = &BackupOptions{}
	}
	locked, err := a.IsGCLocked()
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrGarbageCollectionLockHeld
	}

	tree, err := source.Open(sourcePath, opts.Exclude)
	if err != nil {
		return nil, err
	}

	lastId, haveLast, err := a.LastBandId()
	if err != nil {
		return nil, err
	}
	bandId := band.ZeroId()
	if haveLast {
		bandId = lastId.Next()
	}

	var basis *basisCursor
	if haveLast && !opts.NoIndex {
		basis = &basisCursor{
			it: a.StitchedIndexHunks(lastId, mon).Entries(apath.Root, exclude.Nothing()),
		}
	}

	newBand, err := band.Create(a.transport, bandId)
	if err != nil {
		return nil, err
	}
	builder := newBand.IndexBuilder()
	stats := &BackupStats{BandId: bandId}
	buf := make([]byte, blockdir.MaxBlockSize)

	it := tree.Iter()
	for {
		src, more, err := it.Next()
		if err != nil {
			mon.Error(err)
			stats.SkippedErrors++
			continue
		}
		if !more {
			break
		}
		entry := src.Proto
		switch entry.Kind {
		case index.KindDir:
			stats.Dirs++
			mon.Count(monitor.Dirs, 1)
		case index.KindSymlink:
			stats.Symlinks++
			mon.Count(monitor.Symlinks, 1)
		case index.KindFile:
			stats.Files++
			mon.Count(monitor.Files, 1)
			basisEntry, haveBasis := basis.advanceTo(entry.Apath)
			if haveBasis && unchangedFile(&src, basisEntry) {
				entry.Addrs = basisEntry.Addrs
				entry.ContentHash = basisEntry.ContentHash
				stats.UnchangedFiles++
				mon.Count(monitor.UnchangedFiles, 1)
				break
			}
			if haveBasis {
				stats.ModifiedFiles++
				mon.Count(monitor.ModifiedFiles, 1)
			} else {
				stats.NewFiles++
				mon.Count(monitor.NewFiles, 1)
			}
			stored, err := storeFileContent(a, src.Path, buf, &entry, &stats.StoreStats, mon)
			if err != nil {
				return nil, err
			}
			if !stored {
				stats.SkippedErrors++
				continue
			}
		}
		builder.PushEntry(entry)
		stats.EntriesWritten++
		mon.Count(monitor.EntriesWritten, 1)
		if builder.BufferedEntries() >= index.MaxEntriesPerHunk {
			if err := builder.FinishHunk(mon); err != nil {
				return nil, err
			}
		}
	}

	hunkCount, err := builder.Finish(mon)
	if err != nil {
		return nil, err
	}
	if err := newBand.Close(hunkCount); err != nil {
		return nil, err
	}
	stats.IndexHunks = hunkCount
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// storeFileContent chunks a file into blocks and fills in the entry's
// addresses and content hash. Returns false, nil if the file could not
// be read; that is reported and the entry is skipped.
func storeFileContent(a *Archive, path string, buf []byte, entry *index.Entry, stats *blockdir.StoreStats, mon monitor.Monitor) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		mon.Error(fmt.Errorf("read source file %q: %w", path, err))
		return false, nil
	}
	defer f.Close()

	hasher, err := blake2b.New512(nil)
	if err != nil {
		return false, err
	}
	for {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			chunk := buf[:n]
			hasher.Write(chunk)
			hash, err := a.blockDir.StoreOrDeduplicate(chunk, stats, mon)
			if err != nil {
				return false, err
			}
			entry.Addrs = append(entry.Addrs, blockdir.Address{Hash: hash, Len: uint64(n)})
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			mon.Error(fmt.Errorf("read source file %q: %w", path, readErr))
			entry.Addrs = nil
			return false, nil
		}
	}
	entry.ContentHash = hex.EncodeToString(hasher.Sum(nil))
	return true, nil
}

// unchangedFile reports whether metadata supports assuming a source
// file's content matches a basis index entry: same kind, mtime and size.
func unchangedFile(src *source.Entry, basis *index.Entry) bool {
	return basis.Kind == index.KindFile &&
		basis.Mtime == src.Proto.Mtime &&
		basis.MtimeNanos == src.Proto.MtimeNanos &&
		basis.Size() == uint64(src.Size)
}

// basisCursor advances through the previous index in lock-step with the
// source walk; both are in apath order.
type basisCursor struct {
	it   *index.EntryIter
	cur  index.Entry
	have bool
	done bool
}

// advanceTo returns the basis entry with exactly the given apath, if one
// exists. Entries before it are discarded.
func (c *basisCursor) advanceTo(ap apath.Apath) (*index.Entry, bool) {
	if c == nil || c.done {
		return nil, false
	}
	for {
		if c.have {
			switch cmp := apath.Compare(c.cur.Apath, ap); {
			case cmp == 0:
				return &c.cur, true
			case cmp > 0:
				return nil, false
			}
		}
		e, ok, err := c.it.Next()
		if err != nil || !ok {
			c.done = true
			return nil, false
		}
		c.cur = e
		c.have = true
	}
}
