package conserve

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/blockdir"
	"github.com/fenilsonani/conserve/internal/core/monitor"
)

// ValidateOptions controls how deep validation goes.
type ValidateOptions struct {
	// SkipBlockHashes checks block presence only, without decompressing
	// and re-hashing every block.
	SkipBlockHashes bool
}

// ValidateStats summarizes a validation run. Problems found do not
// abort; ErrorCount tells the caller whether the archive is clean.
type ValidateStats struct {
	BandCount  int
	HunkCount  int
	EntryCount int
	BlockCount int
	ErrorCount int
	Elapsed    time.Duration
}

// errorCountingMonitor forwards to an inner monitor while counting how
// many problems were reported.
type errorCountingMonitor struct {
	monitor.Monitor
	errors atomic.Int64
}

func (m *errorCountingMonitor) Error(err error) {
	m.errors.Add(1)
	m.Monitor.Error(err)
}

// Validate checks the whole archive: every band's index is ordered and
// readable and every referenced block exists. Unless block hashes are
// skipped, it also checks that every block's content matches its hash and
// that each referenced block is long enough for its references.
func Validate(a *Archive, opts *ValidateOptions, mon monitor.Monitor) (*ValidateStats, error) {
	start := time.Now()
	if opts == nil {
		opts = &ValidateOptions{}
	}
	counting := &errorCountingMonitor{Monitor: mon}
	stats := &ValidateStats{}

	ids, err := a.ListBandIds()
	if err != nil {
		return nil, err
	}
	stats.BandCount = len(ids)

	// The longest extent referenced in any block, to compare against
	// actual block sizes.
	referenced := make(map[blockdir.BlockHash]uint64)
	for _, id := range ids {
		validateBandIndex(a, id, counting, stats, referenced)
	}

	if opts.SkipBlockHashes {
		present, err := a.blockDir.Blocks(counting)
		if err != nil {
			return nil, err
		}
		stats.BlockCount = len(present)
		presentSet := make(map[blockdir.BlockHash]struct{}, len(present))
		for _, hash := range present {
			presentSet[hash] = struct{}{}
		}
		for hash := range referenced {
			if _, ok := presentSet[hash]; !ok {
				counting.Error(&blockdir.BlockMissingError{Hash: hash})
			}
		}
	} else {
		lens, err := a.blockDir.Validate(counting)
		if err != nil {
			return nil, err
		}
		stats.BlockCount = len(lens)
		for hash, extent := range referenced {
			actual, ok := lens[hash]
			if !ok {
				counting.Error(&blockdir.BlockMissingError{Hash: hash})
				continue
			}
			if extent > uint64(actual) {
				counting.Error(&blockdir.ShortBlockError{
					Hash:          hash,
					ActualLen:     actual,
					ReferencedLen: extent,
				})
			}
		}
	}

	stats.ErrorCount = int(counting.errors.Load())
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// validateBandIndex walks one band's hunks checking apath monotonicity
// and collecting referenced block extents.
func validateBandIndex(a *Archive, id band.Id, mon monitor.Monitor, stats *ValidateStats, referenced map[blockdir.BlockHash]uint64) {
	b, err := band.Open(a.transport, id)
	if err != nil {
		mon.Error(err)
		return
	}
	it := b.IterHunks()
	var last apath.Apath
	haveLast := false
	for {
		hunk, err := it.Next()
		if err != nil {
			mon.Error(err)
			return
		}
		if hunk == nil {
			return
		}
		stats.HunkCount++
		for _, e := range hunk {
			stats.EntryCount++
			if haveLast && apath.Compare(e.Apath, last) <= 0 {
				mon.Error(fmt.Errorf("band %s index out of order: %q after %q", id, e.Apath, last))
			}
			last = e.Apath
			haveLast = true
			for _, addr := range e.Addrs {
				if end := addr.Start + addr.Len; end > referenced[addr.Hash] {
					referenced[addr.Hash] = end
				}
			}
		}
	}
}
