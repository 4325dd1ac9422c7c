package conserve

import (
	"fmt"
	"time"

	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/blockdir"
	"github.com/fenilsonani/conserve/internal/core/monitor"
)

// DeleteOptions controls band deletion and garbage collection.
type DeleteOptions struct {
	// DryRun measures what would be deleted without removing anything.
	DryRun bool
	// BreakLock forcibly removes a GC lock left by a dead process.
	BreakLock bool
}

// DeleteStats summarizes a deletion or garbage collection run.
type DeleteStats struct {
	UnreferencedBlockCount int
	UnreferencedBlockBytes uint64
	DeletionErrors         int
	DeletedBlockCount      int
	DeletedBandCount       int
	Elapsed                time.Duration
}

// DeleteBands removes the target bands and any blocks no surviving band
// references. With no targets it is a pure garbage collection.
//
// The GC lock excludes concurrent backups; if the archive's band list
// changes while unreferenced blocks are being computed, the deletion
// aborts rather than risk deleting live data.
func (a *Archive) DeleteBands(targets []band.Id, opts *DeleteOptions, mon monitor.Monitor) (*DeleteStats, error) {
	start := time.Now()
	if opts == nil {
		opts = &DeleteOptions{}
	}
	if opts.BreakLock {
		if err := BreakGarbageCollectionLock(a); err != nil {
			return nil, err
		}
	}
	lock, err := NewGarbageCollectionLock(a)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	bandsBefore, err := a.ListBandIds()
	if err != nil {
		return nil, err
	}

	targetSet := make(map[string]struct{}, len(targets))
	for _, id := range targets {
		targetSet[id.String()] = struct{}{}
	}

	// An open newest band that is not itself being deleted may belong to
	// an in-progress backup still writing blocks.
	if len(bandsBefore) > 0 {
		last := bandsBefore[len(bandsBefore)-1]
		if _, isTarget := targetSet[last.String()]; !isTarget {
			closed, err := a.BandIsClosed(last)
			if err != nil {
				return nil, err
			}
			if !closed {
				return nil, &DeleteWithIncompleteBackupError{Id: last}
			}
		}
	}

	var survivors []band.Id
	for _, id := range bandsBefore {
		if _, isTarget := targetSet[id.String()]; !isTarget {
			survivors = append(survivors, id)
		}
	}
	referenced, err := a.ReferencedBlocks(survivors, mon)
	if err != nil {
		return nil, err
	}
	present, err := a.blockDir.Blocks(mon)
	if err != nil {
		return nil, err
	}
	var unreferenced []blockdir.BlockHash
	for _, hash := range present {
		if _, ok := referenced[hash]; !ok {
			unreferenced = append(unreferenced, hash)
		}
	}

	stats := &DeleteStats{UnreferencedBlockCount: len(unreferenced)}
	for _, hash := range unreferenced {
		size, err := a.blockDir.CompressedSize(hash)
		if err != nil {
			mon.Error(err)
			continue
		}
		stats.UnreferencedBlockBytes += uint64(size)
	}

	// If another process changed the band list since the snapshot, the
	// unreferenced set can no longer be trusted.
	bandsNow, err := a.ListBandIds()
	if err != nil {
		return nil, err
	}
	if !sameBandList(bandsBefore, bandsNow) {
		return nil, ErrDeleteWithConcurrentActivity
	}

	if opts.DryRun {
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	task := mon.StartTask("Delete bands")
	task.SetTotal(len(targets))
	for _, id := range targets {
		if err := a.transport.RemoveDirAll(id.String()); err != nil {
			mon.Error(fmt.Errorf("delete band %s: %w", id, err))
			stats.DeletionErrors++
		} else {
			stats.DeletedBandCount++
		}
		task.Increment(1)
	}
	task.Done()

	task = mon.StartTask("Delete blocks")
	task.SetTotal(len(unreferenced))
	for _, hash := range unreferenced {
		if err := a.blockDir.DeleteBlock(hash); err != nil {
			mon.Error(fmt.Errorf("delete block %s: %w", hash, err))
			stats.DeletionErrors++
		} else {
			stats.DeletedBlockCount++
		}
		task.Increment(1)
	}
	task.Done()

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func sameBandList(a, b []band.Id) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !band.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
