package conserve

import (
	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/monitor"
)

// If a backup was interrupted we may have index hunks but not a complete
// tree. The best tree to read at that point is the new hunks for as much
// of the tree as they cover, then the next older index from that apath
// onward, applied recursively until a closed band or the start of the
// archive. Apaths already covered take precedence over older data, so
// the stitched stream stays strictly increasing.

type stitchState int

const (
	// stitchBeforeBand: the band to read is known but not yet opened.
	stitchBeforeBand stitchState = iota
	// stitchInBand: hunks from the current band are being returned.
	stitchInBand
	// stitchAfterBand: the current band is exhausted.
	stitchAfterBand
	// stitchDone: a closed band finished, or no older bands remain.
	stitchDone
)

// StitchedHunks reconstructs the most complete available index for a
// possibly-incomplete band by stitching in its predecessors. It yields
// hunks whose entries are strictly increasing across the whole stream.
type StitchedHunks struct {
	archive   *Archive
	mon       monitor.Monitor
	state     stitchState
	bandId    band.Id
	hunks     *index.HunkIter
	lastApath apath.Apath
	haveLast  bool
}

// StitchedIndexHunks starts a stitched read at the given band. If the
// band is complete this is simply the band's own index.
func (a *Archive) StitchedIndexHunks(bandId band.Id, mon monitor.Monitor) *StitchedHunks {
	return &StitchedHunks{
		archive: a,
		mon:     mon,
		state:   stitchBeforeBand,
		bandId:  bandId,
	}
}

// NextHunk returns the next hunk of the stitched stream, or nil at the
// end. Bands that fail to open are reported and skipped.
func (s *StitchedHunks) NextHunk() ([]index.Entry, error) {
	for {
		switch s.state {
		case stitchDone:
			return nil, nil

		case stitchInBand:
			hunk, err := s.hunks.Next()
			if err != nil {
				s.mon.Error(err)
				s.state = stitchAfterBand
				continue
			}
			if hunk == nil {
				s.state = stitchAfterBand
				continue
			}
			if len(hunk) > 0 {
				s.lastApath = hunk[len(hunk)-1].Apath
				s.haveLast = true
			}
			return hunk, nil

		case stitchBeforeBand:
			b, err := band.Open(s.archive.transport, s.bandId)
			if err != nil {
				// A deleted band or missing head: skip to older data.
				s.mon.Error(err)
				s.state = stitchAfterBand
				continue
			}
			it := b.IterHunks()
			if s.haveLast {
				it.AdvanceToAfter(s.lastApath)
			}
			s.hunks = it
			s.state = stitchInBand

		case stitchAfterBand:
			closed, err := s.archive.BandIsClosed(s.bandId)
			if err != nil {
				closed = false
			}
			if closed {
				// A closed band's tail is authoritative.
				s.state = stitchDone
				continue
			}
			prev, ok := s.previousExistingBand(s.bandId)
			if !ok {
				s.state = stitchDone
				continue
			}
			s.bandId = prev
			s.state = stitchBeforeBand
		}
	}
}

// previousExistingBand walks backwards to the greatest existing band id
// below the given one, skipping deleted bands.
func (s *StitchedHunks) previousExistingBand(id band.Id) (band.Id, bool) {
	for {
		prev, ok := id.Previous()
		if !ok {
			return nil, false
		}
		exists, err := s.archive.BandExists(prev)
		if err == nil && exists {
			return prev, true
		}
		id = prev
	}
}

// Entries flattens the stitched hunks into single entries filtered by
// subtree and exclusions.
func (s *StitchedHunks) Entries(subtree apath.Apath, excl exclude.Exclude) *index.EntryIter {
	return index.NewEntryIter(s, subtree, excl)
}
