package conserve

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/blockdir"
	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/internal/core/transport"
)

const (
	// HeaderName is the archive marker file.
	HeaderName = "CONSERVE"
	// BlockDirName holds the content-addressed blocks.
	BlockDirName = "d"
	// GCLockName is present while garbage collection is running.
	GCLockName = "GC_LOCK"

	// ArchiveVersion is written into new archive headers.
	ArchiveVersion = "0.6"
)

var supportedArchiveVersions = []string{"0.5", "0.6"}

type archiveHeader struct {
	ConserveArchiveVersion string `json:"conserve_archive_version"`
}

// Archive is the top-level container: a header, a blockdir, and any
// number of bands. Sub-objects hold the archive handle; bands are owned
// by id, never by back pointer.
type Archive struct {
	transport transport.Transport
	blockDir  *blockdir.BlockDir
}

// CreateArchive initializes a new archive. The target directory may be
// missing or empty; anything else fails.
func CreateArchive(t transport.Transport) (*Archive, error) {
	if err := t.CreateDir(""); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	ls, err := t.ListDir("")
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	if len(ls.Files) > 0 || len(ls.Dirs) > 0 {
		return nil, ErrNewArchiveDirectoryNotEmpty
	}
	header, err := json.Marshal(archiveHeader{ConserveArchiveVersion: ArchiveVersion})
	if err != nil {
		return nil, fmt.Errorf("serialize archive header: %w", err)
	}
	if err := t.WriteFile(HeaderName, header); err != nil {
		return nil, fmt.Errorf("write archive header: %w", err)
	}
	bd, err := blockdir.Create(t.Sub(BlockDirName))
	if err != nil {
		return nil, err
	}
	return &Archive{transport: t, blockDir: bd}, nil
}

// OpenArchive opens an existing archive, validating its header.
func OpenArchive(t transport.Transport) (*Archive, error) {
	data, err := t.ReadFile(HeaderName)
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotAnArchive, t)
		}
		return nil, fmt.Errorf("read archive header: %w", err)
	}
	var header archiveHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: malformed header", ErrNotAnArchive)
	}
	supported := false
	for _, v := range supportedArchiveVersions {
		if header.ConserveArchiveVersion == v {
			supported = true
			break
		}
	}
	if !supported {
		return nil, &UnsupportedArchiveVersionError{Version: header.ConserveArchiveVersion}
	}
	return &Archive{transport: t, blockDir: blockdir.Open(t.Sub(BlockDirName))}, nil
}

// CreateArchivePath initializes an archive on the local filesystem.
func CreateArchivePath(path string) (*Archive, error) {
	return CreateArchive(transport.NewLocal(path))
}

// OpenArchivePath opens a local archive.
func OpenArchivePath(path string) (*Archive, error) {
	return OpenArchive(transport.NewLocal(path))
}

// Transport returns the archive's root transport.
func (a *Archive) Transport() transport.Transport {
	return a.transport
}

// BlockDir returns the archive's block store.
func (a *Archive) BlockDir() *blockdir.BlockDir {
	return a.blockDir
}

// ListBandIds returns the ids of all band directories, sorted.
func (a *Archive) ListBandIds() ([]band.Id, error) {
	ls, err := a.transport.ListDir("")
	if err != nil {
		return nil, fmt.Errorf("list bands: %w", err)
	}
	var ids []band.Id
	for _, name := range ls.Dirs {
		if !strings.HasPrefix(name, "b") {
			continue
		}
		id, err := band.ParseId(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return band.Compare(ids[i], ids[j]) < 0 })
	for i := 1; i < len(ids); i++ {
		if band.Equal(ids[i-1], ids[i]) {
			return nil, &DuplicateBandDirectoryError{Id: ids[i]}
		}
	}
	return ids, nil
}

// LastBandId returns the highest band id, if any band exists.
func (a *Archive) LastBandId() (band.Id, bool, error) {
	ids, err := a.ListBandIds()
	if err != nil || len(ids) == 0 {
		return nil, false, err
	}
	return ids[len(ids)-1], true, nil
}

// LastCompleteBand returns the highest closed band, scanning backwards.
func (a *Archive) LastCompleteBand() (*band.Band, bool, error) {
	ids, err := a.ListBandIds()
	if err != nil {
		return nil, false, err
	}
	for i := len(ids) - 1; i >= 0; i-- {
		b, err := band.Open(a.transport, ids[i])
		if err != nil {
			continue
		}
		closed, err := b.IsClosed()
		if err != nil {
			return nil, false, err
		}
		if closed {
			return b, true, nil
		}
	}
	return nil, false, nil
}

// BandExists reports whether a band directory is present.
func (a *Archive) BandExists(id band.Id) (bool, error) {
	md, err := a.transport.Metadata(id.String())
	switch {
	case transport.IsNotFound(err):
		return false, nil
	case err != nil:
		return false, err
	default:
		return md.Kind == transport.KindDir, nil
	}
}

// BandIsClosed reports whether a band has its tail written.
func (a *Archive) BandIsClosed(id band.Id) (bool, error) {
	_, err := a.transport.Metadata(id.String() + "/" + band.TailName)
	switch {
	case err == nil:
		return true, nil
	case transport.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// ReferencedBlocks returns every block hash referenced by the given
// bands' indexes.
func (a *Archive) ReferencedBlocks(ids []band.Id, mon monitor.Monitor) (map[blockdir.BlockHash]struct{}, error) {
	referenced := make(map[blockdir.BlockHash]struct{})
	for _, id := range ids {
		b, err := band.Open(a.transport, id)
		if err != nil {
			return nil, err
		}
		it := b.IterHunks()
		for {
			hunk, err := it.Next()
			if err != nil {
				return nil, err
			}
			if hunk == nil {
				break
			}
			for _, e := range hunk {
				for _, addr := range e.Addrs {
					referenced[addr.Hash] = struct{}{}
				}
			}
		}
	}
	return referenced, nil
}

// UnreferencedBlocks returns the hashes of blocks present in the
// blockdir but referenced by no band, sorted.
func (a *Archive) UnreferencedBlocks(mon monitor.Monitor) ([]blockdir.BlockHash, error) {
	ids, err := a.ListBandIds()
	if err != nil {
		return nil, err
	}
	referenced, err := a.ReferencedBlocks(ids, mon)
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
	sort.Slice(unreferenced, func(i, j int) bool {
		return unreferenced[i].String() < unreferenced[j].String()
	})
	return unreferenced, nil
}

// IsGCLocked reports whether a garbage collection lock is present.
func (a *Archive) IsGCLocked() (bool, error) {
	_, err := a.transport.Metadata(GCLockName)
	switch {
	case err == nil:
		return true, nil
	case transport.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
