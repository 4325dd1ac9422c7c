package conserve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/monitor"
)

// Builds a history whose bands break across hunks in specific ways:
//
//   - b0 is incomplete and contains symlinks /0, /1, /2 with target b0.
//   - b1 is complete and contains /0, /1, /2, /3 with target b1.
//   - b2 is incomplete and contains /0, /2 with target b2: /1 was
//     deleted, and /3 is unknown so is carried over.
//   - b3 is deleted from disk.
//   - b4 exists but has no hunks.
//   - b5 is incomplete and contains /0, /00 with target b5.
func TestStitchAcrossIncompleteBands(t *testing.T) {
	a, dir := scratchArchive(t)
	mon := monitor.NewCollect()

	// b0: two hunks, left open.
	b0, err := band.Create(a.Transport(), band.ZeroId())
	require.NoError(t, err)
	ib := b0.IndexBuilder()
	ib.PushEntry(symlinkEntry("/0", "b0"))
	ib.PushEntry(symlinkEntry("/1", "b0"))
	require.NoError(t, ib.FinishHunk(mon))
	ib.PushEntry(symlinkEntry("/2", "b0"))
	hunks, err := ib.Finish(mon)
	require.NoError(t, err)
	assert.Equal(t, 2, hunks)
	assert.Equal(t, int64(2), mon.GetCounter(monitor.IndexWrites))

	// b1: closed.
	b1, err := band.Create(a.Transport(), band.Id{1})
	require.NoError(t, err)
	assert.Equal(t, "b0001", b1.Id().String())
	ib = b1.IndexBuilder()
	ib.PushEntry(symlinkEntry("/0", "b1"))
	ib.PushEntry(symlinkEntry("/1", "b1"))
	require.NoError(t, ib.FinishHunk(mon))
	ib.PushEntry(symlinkEntry("/2", "b1"))
	ib.PushEntry(symlinkEntry("/3", "b1"))
	hunks, err = ib.Finish(mon)
	require.NoError(t, err)
	assert.Equal(t, 2, hunks)
	require.NoError(t, b1.Close(2))

	// b2: incomplete.
	b2, err := band.Create(a.Transport(), band.Id{2})
	require.NoError(t, err)
	ib = b2.IndexBuilder()
	ib.PushEntry(symlinkEntry("/0", "b2"))
	require.NoError(t, ib.FinishHunk(mon))
	ib.PushEntry(symlinkEntry("/2", "b2"))
	_, err = ib.Finish(mon)
	require.NoError(t, err)

	// b3: will be deleted below.
	_, err = band.Create(a.Transport(), band.Id{3})
	require.NoError(t, err)

	// b4: no hunks at all.
	_, err = band.Create(a.Transport(), band.Id{4})
	require.NoError(t, err)

	// b5: incomplete.
	b5, err := band.Create(a.Transport(), band.Id{5})
	require.NoError(t, err)
	ib = b5.IndexBuilder()
	ib.PushEntry(symlinkEntry("/0", "b5"))
	ib.PushEntry(symlinkEntry("/00", "b5"))
	hunks, err = ib.Finish(mon)
	require.NoError(t, err)
	assert.Equal(t, 1, hunks)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "b0003")))

	archive, err := OpenArchivePath(dir)
	require.NoError(t, err)

	assert.Equal(t, "/0:b0 /1:b0 /2:b0", simpleLs(t, archive, band.ZeroId()))
	assert.Equal(t, "/0:b1 /1:b1 /2:b1 /3:b1", simpleLs(t, archive, band.Id{1}))
	assert.Equal(t, "/0:b2 /2:b2 /3:b1", simpleLs(t, archive, band.Id{2}))
	// Starting at the empty band, and across the deleted b3.
	assert.Equal(t, "/0:b2 /2:b2 /3:b1", simpleLs(t, archive, band.Id{4}))
	assert.Equal(t, "/0:b5 /00:b5 /2:b2 /3:b1", simpleLs(t, archive, band.Id{5}))
}

// A band with hunks whose head is then removed must terminate rather
// than loop forever.
func TestStitchTerminatesWithoutBandHead(t *testing.T) {
	a, dir := scratchArchive(t)
	tf := newTreeFixture(t)
	tf.createFile("file_a")

	_, err := Backup(a, tf.path(), nil, monitor.NewCollect())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "b0000", "BANDTAIL")))
	ids, err := a.ListBandIds()
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	iter := a.StitchedIndexHunks(ids[0], monitor.NewCollect())
	hunk, err := iter.NextHunk()
	require.NoError(t, err)
	require.NotNil(t, hunk)

	// Remove the band head; the band can no longer be opened.
	require.NoError(t, os.Remove(filepath.Join(dir, "b0000", "BANDHEAD")))

	for i := 0; i < 10; i++ {
		hunk, err := iter.NextHunk()
		require.NoError(t, err)
		assert.Nil(t, hunk)
	}
}
