package blockdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/internal/core/transport"
)

func TestStoreAndReadBack(t *testing.T) {
	b := Open(transport.NewLocal(t.TempDir()))
	mon := monitor.NewCollect()
	var stats StoreStats

	content := []byte("stuff")
	hash, err := b.StoreOrDeduplicate(content, &stats, mon)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.WrittenBlocks)
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockWrites))

	got, err := b.GetBlockContent(hash, mon)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStoreIsIdempotent(t *testing.T) {
	b := Open(transport.NewLocal(t.TempDir()))
	mon := monitor.NewCollect()
	var stats StoreStats

	content := []byte("stuff")
	hash1, err := b.StoreOrDeduplicate(content, &stats, mon)
	require.NoError(t, err)
	hash2, err := b.StoreOrDeduplicate(content, &stats, mon)
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2)
	assert.Equal(t, uint64(1), stats.WrittenBlocks)
	assert.Equal(t, uint64(1), stats.DeduplicatedBlocks)
	assert.Equal(t, int64(1), mon.GetCounter(monitor.DeduplicatedBlocks))
	assert.Equal(t, int64(5), mon.GetCounter(monitor.DeduplicatedBlockBytes))
}

func TestEmptyBlockFileCountsAsNotPresent(t *testing.T) {
	// An interruption or crash can leave a block file with 0 bytes. It is
	// not valid compressed data, so it is treated as not present at all,
	// and a later store of the same content heals it.
	dir := t.TempDir()
	b := Open(transport.NewLocal(dir))
	mon := monitor.NewCollect()
	var stats StoreStats

	hash, err := b.StoreOrDeduplicate([]byte("stuff"), &stats, mon)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockWrites))
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockExistenceCacheMiss))

	present, err := b.Contains(hash, mon)
	require.NoError(t, err)
	assert.True(t, present)
	// We just wrote it, so we know it is there without another probe.
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockExistenceCacheMiss))
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockExistenceCacheHit))

	// Reopen to get fresh caches, then truncate the file.
	b = Open(transport.NewLocal(dir))
	mon = monitor.NewCollect()
	require.NoError(t, os.Truncate(filepath.Join(dir, filepath.FromSlash(BlockRelpath(hash))), 0))

	present, err = b.Contains(hash, mon)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, int64(0), mon.GetCounter(monitor.BlockExistenceCacheHit))
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockExistenceCacheMiss))

	// Storing the same content again rewrites the block.
	var stats2 StoreStats
	_, err = b.StoreOrDeduplicate([]byte("stuff"), &stats2, mon)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats2.WrittenBlocks)
	assert.Equal(t, uint64(0), stats2.DeduplicatedBlocks)
}

func TestTempFilesAreNotReturnedAsBlocks(t *testing.T) {
	dir := t.TempDir()
	b := Open(transport.NewLocal(dir))
	subdir := filepath.Join(dir, "123")
	require.NoError(t, os.Mkdir(subdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subdir, transport.TmpPrefix+"123123123"), []byte("123"), 0o644))

	blocks, err := b.Blocks(monitor.NewCollect())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestContentCacheHit(t *testing.T) {
	dir := t.TempDir()
	b := Open(transport.NewLocal(dir))
	mon := monitor.NewCollect()
	var stats StoreStats
	content := []byte("stuff")

	hash, err := b.StoreOrDeduplicate(content, &stats, mon)
	require.NoError(t, err)

	// The store populated the content cache, so reads are hits.
	mon = monitor.NewCollect()
	got, err := b.GetBlockContent(hash, mon)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockContentCacheHit))
	assert.Equal(t, int64(0), mon.GetCounter(monitor.BlockContentCacheMiss))

	// A fresh blockdir has cold caches: existence probe misses once then
	// hits, and the first content read is a miss.
	b = Open(transport.NewLocal(dir))
	mon = monitor.NewCollect()
	present, err := b.Contains(hash, mon)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockExistenceCacheMiss))

	present, err = b.Contains(hash, mon)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockExistenceCacheHit))

	_, err = b.GetBlockContent(hash, mon)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mon.GetCounter(monitor.BlockContentCacheMiss))
}

func TestReadAddress(t *testing.T) {
	b := Open(transport.NewLocal(t.TempDir()))
	mon := monitor.NewCollect()
	var stats StoreStats

	hash, err := b.StoreOrDeduplicate([]byte("hello world"), &stats, mon)
	require.NoError(t, err)

	got, err := b.ReadAddress(Address{Hash: hash, Start: 6, Len: 5}, mon)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)

	_, err = b.ReadAddress(Address{Hash: hash, Start: 6, Len: 100}, mon)
	var tooLong *AddressTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 11, tooLong.ActualLen)
}

func TestReadMissingBlock(t *testing.T) {
	b := Open(transport.NewLocal(t.TempDir()))
	hash := HashBytes([]byte("never stored"))

	_, err := b.GetBlockContent(hash, monitor.NewCollect())
	var missing *BlockMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, hash, missing.Hash)
}

func TestCorruptBlockDetected(t *testing.T) {
	dir := t.TempDir()
	b := Open(transport.NewLocal(dir))
	mon := monitor.NewCollect()
	var stats StoreStats

	hash, err := b.StoreOrDeduplicate([]byte("good content"), &stats, mon)
	require.NoError(t, err)

	// Replace the file with validly-compressed bytes of other content.
	b2 := Open(transport.NewLocal(dir))
	pathOnDisk := filepath.Join(dir, filepath.FromSlash(BlockRelpath(hash)))
	require.NoError(t, os.WriteFile(pathOnDisk, corruptCompressed(t), 0o644))

	_, err = b2.GetBlockContent(hash, monitor.NewCollect())
	var corrupt *BlockCorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, hash, corrupt.Hash)
}

// corruptCompressed returns valid snappy data whose content hashes to
// something else.
func corruptCompressed(t *testing.T) []byte {
	t.Helper()
	dir := t.TempDir()
	b := Open(transport.NewLocal(dir))
	var stats StoreStats
	hash, err := b.StoreOrDeduplicate([]byte("some other bytes"), &stats, monitor.NewCollect())
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(BlockRelpath(hash))))
	require.NoError(t, err)
	return data
}

func TestValidateReportsSizes(t *testing.T) {
	b := Open(transport.NewLocal(t.TempDir()))
	mon := monitor.NewCollect()
	var stats StoreStats

	h1, err := b.StoreOrDeduplicate([]byte("first"), &stats, mon)
	require.NoError(t, err)
	h2, err := b.StoreOrDeduplicate([]byte("second block"), &stats, mon)
	require.NoError(t, err)

	lens, err := b.Validate(mon)
	require.NoError(t, err)
	assert.Equal(t, map[BlockHash]int{h1: 5, h2: 12}, lens)
	assert.Zero(t, mon.ErrorCount())
}

func TestDeleteBlock(t *testing.T) {
	b := Open(transport.NewLocal(t.TempDir()))
	mon := monitor.NewCollect()
	var stats StoreStats

	hash, err := b.StoreOrDeduplicate([]byte("doomed"), &stats, mon)
	require.NoError(t, err)
	require.NoError(t, b.DeleteBlock(hash))

	present, err := b.Contains(hash, mon)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestParseHash(t *testing.T) {
	h := HashBytes([]byte("x"))
	parsed, err := ParseHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseHash("short")
	assert.Error(t, err)
	_, err = ParseHash(string(make([]byte, 128))) // non-hex bytes
	assert.Error(t, err)
}
