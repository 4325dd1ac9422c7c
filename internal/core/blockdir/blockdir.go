package blockdir

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/internal/core/transport"
)

// MaxBlockSize is the largest uncompressed block. Files larger than this
// are split across multiple blocks.
const MaxBlockSize = 20 << 20

// subdirNameChars is how many hash characters name the fanout subdirectory.
const subdirNameChars = 3

// Cache this many decompressed blocks in memory. 100 blocks of 20MB each
// bounds it at 2GB.
const blockCacheSize = 100

// Remember the existence of this many blocks even without their content,
// sized so about 64MiB of hashes fit.
const existenceCacheSize = (64 << 20) / HashSize

// Address references a range of uncompressed bytes within a block.
type Address struct {
	// Hash of the block storing this data.
	Hash BlockHash `json:"hash"`
	// Position in the block where the data begins.
	Start uint64 `json:"start,omitempty"`
	// Number of bytes.
	Len uint64 `json:"len"`
}

// SubdirRelpath returns the transport-relative fanout directory for a hash.
func SubdirRelpath(hash BlockHash) string {
	return hash.String()[:subdirNameChars]
}

// BlockRelpath returns the transport-relative file for a hash.
func BlockRelpath(hash BlockHash) string {
	hex := hash.String()
	return hex[:subdirNameChars] + "/" + hex
}

// StoreStats accumulates per-operation write statistics. It is updated by
// the single goroutine running a backup, not shared.
type StoreStats struct {
	WrittenBlocks      uint64
	DeduplicatedBlocks uint64
	UncompressedBytes  uint64
	CompressedBytes    uint64
	DeduplicatedBytes  uint64
}

// Stats counts blockdir activity across its lifetime.
type Stats struct {
	ReadBlocks               atomic.Int64
	ReadBlockCompressedBytes atomic.Int64
	ReadBlockUncompressed    atomic.Int64
	CacheHit                 atomic.Int64
}

// BlockDir stores and retrieves immutable compressed blocks named by the
// hash of their uncompressed content. It is safe for concurrent use.
type BlockDir struct {
	transport transport.Transport
	Stats     Stats

	cache  *lru.Cache[BlockHash, []byte]
	exists *lru.Cache[BlockHash, struct{}]
}

// Open returns a BlockDir over an existing directory.
func Open(t transport.Transport) *BlockDir {
	cache, _ := lru.New[BlockHash, []byte](blockCacheSize)
	exists, _ := lru.New[BlockHash, struct{}](existenceCacheSize)
	return &BlockDir{
		transport: t,
		cache:     cache,
		exists:    exists,
	}
}

// Create makes the blockdir root directory and opens it.
func Create(t transport.Transport) (*BlockDir, error) {
	if err := t.CreateDir(""); err != nil {
		return nil, fmt.Errorf("create block directory: %w", err)
	}
	return Open(t), nil
}

// StoreOrDeduplicate stores block data if it is not already present, and
// returns its hash. The data must be at most MaxBlockSize bytes.
func (b *BlockDir) StoreOrDeduplicate(data []byte, stats *StoreStats, mon monitor.Monitor) (BlockHash, error) {
	hash := HashBytes(data)
	present, err := b.Contains(hash, mon)
	if err != nil {
		return hash, err
	}
	if present {
		stats.DeduplicatedBlocks++
		stats.DeduplicatedBytes += uint64(len(data))
		mon.Count(monitor.DeduplicatedBlocks, 1)
		mon.Count(monitor.DeduplicatedBlockBytes, len(data))
		return hash, nil
	}
	compressed := snappy.Encode(nil, data)
	mon.Count(monitor.BlockWriteUncompressedBytes, len(data))
	if err := b.transport.CreateDir(SubdirRelpath(hash)); err != nil {
		return hash, &WriteBlockError{Hash: hash, Err: err}
	}
	if err := b.transport.WriteFile(BlockRelpath(hash), compressed); err != nil {
		return hash, &WriteBlockError{Hash: hash, Err: err}
	}
	stats.WrittenBlocks++
	stats.UncompressedBytes += uint64(len(data))
	stats.CompressedBytes += uint64(len(compressed))
	mon.Count(monitor.BlockWrites, 1)
	mon.Count(monitor.BlockWriteCompressedBytes, len(compressed))
	// Update caches only after everything succeeded.
	b.cache.Add(hash, append([]byte(nil), data...))
	b.exists.Add(hash, struct{}{})
	return hash, nil
}

// Contains reports whether the named block is present.
//
// An empty block file can be left behind by an interrupted write on a
// local filesystem. The index never points at empty blocks, so these are
// treated as absent, giving a later store the chance to heal them.
func (b *BlockDir) Contains(hash BlockHash, mon monitor.Monitor) (bool, error) {
	if b.cache.Contains(hash) || b.exists.Contains(hash) {
		mon.Count(monitor.BlockExistenceCacheHit, 1)
		b.Stats.CacheHit.Add(1)
		return true, nil
	}
	mon.Count(monitor.BlockExistenceCacheMiss, 1)
	md, err := b.transport.Metadata(BlockRelpath(hash))
	switch {
	case transport.IsNotFound(err):
		return false, nil
	case err != nil:
		return false, err
	case md.Kind == transport.KindFile && md.Len > 0:
		b.exists.Add(hash, struct{}{})
		return true, nil
	default:
		return false, nil
	}
}

// CompressedSize returns the on-disk size of a block.
func (b *BlockDir) CompressedSize(hash BlockHash) (int64, error) {
	md, err := b.transport.Metadata(BlockRelpath(hash))
	if err != nil {
		return 0, err
	}
	return md.Len, nil
}

// ReadAddress returns the bytes referenced by an address.
func (b *BlockDir) ReadAddress(addr Address, mon monitor.Monitor) ([]byte, error) {
	content, err := b.GetBlockContent(addr.Hash, mon)
	if err != nil {
		return nil, err
	}
	end := addr.Start + addr.Len
	if end > uint64(len(content)) {
		return nil, &AddressTooLongError{Address: addr, ActualLen: len(content)}
	}
	return content[addr.Start:end], nil
}

// GetBlockContent returns the entire decompressed content of a block,
// verifying that it matches the hash.
func (b *BlockDir) GetBlockContent(hash BlockHash, mon monitor.Monitor) ([]byte, error) {
	if content, ok := b.cache.Get(hash); ok {
		mon.Count(monitor.BlockContentCacheHit, 1)
		b.Stats.CacheHit.Add(1)
		return content, nil
	}
	mon.Count(monitor.BlockContentCacheMiss, 1)
	compressed, err := b.transport.ReadFile(BlockRelpath(hash))
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, &BlockMissingError{Hash: hash}
		}
		return nil, fmt.Errorf("read block %s: %w", hash, err)
	}
	content, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress block %s: %w", hash, err)
	}
	if actual := HashBytes(content); actual != hash {
		return nil, &BlockCorruptError{Hash: hash, ActualHash: actual}
	}
	b.cache.Add(hash, content)
	b.exists.Add(hash, struct{}{})
	b.Stats.ReadBlocks.Add(1)
	b.Stats.ReadBlockCompressedBytes.Add(int64(len(compressed)))
	b.Stats.ReadBlockUncompressed.Add(int64(len(content)))
	mon.Count(monitor.BlockReads, 1)
	mon.Count(monitor.BlockReadCompressedBytes, len(compressed))
	mon.Count(monitor.BlockReadUncompressedBytes, len(content))
	return content, nil
}

// DeleteBlock evicts a block from the caches and removes its file.
func (b *BlockDir) DeleteBlock(hash BlockHash) error {
	b.cache.Remove(hash)
	b.exists.Remove(hash)
	return b.transport.RemoveFile(BlockRelpath(hash))
}

// subdirs lists the fanout subdirectories, skipping unexpected names.
func (b *BlockDir) subdirs() ([]string, error) {
	ls, err := b.transport.ListDir("")
	if err != nil {
		return nil, fmt.Errorf("list block directory: %w", err)
	}
	dirs := ls.Dirs[:0]
	for _, name := range ls.Dirs {
		if len(name) == subdirNameChars {
			dirs = append(dirs, name)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Blocks returns the hashes of all blocks, in arbitrary order. Names that
// are not valid hashes, including temporary files, are skipped. Listing
// errors within a subdirectory are reported to the monitor and that
// subdirectory's contents are dropped.
func (b *BlockDir) Blocks(mon monitor.Monitor) ([]BlockHash, error) {
	subdirs, err := b.subdirs()
	if err != nil {
		return nil, err
	}
	task := mon.StartTask("List blocks")
	defer task.Done()
	task.SetTotal(len(subdirs))

	var mu sync.Mutex
	var hashes []BlockHash
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for _, subdir := range subdirs {
		subdir := subdir
		g.Go(func() error {
			ls, err := b.transport.ListDir(subdir)
			task.Increment(1)
			if err != nil {
				mon.Error(fmt.Errorf("list blocks in %q: %w", subdir, err))
				return nil
			}
			var found []BlockHash
			for _, name := range ls.Files {
				if hash, err := ParseHash(name); err == nil {
					found = append(found, hash)
				}
			}
			mu.Lock()
			hashes = append(hashes, found...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return hashes, nil
}

// Validate decompresses every block to check its hash, returning the
// uncompressed length of each good block. Problems are reported to the
// monitor rather than aborting.
func (b *BlockDir) Validate(mon monitor.Monitor) (map[BlockHash]int, error) {
	hashes, err := b.Blocks(mon)
	if err != nil {
		return nil, err
	}
	task := mon.StartTask("Validate blocks")
	defer task.Done()
	task.SetTotal(len(hashes))

	var mu sync.Mutex
	lens := make(map[BlockHash]int, len(hashes))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for _, hash := range hashes {
		hash := hash
		g.Go(func() error {
			// Drop any cached copy so the stored bytes are re-read and re-hashed.
			b.cache.Remove(hash)
			content, err := b.GetBlockContent(hash, mon)
			task.Increment(1)
			if err != nil {
				mon.Error(err)
				return nil
			}
			mu.Lock()
			lens[hash] = len(content)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return lens, nil
}
