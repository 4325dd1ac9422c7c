package monitor

// Counter identifies one cumulative statistic reported by long operations.
type Counter int

const (
	Files Counter = iota
	Dirs
	Symlinks
	EntriesWritten
	UnchangedFiles
	ModifiedFiles
	NewFiles
	BlockWrites
	BlockWriteUncompressedBytes
	BlockWriteCompressedBytes
	DeduplicatedBlocks
	DeduplicatedBlockBytes
	BlockReads
	BlockReadCompressedBytes
	BlockReadUncompressedBytes
	BlockExistenceCacheHit
	BlockExistenceCacheMiss
	BlockContentCacheHit
	BlockContentCacheMiss
	IndexWrites
	IndexWriteCompressedBytes
	IndexWriteUncompressedBytes

	numCounters
)

var counterNames = map[Counter]string{
	Files:                       "files",
	Dirs:                        "dirs",
	Symlinks:                    "symlinks",
	EntriesWritten:              "entries_written",
	UnchangedFiles:              "unchanged_files",
	ModifiedFiles:               "modified_files",
	NewFiles:                    "new_files",
	BlockWrites:                 "block_writes",
	BlockWriteUncompressedBytes: "block_write_uncompressed_bytes",
	BlockWriteCompressedBytes:   "block_write_compressed_bytes",
	DeduplicatedBlocks:          "deduplicated_blocks",
	DeduplicatedBlockBytes:      "deduplicated_block_bytes",
	BlockReads:                  "block_reads",
	BlockReadCompressedBytes:    "block_read_compressed_bytes",
	BlockReadUncompressedBytes:  "block_read_uncompressed_bytes",
	BlockExistenceCacheHit:      "block_existence_cache_hit",
	BlockExistenceCacheMiss:     "block_existence_cache_miss",
	BlockContentCacheHit:        "block_content_cache_hit",
	BlockContentCacheMiss:       "block_content_cache_miss",
	IndexWrites:                 "index_writes",
	IndexWriteCompressedBytes:   "index_write_compressed_bytes",
	IndexWriteUncompressedBytes: "index_write_uncompressed_bytes",
}

func (c Counter) String() string {
	if name, ok := counterNames[c]; ok {
		return name
	}
	return "unknown"
}

// Task tracks progress of one named step within a long operation.
type Task interface {
	Increment(n int)
	SetTotal(n int)
	Done()
}

// Monitor receives progress and error reports from long operations.
// Errors reported here are problems the operation can continue past;
// hard failures are returned as errors instead.
type Monitor interface {
	Count(c Counter, n int)
	StartTask(name string) Task
	Error(err error)
}

type nopTask struct{}

func (nopTask) Increment(int) {}
func (nopTask) SetTotal(int)  {}
func (nopTask) Done()         {}

type nopMonitor struct{}

func (nopMonitor) Count(Counter, int)    {}
func (nopMonitor) StartTask(string) Task { return nopTask{} }
func (nopMonitor) Error(error)           {}

// Nop returns a monitor that discards everything.
func Nop() Monitor {
	return nopMonitor{}
}
