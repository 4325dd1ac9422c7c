package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
)

// Entry is one file, directory or symlink observed in a local source
// tree. Proto carries the metadata that will go into the index; file
// content addresses are filled in by the backup pipeline.
type Entry struct {
	// Proto is the index entry without addresses or content hash.
	Proto index.Entry
	// Path is the entry's location on the local filesystem.
	Path string
	// Size is the file length from stat; zero for dirs and symlinks.
	Size int64
}

// Tree is a local directory readable as a source for backup.
type Tree struct {
	root    string
	exclude exclude.Exclude
}

// Open returns a source tree rooted at the given directory.
func Open(root string, excl exclude.Exclude) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open source tree %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %q is not a directory", root)
	}
	return &Tree{root: root, exclude: excl}, nil
}

// Root returns the tree's root directory.
func (t *Tree) Root() string {
	return t.root
}

// Iter walks the tree in apath order: each directory immediately before
// its children, siblings in byte order of their names. Excluded entries
// are dropped, and excluded directories are not descended into.
func (t *Tree) Iter() *Iter {
	return &Iter{tree: t, pending: []apath.Apath{apath.Root}}
}

// Iter yields source entries in apath order.
type Iter struct {
	tree *Tree
	// pending is a stack of apaths to emit; children are pushed in
	// reverse so the next pop is the first sibling.
	pending []apath.Apath
}

// Next returns the next entry. The second result is false at the end of
// the tree. Unreadable entries produce an error but do not stop the
// iterator; the caller decides whether to continue.
func (it *Iter) Next() (Entry, bool, error) {
	for len(it.pending) > 0 {
		ap := it.pending[len(it.pending)-1]
		it.pending = it.pending[:len(it.pending)-1]

		localPath := filepath.Join(it.tree.root, filepath.FromSlash(string(ap)))
		info, err := os.Lstat(localPath)
		if err != nil {
			return Entry{}, true, fmt.Errorf("read source entry %q: %w", localPath, err)
		}

		entry := Entry{Path: localPath}
		entry.Proto.Apath = ap
		mtime := info.ModTime()
		entry.Proto.Mtime = mtime.Unix()
		entry.Proto.MtimeNanos = uint32(mtime.Nanosecond())
		mode := uint32(info.Mode().Perm())
		entry.Proto.UnixMode = &mode

		switch {
		case info.Mode().IsDir():
			entry.Proto.Kind = index.KindDir
			if err := it.push(ap, localPath); err != nil {
				return Entry{}, true, err
			}
		case info.Mode().IsRegular():
			entry.Proto.Kind = index.KindFile
			entry.Size = info.Size()
		case info.Mode()&os.ModeSymlink != 0:
			entry.Proto.Kind = index.KindSymlink
			target, err := os.Readlink(localPath)
			if err != nil {
				return Entry{}, true, fmt.Errorf("read symlink %q: %w", localPath, err)
			}
			entry.Proto.Target = target
		default:
			// Sockets, devices and other special files are not stored.
			continue
		}
		return entry, true, nil
	}
	return Entry{}, false, nil
}

// push queues a directory's children, sorted, onto the stack.
func (it *Iter) push(dir apath.Apath, localPath string) error {
	entries, err := os.ReadDir(localPath)
	if err != nil {
		return fmt.Errorf("list source directory %q: %w", localPath, err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	sort.Strings(names)
	// Reverse order so the lexicographically first child pops first.
	for i := len(names) - 1; i >= 0; i-- {
		child := dir.Append(names[i])
		if it.tree.exclude.Matches(child) {
			continue
		}
		it.pending = append(it.pending, child)
	}
	return nil
}
