package conserve

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/monitor"
)

// RestoreOptions controls one restore run.
type RestoreOptions struct {
	Exclude exclude.Exclude
	// Subtree restores only the given apath and its descendants; empty
	// means the whole tree.
	Subtree apath.Apath
	Band    BandSelection
	// Overwrite allows restoring into an existing non-empty directory.
	Overwrite bool
}

// RestoreStats summarizes one restore run.
type RestoreStats struct {
	Files         int
	Dirs          int
	Symlinks      int
	SkippedErrors int
	Elapsed       time.Duration
}

// Restore writes a stored tree out to a local directory.
//
// Metadata restoration problems (mtime, mode) are reported and skipped;
// missing or corrupt blocks abort the restore.
func Restore(a *Archive, dest string, opts *RestoreOptions, mon monitor.Monitor) (*RestoreStats, error) {
	start := time.Now()
	if opts == nil {
		opts = &RestoreOptions{}
	}
	st, err := a.OpenStoredTree(opts.Band)
	if err != nil {
		return nil, err
	}
	if !opts.Overwrite {
		entries, err := os.ReadDir(dest)
		switch {
		case err == nil && len(entries) > 0:
			return nil, fmt.Errorf("%w: %s", ErrDestinationNotEmpty, dest)
		case err != nil && !os.IsNotExist(err):
			return nil, fmt.Errorf("open restore destination: %w", err)
		}
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create restore destination: %w", err)
	}

	subtree := opts.Subtree
	if subtree == "" {
		subtree = apath.Root
	}

	stats := &RestoreStats{}
	// Directory mtimes are applied after their contents, deepest first.
	type deferredDir struct {
		path  string
		mtime time.Time
		mode  *uint32
	}
	var dirFixups []deferredDir

	it := st.Iter(subtree, opts.Exclude, mon)
	for {
		e, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		local := filepath.Join(dest, filepath.FromSlash(string(e.Apath)))
		mtime := time.Unix(e.Mtime, int64(e.MtimeNanos))
		switch e.Kind {
		case index.KindDir:
			stats.Dirs++
			if !e.Apath.IsRoot() {
				if err := os.Mkdir(local, restoreMode(&e, 0o755)); err != nil && !os.IsExist(err) {
					return nil, fmt.Errorf("restore directory %q: %w", local, err)
				}
			}
			dirFixups = append(dirFixups, deferredDir{path: local, mtime: mtime, mode: e.UnixMode})
		case index.KindFile:
			stats.Files++
			if err := restoreFile(a, local, &e, mon); err != nil {
				return nil, err
			}
			if e.UnixMode != nil {
				if err := os.Chmod(local, restoreMode(&e, 0o644)); err != nil {
					mon.Error(fmt.Errorf("restore permissions on %q: %w", local, err))
					stats.SkippedErrors++
				}
			}
			if err := os.Chtimes(local, mtime, mtime); err != nil {
				mon.Error(fmt.Errorf("restore modification time on %q: %w", local, err))
				stats.SkippedErrors++
			}
		case index.KindSymlink:
			stats.Symlinks++
			if err := os.Symlink(e.Target, local); err != nil {
				mon.Error(fmt.Errorf("restore symlink %q: %w", local, err))
				stats.SkippedErrors++
			}
		}
	}

	for i := len(dirFixups) - 1; i >= 0; i-- {
		d := dirFixups[i]
		if d.mode != nil {
			if err := os.Chmod(d.path, fs.FileMode(*d.mode).Perm()); err != nil {
				mon.Error(fmt.Errorf("restore permissions on %q: %w", d.path, err))
				stats.SkippedErrors++
			}
		}
		if err := os.Chtimes(d.path, d.mtime, d.mtime); err != nil {
			mon.Error(fmt.Errorf("restore modification time on %q: %w", d.path, err))
			stats.SkippedErrors++
		}
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// restoreFile writes one file by consuming its addresses in order.
func restoreFile(a *Archive, local string, e *index.Entry, mon monitor.Monitor) error {
	out, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, restoreMode(e, 0o644))
	if err != nil {
		return fmt.Errorf("restore %q: %w", local, err)
	}
	for _, addr := range e.Addrs {
		data, err := a.blockDir.ReadAddress(addr, mon)
		if err != nil {
			out.Close()
			return fmt.Errorf("restore %q: %w", local, err)
		}
		if _, err := out.Write(data); err != nil {
			out.Close()
			return fmt.Errorf("restore %q: %w", local, err)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("restore %q: %w", local, err)
	}
	return nil
}

// restoreMode maps a stored unix mode to the permissions used when
// recreating the entry.
func restoreMode(e *index.Entry, fallback fs.FileMode) fs.FileMode {
	if e.UnixMode != nil {
		return fs.FileMode(*e.UnixMode).Perm()
	}
	return fallback
}
