package conserve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/monitor"
)

// scratchArchive creates a fresh archive in a temp directory.
func scratchArchive(t *testing.T) (*Archive, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "archive")
	a, err := CreateArchivePath(dir)
	require.NoError(t, err)
	return a, dir
}

// treeFixture is a scratch source tree.
type treeFixture struct {
	t    *testing.T
	root string
}

func newTreeFixture(t *testing.T) *treeFixture {
	return &treeFixture{t: t, root: t.TempDir()}
}

func (f *treeFixture) path() string {
	return f.root
}

// createFile writes a file with fixed content "contents".
func (f *treeFixture) createFile(name string) {
	f.createFileWithContent(name, []byte("contents"))
}

func (f *treeFixture) createFileWithContent(name string, content []byte) {
	f.t.Helper()
	full := filepath.Join(f.root, name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(f.t, os.WriteFile(full, content, 0o644))
}

func (f *treeFixture) createDir(name string) {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(filepath.Join(f.root, name), 0o755))
}

// symlinkEntry builds an index entry the way the stitch tests need:
// target records which band wrote it.
func symlinkEntry(name, target string) index.Entry {
	return index.Entry{
		Apath:  apath.Apath(name),
		Kind:   index.KindSymlink,
		Target: target,
	}
}

// simpleLs renders a stitched read as "apath:target" pairs.
func simpleLs(t *testing.T, a *Archive, id band.Id) string {
	t.Helper()
	it := a.StitchedIndexHunks(id, monitor.NewCollect()).Entries(apath.Root, exclude.Nothing())
	out := ""
	for {
		e, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		if out != "" {
			out += " "
		}
		out += string(e.Apath) + ":" + e.Target
	}
}
