package source

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
)

func collect(t *testing.T, tree *Tree) []Entry {
	t.Helper()
	var out []Entry
	it := tree.Iter()
	for {
		e, more, err := it.Next()
		require.NoError(t, err)
		if !more {
			return out
		}
		out = append(out, e)
	}
}

func apaths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e.Proto.Apath)
	}
	return out
}

func TestWalkOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a-dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "file"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("y"), 0o644))

	tree, err := Open(dir, exclude.Nothing())
	require.NoError(t, err)
	got := collect(t, tree)

	// Directories come before their children; "/a/file" before "/a-dir"
	// even though a plain string sort would disagree.
	assert.Equal(t, []string{"/", "/a", "/a/file", "/a/sub", "/a-dir", "/b"}, apaths(got))
	assert.Equal(t, index.KindDir, got[0].Proto.Kind)
	assert.Equal(t, index.KindFile, got[2].Proto.Kind)
	assert.Equal(t, int64(1), got[2].Size)
}

func TestExcludedDirectoryNotDescended(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "target", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep"), nil, 0o644))

	excl, err := exclude.FromPatterns([]string{"target"})
	require.NoError(t, err)
	tree, err := Open(dir, excl)
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/keep"}, apaths(collect(t, tree)))
}

func TestSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}
	dir := t.TempDir()
	require.NoError(t, os.Symlink("/somewhere", filepath.Join(dir, "link")))

	tree, err := Open(dir, exclude.Nothing())
	require.NoError(t, err)
	got := collect(t, tree)
	require.Len(t, got, 2)
	assert.Equal(t, index.KindSymlink, got[1].Proto.Kind)
	assert.Equal(t, "/somewhere", got[1].Proto.Target)
}

func TestOpenRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Open(file, exclude.Nothing())
	assert.Error(t, err)
}
