package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadFile(t *testing.T) {
	tr := NewLocal(t.TempDir())
	require.NoError(t, tr.WriteFile("hello", []byte("contents")))

	data, err := tr.ReadFile("hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), data)

	// Overwrite replaces the existing file.
	require.NoError(t, tr.WriteFile("hello", []byte("new")))
	data, err = tr.ReadFile("hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestReadMissingFileIsNotFound(t *testing.T) {
	tr := NewLocal(t.TempDir())
	_, err := tr.ReadFile("nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = tr.Metadata("nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListDirSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	tr := NewLocal(dir)
	require.NoError(t, tr.WriteFile("keep", nil))
	require.NoError(t, tr.CreateDir("sub"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TmpPrefix+"partial"), []byte("x"), 0o644))

	ls, err := tr.ListDir("")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ls.Files)
	assert.Equal(t, []string{"sub"}, ls.Dirs)
}

func TestCreateDirIsIdempotent(t *testing.T) {
	tr := NewLocal(t.TempDir())
	require.NoError(t, tr.CreateDir("d"))
	require.NoError(t, tr.CreateDir("d"))

	md, err := tr.Metadata("d")
	require.NoError(t, err)
	assert.Equal(t, KindDir, md.Kind)
}

func TestWriteNewFileRefusesExisting(t *testing.T) {
	tr := NewLocal(t.TempDir())
	require.NoError(t, tr.WriteNewFile("lock", nil))

	err := tr.WriteNewFile("lock", nil)
	require.Error(t, err)
	assert.True(t, IsExist(err))
}

func TestSubTransport(t *testing.T) {
	tr := NewLocal(t.TempDir())
	require.NoError(t, tr.CreateDir("sub"))
	sub := tr.Sub("sub")
	require.NoError(t, sub.WriteFile("f", []byte("x")))

	data, err := tr.ReadFile("sub/f")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestMetadataLen(t *testing.T) {
	tr := NewLocal(t.TempDir())
	require.NoError(t, tr.WriteFile("f", []byte("12345")))
	md, err := tr.Metadata("f")
	require.NoError(t, err)
	assert.Equal(t, KindFile, md.Kind)
	assert.Equal(t, int64(5), md.Len)
}
