package conserve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/internal/core/source"
)

func TestDiff(t *testing.T) {
	a, _ := scratchArchive(t)
	tf := newTreeFixture(t)
	tf.createFileWithContent("same", []byte("kept"))
	tf.createFileWithContent("gone", []byte("will be deleted"))
	tf.createFileWithContent("edited", []byte("old"))
	_, err := Backup(a, tf.path(), nil, monitor.NewCollect())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(tf.path(), "gone")))
	tf.createFileWithContent("edited", []byte("new content, longer"))
	tf.createFileWithContent("added", []byte("brand new"))

	st, err := a.OpenStoredTree(SelectLatest())
	require.NoError(t, err)
	tree, err := source.Open(tf.path(), exclude.Nothing())
	require.NoError(t, err)

	diff, err := Diff(st, tree, exclude.Nothing(), monitor.NewCollect())
	require.NoError(t, err)

	got := map[string]DiffKind{}
	for _, d := range diff {
		got[string(d.Apath)] = d.Kind
	}
	assert.Equal(t, DiffAdded, got["/added"])
	assert.Equal(t, DiffDeleted, got["/gone"])
	assert.Equal(t, DiffChanged, got["/edited"])
	assert.NotContains(t, got, "/same")
}
