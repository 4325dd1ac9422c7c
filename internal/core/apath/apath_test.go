package apath

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	valid := []string{"/", "/a", "/a/b", "/a-dir", "/.config", "/a/..b"}
	for _, s := range valid {
		assert.True(t, IsValid(s), "expected %q to be valid", s)
	}

	invalid := []string{"", "a", "a/b", "/a/", "//", "/a//b", "/.", "/..", "/a/./b", "/a/../b"}
	for _, s := range invalid {
		assert.False(t, IsValid(s), "expected %q to be invalid", s)
	}
}

func TestCompareOrdersDirectoriesBeforeChildren(t *testing.T) {
	// The expected total order: a directory comes immediately before its
	// children, and siblings sort by name bytes.
	ordered := []Apath{
		"/",
		"/a",
		"/a/b",
		"/a/b/c",
		"/a/z",
		"/a-dir",
		"/a-dir/x",
		"/b",
	}
	for i := range ordered {
		for j := range ordered {
			c := Compare(ordered[i], ordered[j])
			switch {
			case i < j:
				assert.Negative(t, c, "%q should sort before %q", ordered[i], ordered[j])
			case i > j:
				assert.Positive(t, c, "%q should sort after %q", ordered[i], ordered[j])
			default:
				assert.Zero(t, c)
			}
		}
	}
}

func TestSortWithLess(t *testing.T) {
	paths := []Apath{"/b", "/a-dir", "/a/b", "/", "/a"}
	sort.Slice(paths, func(i, j int) bool { return Less(paths[i], paths[j]) })
	assert.Equal(t, []Apath{"/", "/a", "/a/b", "/a-dir", "/b"}, paths)
}

func TestInSubtree(t *testing.T) {
	assert.True(t, Apath("/a/b").InSubtree("/a"))
	assert.True(t, Apath("/a").InSubtree("/a"))
	assert.True(t, Apath("/a").InSubtree("/"))
	assert.False(t, Apath("/a-dir").InSubtree("/a"))
	assert.False(t, Apath("/a").InSubtree("/a/b"))
}

func TestAppend(t *testing.T) {
	assert.Equal(t, Apath("/a"), Root.Append("a"))
	assert.Equal(t, Apath("/a/b"), Apath("/a").Append("b"))
}
