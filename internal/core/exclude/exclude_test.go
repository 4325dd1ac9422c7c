package exclude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNothingMatchesNothing(t *testing.T) {
	e := Nothing()
	assert.False(t, e.Matches("/a"))
	assert.False(t, e.Matches("/"))
}

func TestBareNameMatchesAnywhere(t *testing.T) {
	e, err := FromPatterns([]string{"*.o"})
	require.NoError(t, err)
	assert.True(t, e.Matches("/main.o"))
	assert.True(t, e.Matches("/deep/sub/dir/thing.o"))
	assert.False(t, e.Matches("/main.c"))
}

func TestAnchoredPattern(t *testing.T) {
	e, err := FromPatterns([]string{"/target/**"})
	require.NoError(t, err)
	assert.True(t, e.Matches("/target/debug"))
	assert.False(t, e.Matches("/src/target"))
}

func TestInvalidPattern(t *testing.T) {
	_, err := FromPatterns([]string{"[unclosed"})
	assert.Error(t, err)
}
