package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEntitySetBaseline(t *testing.T) {
	set := BuildEntitySet(EntitySetOptions{})
	assert.True(t, set.Has("sontalak"))
	assert.True(t, set.Has("lord yelinak"))
	assert.True(t, set.Has("gravid drake"))
	assert.False(t, set.Has("fippy darkpaw"))
}

func TestBuildEntitySetAdditionsAndRemovals(t *testing.T) {
	set := BuildEntitySet(EntitySetOptions{
		Additions: []string{"Fippy Darkpaw"},
		// Removals are normalized before comparison.
		Removals: []string{"SONTALAK"},
	})
	assert.True(t, set.Has("fippy darkpaw"))
	assert.False(t, set.Has("sontalak"))

	// One addition and one removal cancel out against the baseline.
	assert.Equal(t, BuildEntitySet(EntitySetOptions{}).Len(), set.Len())
}

func TestBuildEntitySetOverrideFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "entities.txt")
	require.NoError(t, os.WriteFile(file, []byte("Custom Dragon\r\n\n  Another One  \n"), 0o644))

	set := BuildEntitySet(EntitySetOptions{OverrideFile: file})
	assert.True(t, set.Has("custom dragon"))
	assert.True(t, set.Has("another one"))
	// Baseline is still merged in.
	assert.True(t, set.Has("sontalak"))

	// Unreadable file degrades to the remaining sources.
	missing := BuildEntitySet(EntitySetOptions{OverrideFile: filepath.Join(dir, "nope.txt")})
	assert.True(t, missing.Has("sontalak"))
}

func TestEntitySetMatch(t *testing.T) {
	set := BuildEntitySet(EntitySetOptions{})
	assert.True(t, set.Match("sontalak"))
	// Prefix fallback for decorated in-game names.
	assert.True(t, set.Match("sontalak great wyrm"))
	assert.False(t, set.Match("a random gnoll"))

	all := BuildEntitySet(EntitySetOptions{AcceptAll: true})
	assert.True(t, all.Match("a random gnoll"))
	assert.False(t, all.Has("a random gnoll"))
}
