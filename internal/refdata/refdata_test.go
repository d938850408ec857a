package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/profile"
)

func TestDefault(t *testing.T) {
	lists := Default()

	first, err := lists.Names(profile.TypeFirstName)
	require.NoError(t, err)
	assert.Equal(t, "Ada", first[0])

	full, err := lists.Names(profile.TypeFullName)
	require.NoError(t, err)
	assert.Len(t, full, len(lists.FirstNames)*len(lists.LastNames))
	assert.Equal(t, "Ada Dijkstra", full[0])

	_, err = lists.Names(profile.TypeInteger)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.yaml")
	require.NoError(t, os.WriteFile(path, []byte("firstnames: [Zed, Yan]\n"), 0o644))

	lists, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zed", "Yan"}, lists.FirstNames)
	assert.Equal(t, Default().LastNames, lists.LastNames, "missing list falls back to defaults")
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("surnames: [A]\n"), 0o644))
	_, err := LoadFile(unknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surnames")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("lastnames: []\n"), 0o644))
	_, err = LoadFile(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lastnames")

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
