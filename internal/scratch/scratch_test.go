package scratch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateCreatesFreshDirAndPreservesOld(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "tempdir")

	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "old.log"), []byte("x"), 0o644))

	dir, err := Rotate(target)
	require.NoError(t, err)
	assert.Equal(t, target, dir.Path())

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Len(t, entries, 2) // fresh "tempdir" + rotated "tempdir_<mtime>"
}

func TestNewLogFileIsUnique(t *testing.T) {
	dir := Open(t.TempDir())

	f1, err := dir.NewLogFile("my callback")
	require.NoError(t, err)
	defer f1.Close()

	f2, err := dir.NewLogFile("my callback")
	require.NoError(t, err)
	defer f2.Close()

	assert.NotEqual(t, f1.Name(), f2.Name())
	assert.Contains(t, filepath.Base(f1.Name()), "my_callback_")
}

func TestCleanRemovesCurrentAndRotatedEntriesOnly(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, ".watchman_tempdir"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, ".watchman_tempdir_1700000000"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "watchman.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "watchman.log.1700000000"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "keepme.txt"), []byte("x"), 0o644))

	require.NoError(t, Clean(base, ".watchman_tempdir", "watchman.log"))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "keepme.txt", entries[0].Name())
}
