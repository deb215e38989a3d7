package safeio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileAllowsAbsoluteUnderRoot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))

	fsys, err := New(dir)
	require.NoError(t, err)

	got, err := fsys.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = fsys.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestRejectsPathsOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0o644))
	root := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	fsys, err := New(root)
	require.NoError(t, err)

	_, err = fsys.ReadFile("../secret")
	require.ErrorContains(t, err, "traversal")
	_, err = fsys.ReadFile(filepath.Join(outside, "secret"))
	require.ErrorContains(t, err, "outside root")
	_, err = fsys.ReadFile(filepath.Join("link", "secret"))
	require.ErrorContains(t, err, "outside root")
	require.Error(t, fsys.WriteFile(filepath.Join("link", "new"), []byte("x"), 0o644))
	_, err = fsys.ReadFile(".")
	require.ErrorContains(t, err, "directory")
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	fsys, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, fsys.WriteFile("lock.txt", []byte("one\n"), 0o644))
	require.NoError(t, fsys.WriteFile("lock.txt", []byte("two\n"), 0o644))

	got, err := os.ReadFile(filepath.Join(dir, "lock.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.Error(t, fsys.WriteFile(".", nil, 0o644))
}

func TestNewRejectsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	_, err := New(p)
	require.Error(t, err)
}
