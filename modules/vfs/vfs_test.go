package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundVFS(t *testing.T) {
	fs := NewVFS(t.TempDir())
	require.NoError(t, fs.Write("a/b/file.txt", "hello"))
	content, err := fs.Read("a/b/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	n, err := fs.Copy("a/b/copy.txt", "a/b/file.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.True(t, fs.Exists("a/b/copy.txt"))

	require.NoError(t, fs.Remove("a/b/file.txt"))
	assert.False(t, fs.Exists("a/b/file.txt"))

	entries, err := fs.ReadDir("a/b")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBoundVFSRejectsEscapes(t *testing.T) {
	fs := NewVFS(t.TempDir())
	_, err := fs.Read("../outside")
	assert.Error(t, err)
	assert.Error(t, fs.Write("../../etc/passwd", "nope"))
}
