package diskcache

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	return New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCache_ArchivePathLayout(t *testing.T) {
	c := New("/data/cache", slog.Default())
	assert.Equal(t, filepath.Join("/data/cache", "zip", "USDM_20140624_M.zip"), c.ArchivePath("USDM_20140624_M.zip"))
}

func TestCache_StoreAndExists(t *testing.T) {
	c := testCache(t)
	content := []byte("zip bytes go here")

	assert.False(t, c.Exists("USDM_20140624_M.zip"))

	path, err := c.Store("USDM_20140624_M.zip", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, c.ArchivePath("USDM_20140624_M.zip"), path)
	assert.True(t, c.Exists("USDM_20140624_M.zip"))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got, "stored content must match byte-for-byte")
}

func TestCache_StoreCreatesDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "nested", "cache")
	c := New(root, slog.Default())

	path, err := c.Store("a.zip", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Storing again over an existing tree is idempotent.
	_, err = c.Store("a.zip", bytes.NewReader([]byte("y")))
	require.NoError(t, err)
}

func TestCache_StoreOverwrites(t *testing.T) {
	c := testCache(t)

	_, err := c.Store("a.zip", bytes.NewReader([]byte("old")))
	require.NoError(t, err)
	path, err := c.Store("a.zip", bytes.NewReader([]byte("new")))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestCache_ExistsIgnoresDirectories(t *testing.T) {
	c := testCache(t)
	require.NoError(t, os.MkdirAll(c.ArchivePath("dir.zip"), 0o755))
	assert.False(t, c.Exists("dir.zip"))
}
