// Package diskcache stores downloaded archives on the local filesystem.
// A cache entry is valid if its file exists; content is never verified.
package diskcache

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/drought-map/internal/domain"
)

// Cache is a flat archive store rooted at a cache directory. Archives live
// under <root>/zip/ named by their remote basename.
type Cache struct {
	root   string
	logger *slog.Logger
}

// New creates a Cache rooted at dir. The directory tree is created lazily
// on first Store.
func New(dir string, logger *slog.Logger) *Cache {
	return &Cache{root: dir, logger: logger}
}

// ArchivePath returns the cache path an archive of the given name maps to,
// whether or not it exists yet.
func (c *Cache) ArchivePath(name string) string {
	return filepath.Join(c.root, "zip", name)
}

// Exists reports whether an archive is already cached. Existence is the only
// validity check: a truncated file from an interrupted download is treated
// as a hit.
func (c *Cache) Exists(name string) bool {
	info, err := os.Stat(c.ArchivePath(name))
	return err == nil && !info.IsDir()
}

// Store writes the reader's content to the archive's cache path, creating
// directories as needed, and returns the path.
//
// The write goes straight to the final path. A failure mid-copy leaves a
// truncated file that later lookups treat as valid.
// TODO: write to a temp file and rename once it's decided whether
// existence-only validation is a contract or an accident.
func (c *Cache) Store(name string, r io.Reader) (string, error) {
	path := c.ArchivePath(name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &domain.StorageError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", &domain.StorageError{Op: "create", Path: path, Err: err}
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return "", &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &domain.StorageError{Op: "close", Path: path, Err: err}
	}

	c.logger.Debug("cached archive", "path", path, "bytes", n)
	return path, nil
}
