// Package cache stores downloaded archives by their SHA256 digest so that
// pinned artifacts are fetched once and verified on every reuse.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Cache is a content-addressed file store rooted at a directory.
type Cache struct {
	dir string
}

// New creates a Cache at dir, creating the object directory if needed.
func New(dir string) (*Cache, error) {
	objDir := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", objDir, err)
	}
	return &Cache{dir: dir}, nil
}

// CopyTo writes the object with the given digest to dest.
// It returns false when the object is not cached. A cached object whose
// content no longer matches its digest is removed and reported as a miss.
func (c *Cache) CopyTo(digest, dest string) (bool, error) {
	src := c.objectPath(digest)
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening cache entry %s: %w", digest, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", dest, err)
	}

	h := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(out, h), in)
	closeErr := out.Close()
	if copyErr != nil {
		return false, fmt.Errorf("copying cache entry %s: %w", digest, copyErr)
	}
	if closeErr != nil {
		return false, fmt.Errorf("closing %s: %w", dest, closeErr)
	}

	if hex.EncodeToString(h.Sum(nil)) != digest {
		_ = os.Remove(src)
		_ = os.Remove(dest)
		return false, nil
	}
	return true, nil
}

// PutFile stores the file at path under digest after checking that its
// content matches. Existing objects are left untouched.
func (c *Cache) PutFile(digest, path string) error {
	actual, err := HashFile(path)
	if err != nil {
		return err
	}
	if actual != digest {
		return fmt.Errorf("cache put: content hash %s does not match declared hash %s", actual, digest)
	}

	dst := c.objectPath(digest)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	if _, err := io.Copy(tmp, in); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("renaming cache temp file: %w", err)
	}

	success = true
	return nil
}

// Has reports whether an object exists without verifying it.
func (c *Cache) Has(digest string) bool {
	_, err := os.Stat(c.objectPath(digest))
	return err == nil
}

// Size returns the total size of the cache in bytes.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Path returns the cache directory.
func (c *Cache) Path() string {
	return c.dir
}

func (c *Cache) objectPath(digest string) string {
	if len(digest) < 2 {
		return filepath.Join(c.dir, "objects", digest)
	}
	return filepath.Join(c.dir, "objects", digest[:2], digest)
}

// HashFile returns the hex SHA256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
