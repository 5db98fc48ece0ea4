// Package workdir manages the private, per-run working directory that holds
// downloaded archives, unpacked sources and stage logs.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsafeDirectory indicates a directory that other users could read or modify.
var ErrUnsafeDirectory = errors.New("unsafe directory")

// ErrOutsideRoot rejects a path that would leave the tree it is joined to.
var ErrOutsideRoot = errors.New("path escapes its root")

// Dir is a scoped working directory. Close removes it unless Preserve was called.
type Dir struct {
	path string

	mu        sync.Mutex
	preserved bool
	closed    bool
}

// New creates a fresh owner-only directory under parent (os.TempDir when empty).
func New(parent, pattern string) (*Dir, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("creating work root %s: %w", parent, err)
		}
	}
	path, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}
	// MkdirTemp already uses 0700; be explicit in case of an odd umask.
	if err := os.Chmod(path, 0o700); err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("restricting working directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory's absolute path.
func (d *Dir) Path() string {
	return d.path
}

// Join returns a path inside the directory.
func (d *Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Preserve keeps the directory on Close, e.g. so a failed stage's logs stay inspectable.
func (d *Dir) Preserve() {
	d.mu.Lock()
	d.preserved = true
	d.mu.Unlock()
}

// Preserved reports whether Close will leave the directory in place.
func (d *Dir) Preserved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.preserved
}

// Close removes the directory unless it is preserved. It is safe to call more than once.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.preserved {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("removing working directory %s: %w", d.path, err)
	}
	return nil
}

// CheckPrivate verifies that path is a directory only its owner (the
// current user) can access.
func CheckPrivate(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsafeDirectory, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnsafeDirectory, path)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return fmt.Errorf("%w: %s has mode %04o, want owner-only access", ErrUnsafeDirectory, path, perm)
	}
	return checkOwner(path, info)
}

// ValidatePath checks that targetPath, joined onto root, stays inside root
// after symlinks are resolved, and returns the resolved absolute path.
// Archive entries and source overrides both go through it, so a tarball
// member or override target cannot write outside the tree it belongs to.
func ValidatePath(root, targetPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	// The work root may itself sit behind a symlink (/tmp on macOS).
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root symlinks: %w", err)
	}

	candidate := filepath.Clean(filepath.Join(realRoot, targetPath))

	// Entries are usually created after this check, so only the existing
	// part of the path can be resolved.
	resolved, err := resolveExistingPath(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving target path: %w", err)
	}

	// The separator keeps "<root>2" from matching "<root>".
	rootPrefix := realRoot + string(filepath.Separator)
	if resolved != realRoot && !strings.HasPrefix(resolved, rootPrefix) {
		return "", fmt.Errorf("%w: '%s' resolves to '%s', outside '%s'", ErrOutsideRoot, targetPath, resolved, realRoot)
	}
	return resolved, nil
}

// resolveExistingPath resolves symlinks in the longest existing prefix of
// path and appends the rest unchanged.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	if dir == path {
		// Hit the filesystem root with nothing resolvable.
		return path, nil
	}
	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, filepath.Base(path)), nil
}
