// Package installtree manages version-isolated install directories and the
// "default" alias that selects one of them.
package installtree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/srcinstall/internal/version"
)

// ErrAlreadyInstalled reports that a version's directory already has
// content. It is informational; callers decide whether to rebuild.
var ErrAlreadyInstalled = errors.New("already installed")

// ErrInvalidVersion rejects version names that are not a single directory
// entry of the tree.
var ErrInvalidVersion = errors.New("invalid install version")

// BuildDir holds preserved logs and the receipt inside an install.
const BuildDir = ".build"

// AliasName is the symlink that selects the active version.
const AliasName = "default"

// Tree is the per-package base directory, <root>/<name>.
type Tree struct {
	Base string
}

// Dir returns <base>/<version>.
func (t *Tree) Dir(ver string) string {
	return filepath.Join(t.Base, ver)
}

// Prepare returns the install directory for ver, creating it if absent.
// A directory that exists and is non-empty is returned along with
// ErrAlreadyInstalled.
func (t *Tree) Prepare(ver string) (string, error) {
	if err := validVersion(ver); err != nil {
		return "", err
	}
	dir := t.Dir(ver)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating install directory: %w", err)
	}
	empty, err := isEmpty(dir)
	if err != nil {
		return "", err
	}
	if !empty {
		return dir, fmt.Errorf("%w: %s", ErrAlreadyInstalled, dir)
	}
	return dir, nil
}

// HasBinary reports whether the install for ver contains binary, a path
// relative to the install root such as "bin/git".
func (t *Tree) HasBinary(ver, binary string) bool {
	if binary == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(t.Dir(ver), filepath.FromSlash(binary)))
	return err == nil && !info.IsDir()
}

// Installed lists the installed versions in ascending version order.
func (t *Tree) Installed() ([]string, error) {
	entries, err := os.ReadDir(t.Base)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.Base, err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || name == AliasName || strings.HasPrefix(name, ".") {
			continue
		}
		versions = append(versions, name)
	}
	version.Sort(versions, "")
	return versions, nil
}

// Default returns the version the alias points to. The link target is
// reported unmodified, so an alias that leaves the base (set by hand, or
// by an older tool writing absolute links) shows up as a path rather than
// passing for a version.
func (t *Tree) Default() (string, error) {
	return os.Readlink(filepath.Join(t.Base, AliasName))
}

// validVersion rejects names that cannot be a version directory directly
// under the base: the alias itself, hidden entries, and anything that
// would leave the base.
func validVersion(ver string) error {
	if ver == "" || ver == AliasName || strings.HasPrefix(ver, ".") || strings.ContainsAny(ver, `/\`) {
		return fmt.Errorf("%w '%s'", ErrInvalidVersion, ver)
	}
	return nil
}

func isEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
