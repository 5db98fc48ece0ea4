package installtree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// AliasPolicy controls the three ways the default alias may change. Each
// flag is independent.
type AliasPolicy struct {
	// Create the alias when nothing exists at its path.
	Create bool
	// UpdateSymlink repoints an existing symlink.
	UpdateSymlink bool
	// UpdateNonSymlink replaces a regular file or empty directory.
	UpdateNonSymlink bool
}

// DefaultAliasPolicy creates and updates freely.
func DefaultAliasPolicy() AliasPolicy {
	return AliasPolicy{Create: true, UpdateSymlink: true, UpdateNonSymlink: true}
}

// AliasAction is what AddDefaultSymlink did.
type AliasAction string

const (
	AliasCreated   AliasAction = "created"
	AliasUpdated   AliasAction = "updated"
	AliasUnchanged AliasAction = "unchanged" // already pointed at the version
	AliasKept      AliasAction = "kept"      // policy forbade the change
)

// AddDefaultSymlink points <base>/default at ver, subject to policy. The
// link is relative so the tree can be relocated, and it is swapped in with
// a rename so readers never observe it missing.
func (t *Tree) AddDefaultSymlink(ver string, policy AliasPolicy) (AliasAction, error) {
	if err := validVersion(ver); err != nil {
		return "", err
	}
	if _, err := os.Stat(t.Dir(ver)); err != nil {
		return "", fmt.Errorf("cannot alias missing install %s: %w", t.Dir(ver), err)
	}
	alias := filepath.Join(t.Base, AliasName)

	info, err := os.Lstat(alias)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !policy.Create {
			return AliasKept, nil
		}
		if err := swapLink(alias, ver); err != nil {
			return "", err
		}
		return AliasCreated, nil

	case err != nil:
		return "", fmt.Errorf("inspecting %s: %w", alias, err)

	case info.Mode()&os.ModeSymlink != 0:
		if current, err := os.Readlink(alias); err == nil && current == ver {
			return AliasUnchanged, nil
		}
		if !policy.UpdateSymlink {
			return AliasKept, nil
		}
		if err := swapLink(alias, ver); err != nil {
			return "", err
		}
		return AliasUpdated, nil

	default:
		if !policy.UpdateNonSymlink {
			return AliasKept, nil
		}
		// os.Remove refuses non-empty directories, which is the point.
		if err := os.Remove(alias); err != nil {
			return "", fmt.Errorf("replacing %s: %w", alias, err)
		}
		if err := swapLink(alias, ver); err != nil {
			return "", err
		}
		return AliasUpdated, nil
	}
}

func swapLink(alias, target string) error {
	tmp := filepath.Join(filepath.Dir(alias), "."+AliasName+".tmp-"+strconv.Itoa(os.Getpid()))
	_ = os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("creating alias: %w", err)
	}
	if err := os.Rename(tmp, alias); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("installing alias: %w", err)
	}
	return nil
}
