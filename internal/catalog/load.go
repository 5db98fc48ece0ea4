// Package catalog loads the package descriptors that parameterize the
// build pipeline.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/srcinstall/internal/render"
	"github.com/bianoble/srcinstall/internal/verify"
)

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cat, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates catalog data. dir is recorded on every
// package for override resolution.
func Parse(data []byte, dir string) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	for i := range cat.Packages {
		cat.Packages[i].Dir = dir
	}
	if errs := Validate(&cat); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &cat, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Catalog for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cat *Catalog) []string {
	var errs []string

	if cat.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cat.Version))
	}

	names := make(map[string]bool)
	for i, pkg := range cat.Packages {
		prefix := fmt.Sprintf("package[%d]", i)
		if pkg.Name != "" {
			prefix = fmt.Sprintf("package '%s'", pkg.Name)
		}

		switch {
		case pkg.Name == "":
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		case strings.ContainsAny(pkg.Name, `/\`) || strings.HasPrefix(pkg.Name, "."):
			errs = append(errs, fmt.Sprintf("%s: name must be a single path element", prefix))
		case names[pkg.Name]:
			errs = append(errs, fmt.Sprintf("%s: duplicate package name '%s'", prefix, pkg.Name))
		default:
			names[pkg.Name] = true
		}

		errs = append(errs, validatePackage(pkg, prefix)...)
	}

	return errs
}

func validatePackage(pkg Package, prefix string) []string {
	var errs []string

	if pkg.Repo == "" {
		errs = append(errs, fmt.Sprintf("%s: 'repo' is required — versions are resolved from its tags", prefix))
	}

	switch pkg.Kind {
	case KindGit:
		if pkg.Archive != nil {
			errs = append(errs, fmt.Sprintf("%s: 'archive' is only valid for kind 'archive'", prefix))
		}
	case KindArchive:
		if pkg.Archive == nil || pkg.Archive.URL == "" {
			errs = append(errs, fmt.Sprintf("%s: kind 'archive' requires 'archive.url' — add 'archive: {url: https://...}'", prefix))
		} else if pkg.Archive.StripComponents < 0 {
			errs = append(errs, fmt.Sprintf("%s: 'archive.strip_components' must be >= 0", prefix))
		}
	case "":
		errs = append(errs, fmt.Sprintf("%s: 'kind' is required — must be one of: git, archive", prefix))
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown kind '%s' — must be one of: git, archive", prefix, pkg.Kind))
	}

	if pkg.Exclude != "" {
		if _, err := regexp.Compile(pkg.Exclude); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid 'exclude' pattern: %v", prefix, err))
		}
	}

	for ver, sum := range pkg.Checksums {
		if _, err := verify.ParseChecksum(sum); err != nil {
			errs = append(errs, fmt.Sprintf("%s: checksum for %s: %v", prefix, ver, err))
		}
	}

	if pkg.Binary == "" {
		errs = append(errs, fmt.Sprintf("%s: 'binary' is required — the install-relative path that marks a finished install", prefix))
	} else if filepath.IsAbs(pkg.Binary) || strings.HasPrefix(filepath.Clean(pkg.Binary), "..") {
		errs = append(errs, fmt.Sprintf("%s: 'binary' must be relative to the install root", prefix))
	}

	if len(pkg.Install) == 0 {
		errs = append(errs, fmt.Sprintf("%s: 'install' is required", prefix))
	}

	for i, ov := range pkg.Overrides {
		ovPrefix := fmt.Sprintf("%s: override[%d]", prefix, i)
		if ov.Target != "" {
			ovPrefix = fmt.Sprintf("%s: override for '%s'", prefix, ov.Target)
		}
		if ov.Target == "" {
			errs = append(errs, fmt.Sprintf("%s: 'target' is required", ovPrefix))
		}
		if ov.File == "" {
			errs = append(errs, fmt.Sprintf("%s: 'file' is required", ovPrefix))
		}
		switch ov.Strategy {
		case render.StrategyAppend, render.StrategyPrepend, render.StrategyReplace:
			// valid
		case "":
			errs = append(errs, fmt.Sprintf("%s: 'strategy' is required — must be one of: append, prepend, replace", ovPrefix))
		default:
			errs = append(errs, fmt.Sprintf("%s: invalid strategy '%s' — must be one of: append, prepend, replace", ovPrefix, ov.Strategy))
		}
	}

	return errs
}
