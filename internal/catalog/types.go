package catalog

import (
	"fmt"
	"regexp"

	"github.com/bianoble/srcinstall/internal/render"
	"github.com/bianoble/srcinstall/internal/version"
)

// Package kinds.
const (
	KindGit     = "git"
	KindArchive = "archive"
)

// Catalog is the contents of a catalog.yaml file.
type Catalog struct {
	Version   int               `yaml:"version"`
	Variables map[string]string `yaml:"variables,omitempty"`
	Packages  []Package         `yaml:"packages"`
}

// Package describes how to fetch and build one piece of software.
type Package struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "git" or "archive"

	// Repo is the upstream repository; its tags are the version list for
	// both kinds.
	Repo      string `yaml:"repo"`
	TagPrefix string `yaml:"tag_prefix,omitempty"`
	Exclude   string `yaml:"exclude,omitempty"`

	Archive   *Archive          `yaml:"archive,omitempty"`
	Checksums map[string]string `yaml:"checksums,omitempty"`

	// Binary is the install-relative path whose presence means the
	// version is installed, e.g. "bin/git".
	Binary string `yaml:"binary"`

	Env       map[string]string `yaml:"env,omitempty"`
	Configure []string          `yaml:"configure,omitempty"`
	Compile   []string          `yaml:"compile,omitempty"`
	Test      []string          `yaml:"test,omitempty"`
	Install   []string          `yaml:"install"`

	Overrides []render.Override `yaml:"overrides,omitempty"`

	// Dir is where the declaring catalog lives; override files resolve
	// against it. Empty for built-in packages.
	Dir string `yaml:"-"`
}

// Archive locates a release tarball. URL and Signature are templates.
type Archive struct {
	URL             string `yaml:"url"`
	Signature       string `yaml:"signature,omitempty"`
	StripComponents int    `yaml:"strip_components,omitempty"`
}

// VersionOptions builds the resolver options for the package.
func (p *Package) VersionOptions() (version.Options, error) {
	opts := version.Options{Prefix: p.TagPrefix}
	if p.Exclude != "" {
		re, err := regexp.Compile(p.Exclude)
		if err != nil {
			return opts, fmt.Errorf("package '%s': invalid exclude pattern: %w", p.Name, err)
		}
		opts.Exclude = re
	}
	return opts, nil
}

// Checksum returns the pinned checksum for ver, if any.
func (p *Package) Checksum(ver string) (string, bool) {
	c, ok := p.Checksums[ver]
	return c, ok
}
