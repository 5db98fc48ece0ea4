// Package version maps a user-supplied version token to a concrete,
// verifiable source tag.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Latest is the version token that selects the newest available tag.
const Latest = "latest"

var (
	// ErrInvalidVersion indicates an explicit version that is not a dotted numeric string.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrNoTagsFound indicates that no tag survived filtering while resolving "latest".
	ErrNoTagsFound = errors.New("no tags found")

	// ErrTagNotFound indicates that the tag for an explicit version does not exist.
	ErrTagNotFound = errors.New("tag not found")
)

var numericVersion = regexp.MustCompile(`^[0-9][0-9A-Za-z._+-]*$`)

// Options controls how tags are filtered and constructed.
type Options struct {
	// Prefix is prepended to explicit versions to form the tag and is
	// required on every candidate tag when resolving "latest" (commonly "v").
	Prefix string

	// Exclude drops matching tags before selecting "latest" (e.g. "-rc|-beta").
	// Explicit versions are never filtered.
	Exclude *regexp.Regexp
}

// Resolved is a concrete version plus the exact tag it came from.
type Resolved struct {
	Version string
	Tag     string
}

func (r Resolved) String() string {
	if r.Tag == r.Version {
		return r.Version
	}
	return fmt.Sprintf("%s (tag %s)", r.Version, r.Tag)
}

// Resolve turns spec into a Resolved version using tags as the source of
// truth. It has no side effects.
func Resolve(spec string, tags []string, opts Options) (Resolved, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == Latest {
		return resolveLatest(tags, opts)
	}
	return resolveExplicit(spec, tags, opts)
}

func resolveLatest(tags []string, opts Options) (Resolved, error) {
	var best string
	found := false
	for _, tag := range Filter(tags, opts) {
		if !found || Compare(trim(tag, opts.Prefix), trim(best, opts.Prefix)) > 0 {
			best = tag
			found = true
		}
	}
	if !found {
		return Resolved{}, fmt.Errorf("%w: no tag matches prefix %q", ErrNoTagsFound, opts.Prefix)
	}
	return Resolved{Version: trim(best, opts.Prefix), Tag: best}, nil
}

func resolveExplicit(spec string, tags []string, opts Options) (Resolved, error) {
	if !numericVersion.MatchString(spec) {
		return Resolved{}, fmt.Errorf("%w: %q must be %q or start with a digit", ErrInvalidVersion, spec, Latest)
	}
	tag := opts.Prefix + spec
	for _, t := range tags {
		if t == tag {
			return Resolved{Version: spec, Tag: tag}, nil
		}
	}
	return Resolved{}, fmt.Errorf("%w: %s", ErrTagNotFound, tag)
}

// Filter returns the tags that are candidates for "latest": not excluded,
// carrying the prefix, and starting with a digit after it.
func Filter(tags []string, opts Options) []string {
	var out []string
	for _, tag := range tags {
		if opts.Exclude != nil && opts.Exclude.MatchString(tag) {
			continue
		}
		rest, ok := strings.CutPrefix(tag, opts.Prefix)
		if !ok || rest == "" || rest[0] < '0' || rest[0] > '9' {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func trim(tag, prefix string) string {
	return strings.TrimPrefix(tag, prefix)
}
