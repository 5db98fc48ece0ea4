package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bianoble/srcinstall/internal/archive"
	"github.com/bianoble/srcinstall/internal/catalog"
	"github.com/bianoble/srcinstall/internal/render"
	"github.com/bianoble/srcinstall/internal/source"
	"github.com/bianoble/srcinstall/internal/vcs"
	"github.com/bianoble/srcinstall/internal/verify"
	"github.com/bianoble/srcinstall/internal/version"
)

// TagSource lists the tags a package's versions are resolved against.
type TagSource interface {
	Tags(ctx context.Context, pkg *catalog.Package) ([]string, error)
}

// SourceFetcher places the sources for a resolved version in a working
// directory.
type SourceFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*Fetched, error)
}

// Backend handles one package kind.
type Backend interface {
	TagSource
	SourceFetcher
}

// FetchRequest describes what to fetch and where.
type FetchRequest struct {
	Package  *catalog.Package
	Resolved version.Resolved
	Vars     render.Vars

	// WorkDir receives downloads; SourceDir receives the source tree.
	WorkDir   string
	SourceDir string
}

// Fetched records where the sources came from.
type Fetched struct {
	Sources []string
	Commit  string // git only
}

// Registry maps package kinds to backends.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds the backend for kind.
func (r *Registry) Register(kind string, b Backend) {
	r.backends[kind] = b
}

// Get returns the backend for kind.
func (r *Registry) Get(kind string) (Backend, error) {
	b, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("unknown package kind '%s' — supported kinds: %s", kind, r.kinds())
	}
	return b, nil
}

func (r *Registry) kinds() string {
	kinds := make([]string, 0, len(r.backends))
	for k := range r.backends {
		kinds = append(kinds, k)
	}
	if len(kinds) == 0 {
		return "(none registered)"
	}
	sort.Strings(kinds)
	return strings.Join(kinds, ", ")
}

// GitBackend builds from a local mirror of the package repository.
type GitBackend struct {
	MirrorRoot string
}

func (g *GitBackend) mirror(pkg *catalog.Package) *vcs.Mirror {
	return vcs.NewMirror(pkg.Repo, filepath.Join(g.MirrorRoot, pkg.Name+".git"))
}

// Tags brings the mirror up to date and lists its tags.
func (g *GitBackend) Tags(ctx context.Context, pkg *catalog.Package) ([]string, error) {
	m := g.mirror(pkg)
	if err := m.Sync(ctx); err != nil {
		return nil, &SourceError{Package: pkg.Name, Operation: "sync", Err: err, Hint: "check the repo URL and network access"}
	}
	return m.Tags(ctx)
}

// Fetch exports the resolved tag from the mirror.
func (g *GitBackend) Fetch(ctx context.Context, req FetchRequest) (*Fetched, error) {
	commit, err := g.mirror(req.Package).Export(ctx, req.Resolved.Tag, req.SourceDir)
	if err != nil {
		return nil, err
	}
	return &Fetched{Sources: []string{req.Package.Repo + "@" + req.Resolved.Tag}, Commit: commit}, nil
}

// ArchiveBackend builds from a release tarball. Versions still come from
// the repository's tags, listed remotely without a clone.
type ArchiveBackend struct {
	Acquirer *source.Acquirer

	// Verifier checks archive signatures; nil skips verification.
	Verifier verify.Verifier

	// ListTags defaults to vcs.ListRemoteTags.
	ListTags func(ctx context.Context, repo string) ([]string, error)

	Logger *log.Logger
}

// Tags lists the repository's tags.
func (a *ArchiveBackend) Tags(ctx context.Context, pkg *catalog.Package) ([]string, error) {
	list := a.ListTags
	if list == nil {
		list = func(ctx context.Context, repo string) ([]string, error) {
			return vcs.ListRemoteTags(ctx, repo, vcs.TokenAuth(repo))
		}
	}
	tags, err := list(ctx, pkg.Repo)
	if err != nil {
		return nil, &SourceError{Package: pkg.Name, Operation: "list tags", Err: err, Hint: "check the repo URL and network access"}
	}
	return tags, nil
}

// Fetch downloads, verifies and unpacks the release archive.
func (a *ArchiveBackend) Fetch(ctx context.Context, req FetchRequest) (*Fetched, error) {
	pkg := req.Package
	if pkg.Archive == nil {
		return nil, fmt.Errorf("package '%s' has no archive", pkg.Name)
	}
	url, err := render.Render(pkg.Archive.URL, req.Vars)
	if err != nil {
		return nil, fmt.Errorf("archive url: %w", err)
	}

	var archivePath string
	if checksum, ok := pkg.Checksum(req.Resolved.Version); ok {
		archivePath, err = a.Acquirer.FetchPinned(ctx, req.WorkDir, url, checksum)
	} else {
		var paths []string
		paths, err = a.Acquirer.Fetch(ctx, req.WorkDir, url)
		if len(paths) > 0 {
			archivePath = paths[0]
		}
	}
	if err != nil {
		return nil, err
	}
	fetched := &Fetched{Sources: []string{url}}

	if pkg.Archive.Signature != "" {
		sigURL, err := render.Render(pkg.Archive.Signature, req.Vars)
		if err != nil {
			return nil, fmt.Errorf("signature url: %w", err)
		}
		if a.Verifier == nil {
			a.logger().Warn("skipping signature verification", "package", pkg.Name, "signature", sigURL)
		} else {
			paths, err := a.Acquirer.Fetch(ctx, req.WorkDir, sigURL)
			if err != nil {
				return nil, err
			}
			if err := a.Verifier.Verify(ctx, paths[0], archivePath); err != nil {
				return nil, err
			}
			a.logger().Info("signature verified", "file", filepath.Base(archivePath))
			fetched.Sources = append(fetched.Sources, sigURL)
		}
	}

	if err := archive.Unpack(archivePath, req.SourceDir, archive.Options{StripComponents: pkg.Archive.StripComponents}); err != nil {
		return nil, err
	}
	return fetched, nil
}

func (a *ArchiveBackend) logger() *log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.Default()
}
