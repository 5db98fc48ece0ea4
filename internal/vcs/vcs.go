// Package vcs keeps local mirrors of upstream git repositories and exports
// tagged trees from them.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/bianoble/srcinstall/internal/version"
)

// Mirror is a bare clone of an upstream repository.
type Mirror struct {
	URL  string
	Dir  string
	Auth transport.AuthMethod
}

// NewMirror returns a mirror of url kept in dir, with credentials picked
// from the environment.
func NewMirror(url, dir string) *Mirror {
	return &Mirror{URL: url, Dir: dir, Auth: TokenAuth(url)}
}

// Sync clones the mirror if it does not exist yet, otherwise fetches all
// branches and tags.
func (m *Mirror) Sync(ctx context.Context) error {
	repo, err := git.PlainOpen(m.Dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(filepath.Dir(m.Dir), 0o755); err != nil {
			return fmt.Errorf("creating mirror parent: %w", err)
		}
		_, err = git.PlainCloneContext(ctx, m.Dir, true, &git.CloneOptions{
			URL:  m.URL,
			Auth: m.Auth,
			Tags: git.AllTags,
		})
		if err != nil {
			_ = os.RemoveAll(m.Dir)
			return fmt.Errorf("cloning %s: %w", m.URL, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening mirror %s: %w", m.Dir, err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		Auth:     m.Auth,
		Tags:     git.AllTags,
		Force:    true,
		RefSpecs: []config.RefSpec{"+refs/heads/*:refs/heads/*"},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching %s: %w", m.URL, err)
	}
	return nil
}

// Tags returns the mirror's tag names in ascending version order.
func (m *Mirror) Tags(_ context.Context) ([]string, error) {
	repo, err := git.PlainOpen(m.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening mirror %s: %w", m.Dir, err)
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	version.Sort(tags, "")
	return tags, nil
}

// Export writes the tree at tag into dest, which must not exist or be
// empty, and returns the commit hash. Submodules are not exported.
func (m *Mirror) Export(ctx context.Context, tag, dest string) (string, error) {
	repo, err := git.PlainOpen(m.Dir)
	if err != nil {
		return "", fmt.Errorf("opening mirror %s: %w", m.Dir, err)
	}
	commit, err := tagCommit(repo, tag)
	if err != nil {
		return "", err
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", fmt.Errorf("reading tree of %s: %w", tag, err)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return writeEntry(dest, f)
	})
	if err != nil {
		return "", fmt.Errorf("exporting %s: %w", tag, err)
	}
	return commit.Hash.String(), nil
}

func tagCommit(repo *git.Repository, tag string) (*object.Commit, error) {
	ref, err := repo.Tag(tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", version.ErrTagNotFound, tag)
	}

	// Annotated tags point at a tag object; lightweight tags at the commit.
	if obj, err := repo.TagObject(ref.Hash()); err == nil {
		return obj.Commit()
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", tag, err)
	}
	return commit, nil
}

func writeEntry(dest string, f *object.File) error {
	target := filepath.Join(dest, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(filepath.Separator)) {
		return fmt.Errorf("entry '%s' escapes the destination", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	if f.Mode == filemode.Symlink {
		linkname, err := f.Contents()
		if err != nil {
			return err
		}
		return os.Symlink(linkname, target)
	}

	perm := os.FileMode(0o644)
	if f.Mode == filemode.Executable {
		perm = 0o755
	}
	r, err := f.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ListRemoteTags lists the tags advertised by url without cloning it.
func ListRemoteTags(ctx context.Context, url string, auth transport.AuthMethod) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: auth})
	if err != nil {
		return nil, fmt.Errorf("listing remote refs of %s: %w", url, err)
	}

	var tags []string
	for _, ref := range refs {
		if ref.Name().IsTag() {
			tags = append(tags, ref.Name().Short())
		}
	}
	version.Sort(tags, "")
	return tags, nil
}

// TokenAuth returns HTTP basic auth from GITHUB_TOKEN or GIT_TOKEN for
// http(s) URLs, or nil.
func TokenAuth(url string) transport.AuthMethod {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "git", Password: token}
	}
	return nil
}
