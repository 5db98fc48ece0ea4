package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/srcinstall/internal/archive"
	"github.com/bianoble/srcinstall/internal/catalog"
	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/render"
	"github.com/bianoble/srcinstall/internal/source"
	"github.com/bianoble/srcinstall/internal/verify"
	"github.com/bianoble/srcinstall/internal/version"
	"github.com/bianoble/srcinstall/internal/workdir"
)

type stubVerifier struct {
	err       error
	signature string
	data      string
}

func (s *stubVerifier) Verify(_ context.Context, signature, data string) error {
	s.signature, s.data = signature, data
	return s.err
}

func releaseTarball(t *testing.T) []byte {
	t.Helper()
	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	files := []struct{ name, body string }{
		{"zsh-5.9/configure", "#!/bin/sh\n"},
		{"zsh-5.9/Src/zsh.h", "/* zsh */\n"},
	}
	for _, f := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     f.name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(f.body)),
			ModTime:  time.Date(2022, 5, 14, 0, 0, 0, 0, time.UTC),
		}))
		_, err := tw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return gz.Bytes()
}

type archiveFixture struct {
	backend *ArchiveBackend
	pkg     *catalog.Package
	req     FetchRequest
}

func newArchiveFixture(t *testing.T, v verify.Verifier) *archiveFixture {
	t.Helper()
	tarball := releaseTarball(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/zsh-5.9.tar.gz":
			_, _ = w.Write(tarball)
		case "/zsh-5.9.tar.gz.asc":
			_, _ = w.Write([]byte("-----BEGIN PGP SIGNATURE-----\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	wd, err := workdir.New(t.TempDir(), "fetch-")
	require.NoError(t, err)
	t.Cleanup(func() { _ = wd.Close() })

	pkg := &catalog.Package{
		Name:      "zsh",
		Kind:      catalog.KindArchive,
		Repo:      "https://git.example.org/zsh.git",
		TagPrefix: "zsh-",
		Archive: &catalog.Archive{
			URL:             srv.URL + "/zsh-{{.Version}}.tar.gz",
			Signature:       srv.URL + "/zsh-{{.Version}}.tar.gz.asc",
			StripComponents: 1,
		},
	}
	resolved := version.Resolved{Version: "5.9", Tag: "zsh-5.9"}
	return &archiveFixture{
		backend: &ArchiveBackend{
			Acquirer: &source.Acquirer{Client: srv.Client()},
			Verifier: v,
			ListTags: func(_ context.Context, repo string) ([]string, error) {
				if repo != pkg.Repo {
					return nil, errors.New("unexpected repo " + repo)
				}
				return []string{"zsh-5.8", "zsh-5.9"}, nil
			},
		},
		pkg: pkg,
		req: FetchRequest{
			Package:   pkg,
			Resolved:  resolved,
			Vars:      render.Vars{Name: "zsh", Version: "5.9", Tag: "zsh-5.9"},
			WorkDir:   wd.Path(),
			SourceDir: wd.Join("src"),
		},
	}
}

func TestArchiveBackendTags(t *testing.T) {
	f := newArchiveFixture(t, nil)
	tags, err := f.backend.Tags(context.Background(), f.pkg)
	require.NoError(t, err)
	assert.Equal(t, []string{"zsh-5.8", "zsh-5.9"}, tags)

	f.pkg.Repo = "https://elsewhere.example.org/zsh.git"
	_, err = f.backend.Tags(context.Background(), f.pkg)
	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "list tags", srcErr.Operation)
}

func TestArchiveBackendVerifiesThenUnpacks(t *testing.T) {
	v := &stubVerifier{}
	f := newArchiveFixture(t, v)

	fetched, err := f.backend.Fetch(context.Background(), f.req)
	require.NoError(t, err)
	assert.Len(t, fetched.Sources, 2)

	assert.Equal(t, filepath.Join(f.req.WorkDir, "zsh-5.9.tar.gz.asc"), v.signature)
	assert.Equal(t, filepath.Join(f.req.WorkDir, "zsh-5.9.tar.gz"), v.data)

	data, err := os.ReadFile(filepath.Join(f.req.SourceDir, "Src", "zsh.h"))
	require.NoError(t, err)
	assert.Equal(t, "/* zsh */\n", string(data))
	assert.FileExists(t, filepath.Join(f.req.SourceDir, "configure"))
}

func TestArchiveBackendBadSignatureStopsBeforeUnpack(t *testing.T) {
	v := &stubVerifier{err: verify.ErrSignatureInvalid}
	f := newArchiveFixture(t, v)

	_, err := f.backend.Fetch(context.Background(), f.req)
	require.ErrorIs(t, err, verify.ErrSignatureInvalid)
	assert.NoDirExists(t, f.req.SourceDir)
}

func TestArchiveBackendWithoutVerifier(t *testing.T) {
	f := newArchiveFixture(t, nil)

	fetched, err := f.backend.Fetch(context.Background(), f.req)
	require.NoError(t, err)
	assert.Len(t, fetched.Sources, 1)
	assert.NoFileExists(t, filepath.Join(f.req.WorkDir, "zsh-5.9.tar.gz.asc"))
}

func TestArchiveBackendMissingRelease(t *testing.T) {
	f := newArchiveFixture(t, &stubVerifier{})
	f.req.Vars.Version = "6.0"

	_, err := f.backend.Fetch(context.Background(), f.req)
	var dlErr *source.DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.True(t, dlErr.NotFound)
}

func TestArchiveBackendChecksumMismatch(t *testing.T) {
	f := newArchiveFixture(t, &stubVerifier{})
	f.pkg.Checksums = map[string]string{"5.9": "sha256:" + string(bytes.Repeat([]byte("0"), 64))}

	_, err := f.backend.Fetch(context.Background(), f.req)
	assert.ErrorIs(t, err, verify.ErrChecksumMismatch)
}

func TestArchiveBackendCorruptArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not a tarball"))
	}))
	t.Cleanup(srv.Close)
	f := newArchiveFixture(t, nil)
	f.backend.Acquirer.Client = srv.Client()
	f.pkg.Archive.URL = srv.URL + "/zsh-{{.Version}}.tar.gz"
	f.pkg.Archive.Signature = ""

	_, err := f.backend.Fetch(context.Background(), f.req)
	require.ErrorIs(t, err, archive.ErrUnpackFailed)
}

func TestGitBackendTagsAndFetch(t *testing.T) {
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(upstream, "configure"), []byte("#!/bin/sh\n"), 0o755))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("configure")
	require.NoError(t, err)
	sig := &object.Signature{Name: "Release Bot", Email: "release@example.org", When: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	hash, err := wt.Commit("3.4", &git.CommitOptions{Author: sig})
	require.NoError(t, err)
	_, err = repo.CreateTag("3.4", hash, nil)
	require.NoError(t, err)

	b := &GitBackend{MirrorRoot: t.TempDir()}
	pkg := &catalog.Package{Name: "tmux", Kind: catalog.KindGit, Repo: upstream}

	tags, err := b.Tags(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, []string{"3.4"}, tags)
	assert.DirExists(t, filepath.Join(b.MirrorRoot, "tmux.git"))

	src := filepath.Join(t.TempDir(), "src")
	fetched, err := b.Fetch(context.Background(), FetchRequest{
		Package:   pkg,
		Resolved:  version.Resolved{Version: "3.4", Tag: "3.4"},
		SourceDir: src,
	})
	require.NoError(t, err)
	assert.Equal(t, hash.String(), fetched.Commit)
	assert.FileExists(t, filepath.Join(src, "configure"))
}

func TestGitBackendSyncFailure(t *testing.T) {
	b := &GitBackend{MirrorRoot: t.TempDir()}
	pkg := &catalog.Package{Name: "nope", Kind: catalog.KindGit, Repo: filepath.Join(t.TempDir(), "missing")}

	_, err := b.Tags(context.Background(), pkg)
	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "sync", srcErr.Operation)
	assert.Contains(t, err.Error(), "check the repo URL")
}

func TestVerifierFor(t *testing.T) {
	cfg := &config.Config{GPGBinary: "gpg2"}
	assert.Equal(t, &verify.GPG{Binary: "gpg2"}, VerifierFor(cfg))

	cfg.Keyring = "/etc/srcinstall/trusted.gpg"
	assert.Equal(t, &verify.Keyring{Path: "/etc/srcinstall/trusted.gpg"}, VerifierFor(cfg))

	cfg.SkipSignature = true
	assert.Nil(t, VerifierFor(cfg))
}

func TestNewRegistersBuiltinKinds(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDir = filepath.Join(t.TempDir(), "downloads")
	cfg.MirrorDir = filepath.Join(t.TempDir(), "mirrors")
	cat, err := catalog.Builtin()
	require.NoError(t, err)

	in, err := New(cat, cfg, nil)
	require.NoError(t, err)
	for _, kind := range []string{catalog.KindGit, catalog.KindArchive} {
		_, err := in.Registry.Get(kind)
		assert.NoError(t, err, kind)
	}
	assert.DirExists(t, filepath.Join(cfg.CacheDir, "objects"))
}
