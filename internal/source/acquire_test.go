package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/srcinstall/internal/cache"
	"github.com/bianoble/srcinstall/internal/verify"
	"github.com/bianoble/srcinstall/internal/workdir"
)

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func quietLogger() *log.Logger {
	l := log.New(os.Stderr)
	l.SetLevel(log.ErrorLevel)
	return l
}

func fileServer(t *testing.T, files map[string]string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFileName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.python.org/ftp/python/3.12.1/Python-3.12.1.tar.xz", "Python-3.12.1.tar.xz"},
		{"https://sourceforge.net/projects/zsh/files/zsh-5.9.tar.xz?download=1&r=x", "zsh-5.9.tar.xz"},
		{"https://example.org/a/b.tar.gz#frag", "b.tar.gz"},
	}
	for _, tt := range tests {
		got, err := FileName(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got)
	}

	_, err := FileName("https://example.org/")
	assert.Error(t, err)
}

func TestFetchDownloadsAll(t *testing.T) {
	srv := fileServer(t, map[string]string{
		"/pkg-1.0.tar.gz":     "archive",
		"/pkg-1.0.tar.gz.asc": "signature",
	}, nil)
	dir := t.TempDir()

	a := &Acquirer{Logger: quietLogger()}
	paths, err := a.Fetch(context.Background(), dir,
		srv.URL+"/pkg-1.0.tar.gz?mirror=1",
		srv.URL+"/pkg-1.0.tar.gz.asc",
	)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "pkg-1.0.tar.gz"), paths[0])

	got, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "signature", string(got))
}

func TestFetchStopsAtFirstFailure(t *testing.T) {
	var hits int32
	srv := fileServer(t, map[string]string{"/b.tar.gz": "b"}, &hits)
	dir := t.TempDir()

	a := &Acquirer{Logger: quietLogger()}
	_, err := a.Fetch(context.Background(), dir, srv.URL+"/missing.tar.gz", srv.URL+"/b.tar.gz")
	require.ErrorIs(t, err, ErrDownloadFailed)

	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.True(t, dlErr.NotFound)
	assert.Equal(t, http.StatusNotFound, dlErr.StatusCode)
	assert.Contains(t, err.Error(), "/missing.tar.gz")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, statErr := os.Stat(filepath.Join(dir, "b.tar.gz"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/x.tar.gz"
	srv.Close()

	a := &Acquirer{Logger: quietLogger()}
	_, err := a.Fetch(context.Background(), t.TempDir(), url)
	require.ErrorIs(t, err, ErrDownloadFailed)

	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.False(t, dlErr.NotFound)
	assert.Zero(t, dlErr.StatusCode)
}

func TestFetchRejectsUnsafeDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "open")
	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.Chmod(dir, 0o777))

	a := &Acquirer{Logger: quietLogger()}
	_, err := a.Fetch(context.Background(), dir, "http://127.0.0.1:1/x.tar.gz")
	assert.ErrorIs(t, err, workdir.ErrUnsafeDirectory)
}

func TestFetchPinnedUsesCache(t *testing.T) {
	content := "pinned archive"
	var hits int32
	srv := fileServer(t, map[string]string{"/nghttp2-1.60.0.tar.xz": content}, &hits)

	c, err := cache.New(t.TempDir())
	require.NoError(t, err)
	a := &Acquirer{Cache: c, Logger: quietLogger()}
	checksum := "sha256:" + sha256Hex([]byte(content))

	first, err := a.FetchPinned(context.Background(), t.TempDir(), srv.URL+"/nghttp2-1.60.0.tar.xz", checksum)
	require.NoError(t, err)
	assert.Equal(t, "nghttp2-1.60.0.tar.xz", filepath.Base(first))

	second, err := a.FetchPinned(context.Background(), t.TempDir(), srv.URL+"/nghttp2-1.60.0.tar.xz", checksum)
	require.NoError(t, err)

	got, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second fetch should come from the cache")
}

func TestFetchPinnedChecksumMismatch(t *testing.T) {
	srv := fileServer(t, map[string]string{"/a.tar.gz": "actual"}, nil)
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	a := &Acquirer{Cache: c, Logger: quietLogger()}
	wrong := "sha256:" + sha256Hex([]byte("expected"))
	_, err = a.FetchPinned(context.Background(), t.TempDir(), srv.URL+"/a.tar.gz", wrong)
	require.ErrorIs(t, err, verify.ErrChecksumMismatch)
	assert.False(t, c.Has(sha256Hex([]byte("actual"))))
}
