// Package source downloads package sources into the working directory.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/bianoble/srcinstall/internal/cache"
	"github.com/bianoble/srcinstall/internal/verify"
	"github.com/bianoble/srcinstall/internal/workdir"
)

// ErrDownloadFailed is wrapped by every DownloadError.
var ErrDownloadFailed = errors.New("download failed")

// DownloadError describes a failed fetch of a single URL.
type DownloadError struct {
	URL        string
	StatusCode int  // 0 for transport failures
	NotFound   bool // the server answered 404 or 410
	Err        error
}

func (e *DownloadError) Error() string {
	switch {
	case e.NotFound:
		return fmt.Sprintf("%s: %s: not found (HTTP %d)", ErrDownloadFailed, e.URL, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: HTTP %d", ErrDownloadFailed, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s: %v", ErrDownloadFailed, e.URL, e.Err)
	}
}

func (e *DownloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDownloadFailed}
	}
	return []error{ErrDownloadFailed, e.Err}
}

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Acquirer fetches URLs into a private directory.
type Acquirer struct {
	Client  HTTPClient
	Cache   *cache.Cache  // optional; used by FetchPinned
	Timeout time.Duration // per-URL timeout (0 = only the context's)
	Logger  *log.Logger
}

// Fetch downloads each URL into dir, naming files after the URL's final
// path segment. It stops at the first failure.
func (a *Acquirer) Fetch(ctx context.Context, dir string, urls ...string) ([]string, error) {
	if err := workdir.CheckPrivate(dir); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		p, err := a.fetchOne(ctx, dir, u)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// FetchPinned downloads rawURL into dir and checks it against a
// "sha256:<hex>" checksum. A verified copy in the cache is used instead of
// the network when available, and fresh downloads are added to the cache.
func (a *Acquirer) FetchPinned(ctx context.Context, dir, rawURL, checksum string) (string, error) {
	if err := workdir.CheckPrivate(dir); err != nil {
		return "", err
	}
	digest, err := verify.ParseChecksum(checksum)
	if err != nil {
		return "", err
	}
	name, err := FileName(rawURL)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	dest := filepath.Join(dir, name)

	if a.Cache != nil {
		hit, err := a.Cache.CopyTo(digest, dest)
		if err != nil {
			return "", err
		}
		if hit {
			a.logger().Debug("using cached archive", "file", name, "sha256", digest)
			return dest, nil
		}
	}

	if _, err := a.fetchOne(ctx, dir, rawURL); err != nil {
		return "", err
	}
	if err := verify.VerifyChecksum(dest, checksum); err != nil {
		return "", err
	}
	if a.Cache != nil {
		if err := a.Cache.PutFile(digest, dest); err != nil {
			a.logger().Warn("could not cache archive", "file", name, "err", err)
		}
	}
	return dest, nil
}

func (a *Acquirer) fetchOne(ctx context.Context, dir, rawURL string) (string, error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("creating request: %w", err)}
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	a.logger().Info("downloading", "url", rawURL)
	resp, err := client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &DownloadError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			NotFound:   resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone,
		}
	}

	dest := filepath.Join(dir, name)
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("reading response: %w", copyErr)}
	}
	if closeErr != nil {
		return "", fmt.Errorf("closing %s: %w", dest, closeErr)
	}

	a.logger().Debug("downloaded", "file", name, "size", humanize.Bytes(uint64(n)))
	return dest, nil
}

func (a *Acquirer) logger() *log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.Default()
}

// FileName derives a local file name from the URL's final path segment,
// ignoring any query string or fragment.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("url %s has no file name", rawURL)
	}
	return name, nil
}
