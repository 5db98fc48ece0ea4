// Package archive extracts source tarballs into the working directory.
package archive

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/bianoble/srcinstall/internal/workdir"
)

// ErrUnpackFailed is wrapped by every UnpackError.
var ErrUnpackFailed = errors.New("unpack failed")

// fatalExit is the status tar reports for a fatal extraction error.
const fatalExit = 2

// UnpackError describes a failed extraction.
type UnpackError struct {
	Archive string
	Code    int
	Err     error
}

func (e *UnpackError) Error() string {
	return fmt.Sprintf("%s: %s (exit %d): %v", ErrUnpackFailed, e.Archive, e.Code, e.Err)
}

func (e *UnpackError) Unwrap() []error {
	return []error{ErrUnpackFailed, e.Err}
}

// ExitCode reports the extraction status for callers that propagate it.
func (e *UnpackError) ExitCode() int {
	return e.Code
}

// Format identifies the compression wrapped around a tar stream.
type Format string

const (
	Tar   Format = "tar"
	Gzip  Format = "gzip"
	Xz    Format = "xz"
	Zstd  Format = "zstd"
	Bzip2 Format = "bzip2"
)

// Options controls extraction.
type Options struct {
	// StripComponents drops this many leading path elements from every
	// entry, like tar --strip-components. Entries with fewer elements are
	// skipped.
	StripComponents int
}

// DetectFormat picks a decompressor from the archive's file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return Gzip, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return Xz, nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return Zstd, nil
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return Bzip2, nil
	case strings.HasSuffix(lower, ".tar"):
		return Tar, nil
	default:
		return "", fmt.Errorf("unrecognized archive format for '%s'", name)
	}
}

// Unpack extracts archive into dest. An existing dest is removed and
// recreated first, so repeated calls produce the same tree.
func Unpack(archive, dest string, opts Options) error {
	if err := unpack(archive, dest, opts); err != nil {
		return &UnpackError{Archive: archive, Code: fatalExit, Err: err}
	}
	return nil
}

func unpack(archive, dest string, opts Options) error {
	if opts.StripComponents < 0 {
		return fmt.Errorf("strip components must be >= 0, got %d", opts.StripComponents)
	}
	format, err := DetectFormat(archive)
	if err != nil {
		return err
	}

	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("removing %s: %w", dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	r, closeFn, err := decompress(f, format)
	if err != nil {
		return err
	}
	defer closeFn()

	return extract(tar.NewReader(r), dest, opts)
}

func decompress(r io.Reader, format Format) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case Xz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening xz stream: %w", err)
		}
		return xr, noop, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		return zr, zr.Close, nil
	case Bzip2:
		return bzip2.NewReader(r), noop, nil
	default:
		return r, noop, nil
	}
}

type dirTime struct {
	path  string
	mtime time.Time
}

func extract(tr *tar.Reader, dest string, opts Options) error {
	var dirs []dirTime

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		rel, ok := stripPath(hdr.Name, opts.StripComponents)
		if !ok {
			continue
		}
		target, err := entryPath(dest, rel)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(hdr)); err != nil {
				return err
			}
			dirs = append(dirs, dirTime{path: target, mtime: hdr.ModTime})

		case tar.TypeReg:
			if err := writeFile(tr, target, hdr); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := checkLinkTarget(dest, target, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}

		case tar.TypeLink:
			linkRel, ok := stripPath(hdr.Linkname, opts.StripComponents)
			if !ok {
				return fmt.Errorf("hard link %s points outside the stripped tree", hdr.Name)
			}
			src, err := workdir.ValidatePath(dest, linkRel)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Link(src, target); err != nil {
				return err
			}

		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			// pax metadata; nothing to materialize

		default:
			// devices and fifos have no place in a source tree
		}
	}

	// Directory times last, since writing entries updates them.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Chtimes(dirs[i].path, dirs[i].mtime, dirs[i].mtime)
	}
	return nil
}

// stripPath removes n leading elements from name. It reports false when
// nothing remains.
func stripPath(name string, n int) (string, bool) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || clean == "/" {
		return "", false
	}
	parts := strings.Split(strings.Trim(clean, "/"), "/")
	if len(parts) <= n {
		return "", false
	}
	return path.Join(parts[n:]...), true
}

// entryPath resolves the parent directory through workdir.ValidatePath and
// joins the final element unresolved, so an entry that replaces an
// existing symlink is written in place instead of through it.
func entryPath(dest, rel string) (string, error) {
	parent, err := workdir.ValidatePath(dest, filepath.FromSlash(path.Dir(rel)))
	if err != nil {
		return "", err
	}
	base := path.Base(rel)
	if base == ".." {
		return "", fmt.Errorf("entry '%s' escapes the destination", rel)
	}
	return filepath.Join(parent, base), nil
}

func checkLinkTarget(dest, link, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("symlink %s has absolute target '%s'", link, linkname)
	}
	root, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}
	resolved := filepath.Clean(filepath.Join(filepath.Dir(link), linkname))
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return fmt.Errorf("symlink %s target '%s' is outside '%s'", link, linkname, root)
	}
	return nil
}

func writeFile(r io.Reader, target string, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_ = os.Remove(target)

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(hdr))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chtimes(target, hdr.ModTime, hdr.ModTime)
}

func fileMode(hdr *tar.Header) os.FileMode {
	mode := os.FileMode(hdr.Mode).Perm()
	if mode == 0 {
		mode = 0o644
	}
	return mode | 0o200
}

func dirMode(hdr *tar.Header) os.FileMode {
	return os.FileMode(hdr.Mode).Perm() | 0o700
}
