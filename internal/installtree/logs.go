package installtree

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// PreserveLogs copies every *.log in workDir into <installDir>/.build,
// keeping modification times. Files whose copy is already at least as
// new are skipped. It returns the names it copied.
func PreserveLogs(workDir, installDir string) ([]string, error) {
	logs, err := filepath.Glob(filepath.Join(workDir, "*.log"))
	if err != nil {
		return nil, err
	}
	sort.Strings(logs)
	if len(logs) == 0 {
		return nil, nil
	}

	dest := filepath.Join(installDir, BuildDir)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	var copied []string
	for _, src := range logs {
		srcInfo, err := os.Stat(src)
		if err != nil {
			return copied, err
		}
		if !srcInfo.Mode().IsRegular() {
			continue
		}
		dst := filepath.Join(dest, filepath.Base(src))
		if dstInfo, err := os.Stat(dst); err == nil && !dstInfo.ModTime().Before(srcInfo.ModTime()) {
			continue
		}
		if err := copyFile(src, dst, srcInfo); err != nil {
			return copied, fmt.Errorf("preserving %s: %w", filepath.Base(src), err)
		}
		copied = append(copied, filepath.Base(src))
	}
	return copied, nil
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
