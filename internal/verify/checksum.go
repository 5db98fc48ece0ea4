package verify

import (
	"fmt"
	"strings"

	"github.com/bianoble/srcinstall/internal/cache"
)

// ParseChecksum splits "algorithm:hex" and rejects anything but sha256.
func ParseChecksum(checksum string) (string, error) {
	algo, digest, ok := strings.Cut(checksum, ":")
	if !ok {
		return "", fmt.Errorf("invalid checksum format '%s' — expected 'sha256:<hex>'", checksum)
	}
	if algo != "sha256" {
		return "", fmt.Errorf("unsupported checksum algorithm '%s' — only 'sha256' is supported", algo)
	}
	digest = strings.ToLower(digest)
	if len(digest) != 64 || strings.Trim(digest, "0123456789abcdef") != "" {
		return "", fmt.Errorf("invalid sha256 digest '%s'", digest)
	}
	return digest, nil
}

// VerifyChecksum compares the file at path against a "sha256:<hex>" checksum.
func VerifyChecksum(path, checksum string) error {
	want, err := ParseChecksum(checksum)
	if err != nil {
		return err
	}
	got, err := cache.HashFile(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w for %s: expected %s, got %s", ErrChecksumMismatch, path, want, got)
	}
	return nil
}
