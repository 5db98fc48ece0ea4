// Package verify authenticates fetched artifacts before anything in them is
// compiled or executed.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignatureInvalid indicates the verifier rejected the signature.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrSignatureToolMissing indicates the external verifier binary cannot be located.
	ErrSignatureToolMissing = errors.New("signature tool missing")

	// ErrMissingArtifact indicates the signature or the data file does not exist.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrChecksumMismatch indicates a pinned digest does not match the file.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Verifier checks a detached signature against a data file.
type Verifier interface {
	Verify(ctx context.Context, signature, data string) error
}

// requireArtifacts fails with ErrMissingArtifact unless both files exist.
func requireArtifacts(signature, data string) error {
	for _, p := range []string{signature, data} {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrMissingArtifact, p)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrMissingArtifact, p)
		}
	}
	return nil
}
