package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Keyring verifies detached OpenPGP signatures in-process against an
// exported public keyring, armored or binary.
type Keyring struct {
	Path string
}

// Verify checks signature against data using the keys in k.Path.
func (k *Keyring) Verify(ctx context.Context, signature, data string) error {
	if err := requireArtifacts(signature, data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	keys, err := k.load()
	if err != nil {
		return err
	}

	sig, err := os.ReadFile(signature)
	if err != nil {
		return fmt.Errorf("reading signature %s: %w", signature, err)
	}
	signed, err := os.Open(data)
	if err != nil {
		return fmt.Errorf("opening %s: %w", data, err)
	}
	defer signed.Close()

	if isArmored(sig) {
		_, err = openpgp.CheckArmoredDetachedSignature(keys, signed, bytes.NewReader(sig), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(keys, signed, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSignatureInvalid, signature, err)
	}
	return nil
}

func (k *Keyring) load() (openpgp.EntityList, error) {
	raw, err := os.ReadFile(k.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: keyring %s does not exist", ErrSignatureToolMissing, k.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading keyring %s: %w", k.Path, err)
	}

	var keys openpgp.EntityList
	if isArmored(raw) {
		keys, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(raw))
	} else {
		keys, err = openpgp.ReadKeyRing(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing keyring %s: %w", k.Path, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("keyring %s contains no keys", k.Path)
	}
	return keys, nil
}

func isArmored(b []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(b), []byte("-----BEGIN PGP"))
}
