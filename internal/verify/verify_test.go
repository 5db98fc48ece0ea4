package verify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGPG writes a stand-in gpg that rejects any signature named bad.sig.
func fakeGPG(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "gpg")
	script := `#!/bin/sh
case "$*" in
  *bad.sig*) echo "gpg: BAD signature from \"Release Key\"" >&2; exit 1 ;;
esac
echo "gpg: Good signature"
exit 0
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestGPGVerifyGood(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "zsh-5.9.tar.xz", "archive")
	sig := writeFile(t, dir, "zsh-5.9.tar.xz.asc", "signature")

	g := &GPG{Binary: fakeGPG(t)}
	assert.NoError(t, g.Verify(context.Background(), sig, data))
}

func TestGPGVerifyBad(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "zsh-5.9.tar.xz", "archive")
	sig := writeFile(t, dir, "bad.sig", "signature")

	g := &GPG{Binary: fakeGPG(t)}
	err := g.Verify(context.Background(), sig, data)
	require.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Contains(t, err.Error(), "BAD signature")
	assert.Contains(t, err.Error(), "exit 1")
}

func TestGPGToolMissing(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "a.tar.gz", "archive")
	sig := writeFile(t, dir, "a.tar.gz.asc", "signature")

	g := &GPG{Binary: filepath.Join(dir, "no-such-gpg")}
	err := g.Verify(context.Background(), sig, data)
	assert.ErrorIs(t, err, ErrSignatureToolMissing)
}

func TestMissingArtifactCheckedBeforeTool(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "a.tar.gz", "archive")

	g := &GPG{Binary: filepath.Join(dir, "no-such-gpg")}
	err := g.Verify(context.Background(), filepath.Join(dir, "a.tar.gz.asc"), data)
	require.ErrorIs(t, err, ErrMissingArtifact)
	assert.NotErrorIs(t, err, ErrSignatureToolMissing)

	err = g.Verify(context.Background(), data, filepath.Join(dir, "missing.tar.gz"))
	assert.ErrorIs(t, err, ErrMissingArtifact)
}

type signer struct {
	entity *openpgp.Entity
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	e, err := openpgp.NewEntity("Release Key", "", "release@example.org", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	require.NoError(t, err)
	return &signer{entity: e}
}

func (s *signer) writeKeyring(t *testing.T, dir string, armored bool) string {
	t.Helper()
	var buf bytes.Buffer
	if armored {
		w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
		require.NoError(t, err)
		require.NoError(t, s.entity.Serialize(w))
		require.NoError(t, w.Close())
	} else {
		require.NoError(t, s.entity.Serialize(&buf))
	}
	p := filepath.Join(dir, "keyring.gpg")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o600))
	return p
}

func (s *signer) sign(t *testing.T, dir, content string, armored bool) string {
	t.Helper()
	var buf bytes.Buffer
	if armored {
		require.NoError(t, openpgp.ArmoredDetachSign(&buf, s.entity, strings.NewReader(content), nil))
	} else {
		require.NoError(t, openpgp.DetachSign(&buf, s.entity, strings.NewReader(content), nil))
	}
	p := filepath.Join(dir, "artifact.sig")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o600))
	return p
}

func TestKeyringVerify(t *testing.T) {
	for _, armored := range []bool{true, false} {
		dir := t.TempDir()
		s := newSigner(t)
		data := writeFile(t, dir, "Python-3.12.1.tar.xz", "python source")
		sig := s.sign(t, dir, "python source", armored)

		k := &Keyring{Path: s.writeKeyring(t, dir, armored)}
		assert.NoError(t, k.Verify(context.Background(), sig, data), "armored=%v", armored)
	}
}

func TestKeyringRejectsTamperedData(t *testing.T) {
	dir := t.TempDir()
	s := newSigner(t)
	data := writeFile(t, dir, "Python-3.12.1.tar.xz", "tampered source")
	sig := s.sign(t, dir, "python source", true)

	k := &Keyring{Path: s.writeKeyring(t, dir, true)}
	err := k.Verify(context.Background(), sig, data)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestKeyringRejectsUnknownSigner(t *testing.T) {
	dir := t.TempDir()
	trusted := newSigner(t)
	other := newSigner(t)
	data := writeFile(t, dir, "a.tar.gz", "content")
	sig := other.sign(t, dir, "content", false)

	k := &Keyring{Path: trusted.writeKeyring(t, dir, false)}
	err := k.Verify(context.Background(), sig, data)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestKeyringMissing(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "a.tar.gz", "content")
	sig := writeFile(t, dir, "a.tar.gz.sig", "sig")

	k := &Keyring{Path: filepath.Join(dir, "nope.gpg")}
	assert.ErrorIs(t, k.Verify(context.Background(), sig, data), ErrSignatureToolMissing)
}

func TestParseChecksum(t *testing.T) {
	digest := strings.Repeat("ab", 32)
	got, err := ParseChecksum("sha256:" + strings.ToUpper(digest))
	require.NoError(t, err)
	assert.Equal(t, digest, got)

	for _, bad := range []string{"abc", "md5:" + digest, "sha256:xyz", "sha256:" + digest[:10]} {
		_, err := ParseChecksum(bad)
		assert.Error(t, err, bad)
	}
}

func TestVerifyChecksum(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "hello.txt", "hello world")
	good := "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

	assert.NoError(t, VerifyChecksum(p, good))

	err := VerifyChecksum(p, "sha256:"+strings.Repeat("0", 64))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}
