package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const maxToolOutput = 2048

// GPG delegates verification to a gpg binary. Trust material must already
// be imported into the keyring gpg uses.
type GPG struct {
	// Binary is the gpg executable name or path. Default: "gpg".
	Binary string

	// Homedir overrides GNUPGHOME when set.
	Homedir string
}

// Verify runs gpg --verify. A non-zero exit status means ErrSignatureInvalid.
func (g *GPG) Verify(ctx context.Context, signature, data string) error {
	if err := requireArtifacts(signature, data); err != nil {
		return err
	}

	bin := g.Binary
	if bin == "" {
		bin = "gpg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSignatureToolMissing, bin, err)
	}

	args := []string{"--batch", "--no-tty"}
	if g.Homedir != "" {
		args = append(args, "--homedir", g.Homedir)
	}
	args = append(args, "--verify", signature, data)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = gpgEnv()
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s (exit %d): %s", ErrSignatureInvalid, signature, exitErr.ExitCode(), trimOutput(combined.String()))
		}
		return fmt.Errorf("running %s: %w", bin, err)
	}
	return nil
}

// gpgEnv passes through only what gpg needs to find its keyring and agent.
func gpgEnv() []string {
	env := []string{"LC_ALL=C", "LANG=C"}
	for _, key := range []string{"PATH", "HOME", "GNUPGHOME", "GPG_AGENT_INFO"} {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+v)
		}
	}
	return env
}

func trimOutput(out string) string {
	clean := strings.TrimSpace(out)
	if clean == "" {
		return "no output"
	}
	if len(clean) > maxToolOutput {
		return clean[:maxToolOutput] + "..."
	}
	return clean
}
