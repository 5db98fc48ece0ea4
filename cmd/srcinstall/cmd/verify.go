package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/verify"
)

var verifyKeyring string

var verifyCmd = &cobra.Command{
	Use:   "verify <signature> <file>",
	Short: "Check a detached signature",
	Long: `Verifies a detached OpenPGP signature against a file. With --keyring (or
the keyring setting) the check runs in-process against that public keyring;
otherwise it is delegated to the configured gpg binary.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if err := verifierFor(cfg, verifyKeyring).Verify(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		info("Good signature: %s", args[1])
		return nil
	},
}

// verifierFor prefers an explicit keyring, then the configured one, then gpg.
// An explicit verify ignores skip_signature.
func verifierFor(cfg *config.Config, keyring string) verify.Verifier {
	switch {
	case keyring != "":
		return &verify.Keyring{Path: keyring}
	case cfg.Keyring != "":
		return &verify.Keyring{Path: cfg.Keyring}
	default:
		return &verify.GPG{Binary: cfg.GPGBinary}
	}
}

func init() {
	verifyCmd.Flags().StringVar(&verifyKeyring, "keyring", "", "public keyring to verify against instead of gpg")
	rootCmd.AddCommand(verifyCmd)
}
