package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bianoble/srcinstall/internal/cache"
	"github.com/bianoble/srcinstall/internal/engine"
	"github.com/bianoble/srcinstall/internal/verify"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration, catalog and cache information",
	Long: `Displays the srcinstall version, which config and catalog files were
loaded, the install, work, cache and mirror directories, the download cache
size, and the signature verifier in use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cfgLayers, err := loadConfig()
		if err != nil {
			return err
		}
		cat, catLayers, err := loadCatalog()
		if err != nil {
			return err
		}

		fmt.Printf("srcinstall %s\n", version)

		fmt.Println("  config chain:")
		for _, l := range cfgLayers {
			fmt.Printf("    %-10s %s (%s)\n", string(l.Level)+":", l.Path, loadStatus(l.Loaded))
		}
		fmt.Println("  catalog chain:")
		for _, l := range catLayers {
			path := l.Path
			if path == "" {
				path = "(embedded)"
			}
			fmt.Printf("    %-10s %s (%s)\n", string(l.Level)+":", path, loadStatus(l.Loaded))
		}

		fmt.Printf("  root:          %s\n", cfg.Root)
		fmt.Printf("  work root:     %s\n", cfg.WorkRoot)
		fmt.Printf("  mirrors:       %s\n", cfg.MirrorDir)
		fmt.Printf("  cache dir:     %s\n", cfg.CacheDir)
		if c, err := cache.New(cfg.CacheDir); err == nil {
			if size, err := c.Size(); err == nil {
				fmt.Printf("  cache size:    %s\n", humanize.Bytes(uint64(size)))
			}
		}
		fmt.Printf("  verifier:      %s\n", describeVerifier(engine.VerifierFor(cfg)))
		fmt.Printf("  test policy:   %s (tests run: %t)\n", cfg.Policy(), cfg.RunTests)
		fmt.Printf("  jobs:          %d\n", cfg.JobCount())
		fmt.Printf("  packages:      %d\n", len(cat.Packages))
		return nil
	},
}

func loadStatus(loaded bool) string {
	if loaded {
		return "loaded"
	}
	return "not found"
}

func describeVerifier(v verify.Verifier) string {
	switch v := v.(type) {
	case nil:
		return "disabled (skip_signature)"
	case *verify.Keyring:
		return "keyring " + v.Path
	case *verify.GPG:
		return "gpg (" + v.Binary + ")"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
