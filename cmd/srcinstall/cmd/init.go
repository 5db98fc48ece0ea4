package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/bianoble/srcinstall/internal/config"
)

var initForce bool

// initTemplate is the default config.yaml scaffold. Every setting is shown
// with its default and can also be set as SRCINSTALL_<NAME>.
const initTemplate = `# srcinstall configuration
# Layers: /etc/srcinstall/config.yaml, then $XDG_CONFIG_HOME/srcinstall/config.yaml,
# then --config. SRCINSTALL_* environment variables override all of them,
# e.g. SRCINSTALL_RUN_TESTS=1 or SRCINSTALL_ALIAS_UPDATE_SYMLINK=false.

# Installs go to <root>/<package>/<version>.
# root: ~/.local/share/srcinstall
# work_root: /tmp
# cache_dir: ~/.cache/srcinstall/downloads
# mirror_dir: ~/.cache/srcinstall/mirrors

# Test stage
run_tests: false
test_policy: continue       # abort | continue

# Working directories
keep_workdir: false
keep_on_failure: true        # false removes it even when a stage fails

# Rebuild versions that are already installed
clobber: false
always_run: false

# The <root>/<package>/default symlink
alias:
  create: true
  update_symlink: true       # false pins the current default
  update_non_symlink: true

# Signatures
skip_signature: false
gpg_binary: gpg
# keyring: /etc/srcinstall/trusted.gpg   # verify in-process instead of gpg

# Build environment
# build_path: /usr/local/bin:/usr/bin:/bin
# cflags: -O2
# cppflags:
# ldflags:
# jobs: 0                   # 0 = number of CPUs

log_level: info
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter config file",
	Long: `Writes a commented config file listing every setting and its default. The
file goes to --config when given, otherwise to the user config location
($XDG_CONFIG_HOME/srcinstall/config.yaml).

Use --force to overwrite an existing file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if outPath == "" {
			outPath = config.DefaultUserConfigPath()
		}
		if outPath == "" {
			return fmt.Errorf("no config location — pass --config")
		}
		outPath, err := filepath.Abs(outPath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(outPath), err)
		}
		if err := atomic.WriteFile(outPath, strings.NewReader(initTemplate)); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Run 'srcinstall list' to see the available packages")
		info("  2. Run 'srcinstall resolve <package>' to see what latest means")
		info("  3. Run 'srcinstall install <package>' to build it")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
