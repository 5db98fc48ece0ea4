package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/srcinstall/internal/build"
	"github.com/bianoble/srcinstall/internal/engine"
	"github.com/bianoble/srcinstall/internal/installtree"
	versionpkg "github.com/bianoble/srcinstall/internal/version"
)

var (
	installPrefix        string
	installClobber       bool
	installAlwaysRun     bool
	installTest          bool
	installTestPolicy    string
	installNoInstall     bool
	installKeepWorkDir   bool
	installKeepOnFailure bool
	installNoDefault     bool
)

var installCmd = &cobra.Command{
	Use:   "install <package> [latest|<version>]",
	Short: "Build and install a package version from source",
	Long: `Resolves the version (default: latest) against the package's upstream tags,
fetches and verifies the sources, then runs configure, compile, test (with
--test) and install in a private working directory. The result lands in
<root>/<package>/<version>, stage logs in its .build directory, and the
package's 'default' symlink is updated according to the alias policy.

A version that is already installed is not rebuilt unless --clobber or
--always-run is given. When a stage fails, srcinstall exits with that
stage's exit code.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := versionpkg.Latest
		if len(args) == 2 {
			spec = args[1]
		}

		in, cfg, err := newInstaller()
		if err != nil {
			return err
		}

		opts, err := installOptions(cmd, engine.OptionsFromConfig(cfg))
		if err != nil {
			return err
		}

		result, err := in.Install(cmd.Context(), args[0], spec, opts)
		if err != nil {
			if result != nil {
				if result.WorkDir != "" {
					warnf("working directory kept at %s", result.WorkDir)
				} else if result.Execution != nil {
					warnf("working directory removed (keep_on_failure is off)")
				}
			}
			return err
		}
		printInstall(result, opts.NoInstall)
		return nil
	},
}

// installOptions applies the command-line flags over the configured options.
func installOptions(cmd *cobra.Command, opts engine.InstallOptions) (engine.InstallOptions, error) {
	flags := cmd.Flags()
	opts.Prefix = installPrefix
	if flags.Changed("clobber") {
		opts.Clobber = installClobber
	}
	if flags.Changed("always-run") {
		opts.AlwaysRun = installAlwaysRun
	}
	if flags.Changed("test") {
		opts.RunTests = installTest
	}
	if flags.Changed("test-policy") {
		policy, err := build.ParseTestPolicy(installTestPolicy)
		if err != nil {
			return opts, err
		}
		opts.TestPolicy = policy
	}
	if flags.Changed("no-install") {
		opts.NoInstall = installNoInstall
	}
	if flags.Changed("keep-workdir") {
		opts.KeepWorkDir = installKeepWorkDir
	}
	if flags.Changed("keep-on-failure") {
		opts.KeepOnFailure = installKeepOnFailure
	}
	if installNoDefault {
		opts.Alias = installtree.AliasPolicy{}
	}
	return opts, nil
}

func printInstall(r *engine.InstallResult, noInstall bool) {
	name := fmt.Sprintf("%s %s", r.Package, r.Resolved.Version)
	switch {
	case r.Skipped:
		info("%s is already installed in %s", name, r.Dir)
	case noInstall:
		info("%s built; nothing installed", name)
	default:
		info("Installed %s in %s", name, r.Dir)
	}
	if r.Commit != "" {
		detail("commit: %s", r.Commit)
	}
	for _, s := range r.Sources {
		detail("source: %s", s)
	}
	if r.Execution != nil {
		for _, res := range r.Execution.Results {
			if res.Skipped {
				detail("%-9s skipped", res.Stage)
				continue
			}
			detail("%-9s exit %d  %s", res.Stage, res.ExitCode, res.LogPath)
		}
	}
	if r.TestsFailed() {
		warnf("tests failed (exit %d); installed anyway, see %s", r.Execution.TestFailure.Code, r.Execution.TestFailure.LogPath)
	}
	if r.Alias != "" {
		info("default: %s (%s)", r.Resolved.Version, r.Alias)
	}
	if r.WorkDir != "" {
		info("working directory kept at %s", r.WorkDir)
	}
}

func init() {
	bindInstallFlags(installCmd)
	rootCmd.AddCommand(installCmd)
}

func bindInstallFlags(c *cobra.Command) {
	c.Flags().StringVar(&installPrefix, "prefix", "", "package base directory (default <root>/<package>)")
	c.Flags().BoolVar(&installClobber, "clobber", false, "rebuild even if the version is already installed")
	c.Flags().BoolVar(&installAlwaysRun, "always-run", false, "run the build stages even if the version is already installed")
	c.Flags().BoolVar(&installTest, "test", false, "run the package test suite")
	c.Flags().StringVar(&installTestPolicy, "test-policy", string(build.TestContinue), "what a test failure does: abort or continue")
	c.Flags().BoolVar(&installNoInstall, "no-install", false, "stop after the test stage")
	c.Flags().BoolVar(&installKeepWorkDir, "keep-workdir", false, "keep the working directory")
	c.Flags().BoolVar(&installKeepOnFailure, "keep-on-failure", true, "keep the working directory when a stage fails (--keep-on-failure=false removes it)")
	c.Flags().BoolVar(&installNoDefault, "no-default", false, "leave the default symlink alone")
}
