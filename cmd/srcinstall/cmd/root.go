package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/srcinstall/internal/build"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath  string
	catalogPath string
	noInherit   bool
	verbose     bool
	quiet       bool
)

// stderr is where failures are reported; tests swap it out.
var stderr io.Writer = os.Stderr

var rootCmd = &cobra.Command{
	Use:   "srcinstall",
	Short: "Build third-party software from source into versioned install trees",
	Long: `srcinstall resolves a package version from upstream tags, fetches and
verifies its sources, runs configure, compile, test and install with a clean
environment, and installs into <root>/<name>/<version> with a 'default'
symlink per package.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("srcinstall %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "extra config file layered over the system and user config")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "extra package catalog layered over the built-in one")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "ignore system and user config and catalog files")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	return reportError(err)
}

// reportError prints err and picks the exit code. A failed build stage
// exits with the build tool's own status.
func reportError(err error) int {
	var stageErr *build.StageError
	if errors.As(err, &stageErr) {
		fmt.Fprintf(stderr, "error: %s stage failed with exit code %d\n", stageErr.Stage, stageErr.Code)
		if len(stageErr.Tail) > 0 {
			fmt.Fprintf(stderr, "last %d lines of %s:\n", len(stageErr.Tail), stageErr.LogPath)
			for _, line := range stageErr.Tail {
				fmt.Fprintf(stderr, "  | %s\n", line)
			}
		}
		fmt.Fprintf(stderr, "log: %s\n", stageErr.LogPath)
	} else {
		fmt.Fprintf(stderr, "error: %s\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) && coded.ExitCode() > 0 {
		return coded.ExitCode()
	}
	return 1
}
