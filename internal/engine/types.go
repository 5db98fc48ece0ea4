// Package engine runs the install flow for one package version: resolve,
// fetch, build, install and alias.
package engine

import (
	"github.com/bianoble/srcinstall/internal/build"
	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/installtree"
	"github.com/bianoble/srcinstall/internal/version"
)

// SourceError represents a failure to reach a package's upstream.
type SourceError struct {
	Package   string
	Operation string
	Err       error
	Hint      string
}

func (e *SourceError) Error() string {
	msg := e.Package + ": " + e.Operation + " failed: " + e.Err.Error()
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// InstallOptions control a single install.
type InstallOptions struct {
	// Prefix replaces <root>/<name> as the package base directory.
	Prefix string

	Clobber   bool
	AlwaysRun bool

	RunTests   bool
	TestPolicy build.TestPolicy
	NoInstall  bool

	KeepWorkDir   bool
	KeepOnFailure bool

	Alias installtree.AliasPolicy
}

// OptionsFromConfig returns the install options the configuration asks for.
func OptionsFromConfig(cfg *config.Config) InstallOptions {
	return InstallOptions{
		Clobber:       cfg.Clobber,
		AlwaysRun:     cfg.AlwaysRun,
		RunTests:      cfg.RunTests,
		TestPolicy:    cfg.Policy(),
		KeepWorkDir:   cfg.KeepWorkDir,
		KeepOnFailure: cfg.KeepOnFailure,
		Alias:         cfg.AliasPolicy(),
	}
}

// InstallResult holds the outcome of an install. On a build failure it is
// returned alongside the error.
type InstallResult struct {
	Package  string
	Resolved version.Resolved
	Dir      string

	// Skipped is set when the version was already installed.
	Skipped bool

	Execution *build.Execution
	Sources   []string
	Commit    string
	Logs      []string

	Alias installtree.AliasAction

	// WorkDir is set when the working directory was kept.
	WorkDir string
}

// TestsFailed reports whether tests failed under the continue policy.
func (r *InstallResult) TestsFailed() bool {
	return r.Execution != nil && r.Execution.TestFailure != nil
}

// Listing describes the installs of one package.
type Listing struct {
	Package   string
	Kind      string
	Base      string
	Installed []string
	Default   string
}
