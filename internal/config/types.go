// Package config holds the settings that steer a build: where installs,
// working directories and caches live, and the optional behaviors the
// environment can toggle.
package config

import (
	"github.com/bianoble/srcinstall/internal/build"
	"github.com/bianoble/srcinstall/internal/installtree"
)

// Config is the merged result of defaults, config files and SRCINSTALL_*
// environment variables.
type Config struct {
	// Root holds one directory per package: <root>/<name>/<version>.
	Root      string `mapstructure:"root"`
	WorkRoot  string `mapstructure:"work_root"`
	CacheDir  string `mapstructure:"cache_dir"`
	MirrorDir string `mapstructure:"mirror_dir"`

	RunTests      bool   `mapstructure:"run_tests"`
	TestPolicy    string `mapstructure:"test_policy"`
	KeepWorkDir   bool   `mapstructure:"keep_workdir"`
	KeepOnFailure bool   `mapstructure:"keep_on_failure"`
	Clobber       bool   `mapstructure:"clobber"`
	AlwaysRun     bool   `mapstructure:"always_run"`

	Alias Alias `mapstructure:"alias"`

	SkipSignature bool   `mapstructure:"skip_signature"`
	GPGBinary     string `mapstructure:"gpg_binary"`
	Keyring       string `mapstructure:"keyring"`

	BuildPath string `mapstructure:"build_path"`
	CFlags    string `mapstructure:"cflags"`
	CPPFlags  string `mapstructure:"cppflags"`
	LDFlags   string `mapstructure:"ldflags"`
	Jobs      int    `mapstructure:"jobs"`

	LogLevel string `mapstructure:"log_level"`
}

// Alias mirrors installtree.AliasPolicy.
type Alias struct {
	Create           bool `mapstructure:"create"`
	UpdateSymlink    bool `mapstructure:"update_symlink"`
	UpdateNonSymlink bool `mapstructure:"update_non_symlink"`
}

// AliasPolicy converts the alias settings.
func (c *Config) AliasPolicy() installtree.AliasPolicy {
	return installtree.AliasPolicy{
		Create:           c.Alias.Create,
		UpdateSymlink:    c.Alias.UpdateSymlink,
		UpdateNonSymlink: c.Alias.UpdateNonSymlink,
	}
}

// EnvOptions converts the compiler settings for build.CleanEnv.
func (c *Config) EnvOptions(extra map[string]string) build.EnvOptions {
	return build.EnvOptions{
		Path:     c.BuildPath,
		CFlags:   c.CFlags,
		CPPFlags: c.CPPFlags,
		LDFlags:  c.LDFlags,
		Extra:    extra,
	}
}

// JobCount returns the configured job count, or the processor count.
func (c *Config) JobCount() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return build.Jobs()
}

// Policy parses TestPolicy. Validate has already rejected bad values.
func (c *Config) Policy() build.TestPolicy {
	p, err := build.ParseTestPolicy(c.TestPolicy)
	if err != nil {
		return build.TestContinue
	}
	return p
}
