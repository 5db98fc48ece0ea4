package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/bianoble/srcinstall/internal/build"
	"github.com/bianoble/srcinstall/internal/layers"
)

// EnvPrefix namespaces every environment variable, e.g. SRCINSTALL_ROOT.
const EnvPrefix = "SRCINSTALL"

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Root:          filepath.Join(xdg.DataHome, "srcinstall"),
		WorkRoot:      os.TempDir(),
		CacheDir:      filepath.Join(xdg.CacheHome, "srcinstall", "downloads"),
		MirrorDir:     filepath.Join(xdg.CacheHome, "srcinstall", "mirrors"),
		TestPolicy:    string(build.TestContinue),
		KeepOnFailure: true,
		Alias: Alias{
			Create:           true,
			UpdateSymlink:    true,
			UpdateNonSymlink: true,
		},
		GPGBinary: "gpg",
		LogLevel:  "info",
	}
}

// Load builds the configuration from defaults, each existing config file
// from lowest to highest precedence, then SRCINSTALL_* variables. It
// returns the layers it considered.
func Load(opts DiscoverOptions) (*Config, []LayerInfo, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := DiscoverPaths(opts)
	err := layers.Load(found, func(l LayerInfo) error {
		v.SetConfigFile(l.Path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", l.Path, err)
		}
		return nil
	})
	if err != nil {
		return nil, found, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, found, fmt.Errorf("decoding config: %w", err)
	}
	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, found, &ValidationError{Errors: errs}
	}
	return &cfg, found, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root", d.Root)
	v.SetDefault("work_root", d.WorkRoot)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("mirror_dir", d.MirrorDir)
	v.SetDefault("run_tests", d.RunTests)
	v.SetDefault("test_policy", d.TestPolicy)
	v.SetDefault("keep_workdir", d.KeepWorkDir)
	v.SetDefault("keep_on_failure", d.KeepOnFailure)
	v.SetDefault("clobber", d.Clobber)
	v.SetDefault("always_run", d.AlwaysRun)
	v.SetDefault("alias.create", d.Alias.Create)
	v.SetDefault("alias.update_symlink", d.Alias.UpdateSymlink)
	v.SetDefault("alias.update_non_symlink", d.Alias.UpdateNonSymlink)
	v.SetDefault("skip_signature", d.SkipSignature)
	v.SetDefault("gpg_binary", d.GPGBinary)
	v.SetDefault("keyring", d.Keyring)
	v.SetDefault("build_path", d.BuildPath)
	v.SetDefault("cflags", d.CFlags)
	v.SetDefault("cppflags", d.CPPFlags)
	v.SetDefault("ldflags", d.LDFlags)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("log_level", d.LogLevel)
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Root == "" {
		errs = append(errs, "'root' is required")
	}
	if cfg.WorkRoot == "" {
		errs = append(errs, "'work_root' is required")
	}
	if cfg.CacheDir == "" {
		errs = append(errs, "'cache_dir' is required")
	}
	if cfg.MirrorDir == "" {
		errs = append(errs, "'mirror_dir' is required")
	}
	if _, err := build.ParseTestPolicy(cfg.TestPolicy); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.Jobs < 0 {
		errs = append(errs, fmt.Sprintf("'jobs' must be >= 0, got %d", cfg.Jobs))
	}
	if !cfg.SkipSignature && cfg.GPGBinary == "" && cfg.Keyring == "" {
		errs = append(errs, "one of 'gpg_binary' or 'keyring' is required unless 'skip_signature' is set")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level '%s' — must be one of: debug, info, warn, error", cfg.LogLevel))
	}

	return errs
}
