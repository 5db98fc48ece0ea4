package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bianoble/srcinstall/internal/catalog"
	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/engine"
)

// loadConfig merges the config layers selected by the global flags.
func loadConfig() (*config.Config, []config.LayerInfo, error) {
	cfg, layers, err := config.Load(config.DiscoverOptions{
		ProjectPath: configPath,
		NoInherit:   noInherit,
	})
	if err != nil {
		return nil, layers, fmt.Errorf("loading config: %w", err)
	}
	return cfg, layers, nil
}

// loadCatalog merges the built-in catalog with the catalog layers selected
// by the global flags.
func loadCatalog() (*catalog.Catalog, []catalog.LayerInfo, error) {
	cat, layers, err := catalog.LoadLayers(catalog.DiscoverOptions{
		ProjectPath: catalogPath,
		NoInherit:   noInherit,
	})
	if err != nil {
		return nil, layers, fmt.Errorf("loading catalog: %w", err)
	}
	return cat, layers, nil
}

// newLogger builds the stderr logger. --verbose and --quiet win over the
// configured level.
func newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "srcinstall",
		ReportTimestamp: verbose,
	})
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	switch {
	case verbose:
		level = log.DebugLevel
	case quiet:
		level = log.ErrorLevel
	}
	logger.SetLevel(level)
	return logger
}

// newInstaller loads config and catalog and wires the engine.
func newInstaller() (*engine.Installer, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cat, _, err := loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	in, err := engine.New(cat, cfg, newLogger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return in, cfg, nil
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// warnf prints a warning to stderr.
func warnf(format string, args ...any) {
	fmt.Fprintf(stderr, "warning: "+format+"\n", args...)
}
