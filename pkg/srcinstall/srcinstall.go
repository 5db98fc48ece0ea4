// Package srcinstall provides the public Go library API for srcinstall.
//
// srcinstall builds third-party software from source into versioned
// install trees of the form <root>/<name>/<version>, with a "default"
// symlink per package. This package exposes a Client for embedding it in
// other Go programs.
//
// # Basic Usage
//
//	client, err := srcinstall.New(srcinstall.Options{
//	    ConfigPath: "/etc/srcinstall/ci.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Find out which version "latest" means today
//	v, err := client.Resolve(ctx, "python", srcinstall.Latest)
//
//	// Build and install it
//	result, err := client.Install(ctx, "python", v.Version, client.DefaultInstallOptions())
package srcinstall

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/bianoble/srcinstall/internal/catalog"
	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/engine"
	"github.com/bianoble/srcinstall/internal/verify"
)

// Installer builds and installs package versions.
type Installer interface {
	Install(ctx context.Context, name, spec string, opts InstallOptions) (*InstallResult, error)
}

// Resolver maps a version spec to a concrete release.
type Resolver interface {
	Resolve(ctx context.Context, name, spec string) (Resolved, error)
}

// Options configures a srcinstall client.
type Options struct {
	// ConfigPath is an extra config file layered over the system and user
	// config files.
	ConfigPath string

	// CatalogPath is an extra package catalog layered over the built-in,
	// system and user catalogs.
	CatalogPath string

	// NoInherit skips the system and user layers of both.
	NoInherit bool

	// Config, when set, is used as is instead of loading config files.
	Config *Config

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Client is the main entry point for the srcinstall library.
// It implements Installer and Resolver.
type Client struct {
	installer *engine.Installer
	config    *config.Config
	catalog   *catalog.Catalog
}

// New creates a new srcinstall Client.
func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, _, err := config.Load(config.DiscoverOptions{
			ProjectPath: opts.ConfigPath,
			NoInherit:   opts.NoInherit,
		})
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, &config.ValidationError{Errors: errs}
	}

	cat, _, err := catalog.LoadLayers(catalog.DiscoverOptions{
		ProjectPath: opts.CatalogPath,
		NoInherit:   opts.NoInherit,
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	in, err := engine.New(cat, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Client{installer: in, config: cfg, catalog: cat}, nil
}

// Config returns the configuration the client runs with.
func (c *Client) Config() *Config {
	return c.config
}

// DefaultInstallOptions returns the install options the configuration asks
// for, ready to be adjusted per call.
func (c *Client) DefaultInstallOptions() InstallOptions {
	return engine.OptionsFromConfig(c.config)
}

// Install resolves spec and installs that version of the named package.
// On a build failure the partial result is returned with the error.
func (c *Client) Install(ctx context.Context, name, spec string, opts InstallOptions) (*InstallResult, error) {
	return c.installer.Install(ctx, name, spec, opts)
}

// Resolve maps spec to a concrete version without building anything.
func (c *Client) Resolve(ctx context.Context, name, spec string) (Resolved, error) {
	_, res, err := c.installer.Resolve(ctx, name, spec)
	return res, err
}

// SetDefault points the package's default alias at an installed version.
// An empty prefix means <root>/<name>.
func (c *Client) SetDefault(name, ver, prefix string) (AliasAction, error) {
	return c.installer.SetDefault(name, ver, prefix)
}

// Installed lists the installed versions of the named package.
func (c *Client) Installed(name, prefix string) (*Listing, error) {
	return c.installer.List(name, prefix)
}

// Packages returns the names of every package the catalog knows.
func (c *Client) Packages() []string {
	return c.catalog.Names()
}

// Verify checks a detached signature against data, using keyring when it
// is set and the configured verifier otherwise.
func (c *Client) Verify(ctx context.Context, signature, data, keyring string) error {
	var v verify.Verifier
	switch {
	case keyring != "":
		v = &verify.Keyring{Path: keyring}
	case c.config.Keyring != "":
		v = &verify.Keyring{Path: c.config.Keyring}
	default:
		v = &verify.GPG{Binary: c.config.GPGBinary}
	}
	return v.Verify(ctx, signature, data)
}
