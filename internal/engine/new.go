package engine

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/bianoble/srcinstall/internal/cache"
	"github.com/bianoble/srcinstall/internal/catalog"
	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/source"
	"github.com/bianoble/srcinstall/internal/verify"
)

// New wires an Installer with the git and archive backends described by cfg.
func New(cat *catalog.Catalog, cfg *config.Config, logger *log.Logger) (*Installer, error) {
	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	reg := NewRegistry()
	reg.Register(catalog.KindGit, &GitBackend{MirrorRoot: cfg.MirrorDir})
	reg.Register(catalog.KindArchive, &ArchiveBackend{
		Acquirer: &source.Acquirer{Client: http.DefaultClient, Cache: c, Logger: logger},
		Verifier: VerifierFor(cfg),
		Logger:   logger,
	})

	return &Installer{
		Catalog:  cat,
		Config:   cfg,
		Registry: reg,
		Logger:   logger,
	}, nil
}

// VerifierFor returns the signature verifier cfg selects, or nil when
// signatures are skipped. A keyring takes precedence over gpg.
func VerifierFor(cfg *config.Config) verify.Verifier {
	switch {
	case cfg.SkipSignature:
		return nil
	case cfg.Keyring != "":
		return &verify.Keyring{Path: cfg.Keyring}
	default:
		return &verify.GPG{Binary: cfg.GPGBinary}
	}
}
