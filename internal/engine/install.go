package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bianoble/srcinstall/internal/build"
	"github.com/bianoble/srcinstall/internal/catalog"
	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/installtree"
	"github.com/bianoble/srcinstall/internal/render"
	"github.com/bianoble/srcinstall/internal/version"
	"github.com/bianoble/srcinstall/internal/workdir"
)

// Installer drives packages from the catalog through the install flow.
type Installer struct {
	Catalog  *catalog.Catalog
	Config   *config.Config
	Registry *Registry
	Logger   *log.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Resolve maps spec to a concrete version of the named package.
func (in *Installer) Resolve(ctx context.Context, name, spec string) (*catalog.Package, version.Resolved, error) {
	pkg, err := in.Catalog.Lookup(name)
	if err != nil {
		return nil, version.Resolved{}, err
	}
	backend, err := in.Registry.Get(pkg.Kind)
	if err != nil {
		return nil, version.Resolved{}, err
	}
	res, err := in.resolve(ctx, pkg, backend, spec)
	return pkg, res, err
}

func (in *Installer) resolve(ctx context.Context, pkg *catalog.Package, tags TagSource, spec string) (version.Resolved, error) {
	opts, err := pkg.VersionOptions()
	if err != nil {
		return version.Resolved{}, err
	}
	list, err := tags.Tags(ctx, pkg)
	if err != nil {
		return version.Resolved{}, err
	}
	res, err := version.Resolve(spec, list, opts)
	if err != nil {
		return version.Resolved{}, fmt.Errorf("resolving %s %s: %w", pkg.Name, spec, err)
	}
	in.logger().Info("resolved version", "package", pkg.Name, "spec", spec, "version", res.Version, "tag", res.Tag)
	return res, nil
}

// Install resolves, builds and installs one version of the named package,
// then updates its default alias. An existing install that already
// contains the package binary is not rebuilt unless Clobber or AlwaysRun
// is set.
func (in *Installer) Install(ctx context.Context, name, spec string, opts InstallOptions) (*InstallResult, error) {
	pkg, err := in.Catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	backend, err := in.Registry.Get(pkg.Kind)
	if err != nil {
		return nil, err
	}
	res, err := in.resolve(ctx, pkg, backend, spec)
	if err != nil {
		return nil, err
	}

	tree := in.tree(pkg, opts.Prefix)
	result := &InstallResult{Package: pkg.Name, Resolved: res}

	dir, err := tree.Prepare(res.Version)
	existed := errors.Is(err, installtree.ErrAlreadyInstalled)
	if err != nil && !existed {
		return nil, err
	}
	result.Dir = dir

	if existed && tree.HasBinary(res.Version, pkg.Binary) && !opts.Clobber && !opts.AlwaysRun {
		in.logger().Info("already installed", "package", pkg.Name, "version", res.Version, "dir", dir)
		result.Skipped = true
		return result, in.alias(tree, result, opts)
	}

	if err := in.buildVersion(ctx, pkg, backend, dir, opts, result); err != nil {
		if !existed {
			// Only removes the directory if the failed run left it empty.
			_ = os.Remove(dir)
		}
		return result, err
	}
	if opts.NoInstall {
		if !existed {
			_ = os.Remove(dir)
		}
		return result, nil
	}
	return result, in.alias(tree, result, opts)
}

func (in *Installer) buildVersion(ctx context.Context, pkg *catalog.Package, backend Backend, dir string, opts InstallOptions, result *InstallResult) (err error) {
	wd, err := workdir.New(in.Config.WorkRoot, "srcinstall-"+pkg.Name+"-")
	if err != nil {
		return err
	}
	defer func() {
		if opts.KeepWorkDir || (err != nil && opts.KeepOnFailure) {
			wd.Preserve()
			result.WorkDir = wd.Path()
			in.logger().Info("keeping working directory", "dir", wd.Path())
		}
		if cerr := wd.Close(); cerr != nil {
			in.logger().Warn("could not remove working directory", "dir", wd.Path(), "err", cerr)
		}
	}()

	srcDir := wd.Join("src")
	vars := render.Vars{
		Name:      pkg.Name,
		Version:   result.Resolved.Version,
		Tag:       result.Resolved.Tag,
		Prefix:    dir,
		SourceDir: srcDir,
		Jobs:      in.Config.JobCount(),
	}
	env, err := render.RenderEnv(render.MergeEnv(in.Catalog.Variables, pkg.Env), vars)
	if err != nil {
		return fmt.Errorf("package '%s': %w", pkg.Name, err)
	}
	vars.Env = env

	fetched, err := backend.Fetch(ctx, FetchRequest{
		Package:   pkg,
		Resolved:  result.Resolved,
		Vars:      vars,
		WorkDir:   wd.Path(),
		SourceDir: srcDir,
	})
	if err != nil {
		return err
	}
	result.Sources = fetched.Sources
	result.Commit = fetched.Commit

	if len(pkg.Overrides) > 0 {
		proc := &render.OverrideProcessor{BaseDir: pkg.Dir}
		if err := proc.Apply(srcDir, pkg.Overrides); err != nil {
			return fmt.Errorf("package '%s': %w", pkg.Name, err)
		}
	}

	plan, err := in.plan(pkg, vars, opts)
	if err != nil {
		return err
	}
	runner := &build.Runner{
		Dir:    srcDir,
		LogDir: wd.Path(),
		Env:    build.CleanEnv(in.Config.EnvOptions(env)),
		Logger: in.logger(),
	}
	result.Execution, err = plan.Execute(ctx, runner)
	if err != nil || opts.NoInstall {
		return err
	}

	result.Logs, err = installtree.PreserveLogs(wd.Path(), dir)
	if err != nil {
		return err
	}
	return installtree.WriteReceipt(dir, &installtree.Receipt{
		Package:     pkg.Name,
		Version:     result.Resolved.Version,
		Tag:         result.Resolved.Tag,
		Commit:      result.Commit,
		Sources:     result.Sources,
		Prefix:      dir,
		TestsFailed: result.TestsFailed(),
		FinishedAt:  in.now().UTC(),
	})
}

func (in *Installer) plan(pkg *catalog.Package, vars render.Vars, opts InstallOptions) (*build.Plan, error) {
	plan := &build.Plan{
		RunTests:   opts.RunTests,
		TestPolicy: opts.TestPolicy,
		NoInstall:  opts.NoInstall,
	}
	stages := []struct {
		stage build.Stage
		argv  []string
		out   *[]string
	}{
		{build.Configure, pkg.Configure, &plan.Configure},
		{build.Compile, pkg.Compile, &plan.Compile},
		{build.Test, pkg.Test, &plan.Test},
		{build.Install, pkg.Install, &plan.Install},
	}
	for _, s := range stages {
		argv, err := render.RenderArgs(s.argv, vars)
		if err != nil {
			return nil, fmt.Errorf("package '%s' %s: %w", pkg.Name, s.stage, err)
		}
		*s.out = argv
	}
	return plan, nil
}

func (in *Installer) alias(tree *installtree.Tree, result *InstallResult, opts InstallOptions) error {
	action, err := tree.AddDefaultSymlink(result.Resolved.Version, opts.Alias)
	if err != nil {
		return err
	}
	result.Alias = action
	in.logger().Info("default alias", "package", result.Package, "version", result.Resolved.Version, "action", action)
	return nil
}

// SetDefault points the package's default alias at an installed version.
func (in *Installer) SetDefault(name, ver, prefix string) (installtree.AliasAction, error) {
	pkg, err := in.Catalog.Lookup(name)
	if err != nil {
		return "", err
	}
	return in.tree(pkg, prefix).AddDefaultSymlink(ver, installtree.DefaultAliasPolicy())
}

// List reports the installed versions of the named package.
func (in *Installer) List(name, prefix string) (*Listing, error) {
	pkg, err := in.Catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	tree := in.tree(pkg, prefix)
	installed, err := tree.Installed()
	if err != nil {
		return nil, err
	}
	l := &Listing{Package: pkg.Name, Kind: pkg.Kind, Base: tree.Base, Installed: installed}
	if def, err := tree.Default(); err == nil {
		l.Default = def
	}
	return l, nil
}

// ListAll reports every catalog package in name order.
func (in *Installer) ListAll() ([]*Listing, error) {
	names := in.Catalog.Names()
	out := make([]*Listing, 0, len(names))
	for _, name := range names {
		l, err := in.List(name, "")
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (in *Installer) tree(pkg *catalog.Package, prefix string) *installtree.Tree {
	if prefix != "" {
		return &installtree.Tree{Base: prefix}
	}
	return &installtree.Tree{Base: filepath.Join(in.Config.Root, pkg.Name)}
}

func (in *Installer) logger() *log.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return log.Default()
}

func (in *Installer) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}
