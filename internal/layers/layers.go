// Package layers finds and loads the files behind a layered setting. Each
// setting is read from an optional embedded default, a system-wide file, a
// per-user file under the XDG config home, and a file named on the command
// line, in rising order of precedence.
package layers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
)

// AppDir is the directory holding srcinstall files under /etc and the
// XDG config home.
const AppDir = "srcinstall"

// NoInheritEnv set to "1" or "true" limits discovery to the project layer.
const NoInheritEnv = "SRCINSTALL_NO_INHERIT"

// Level represents the precedence level of a layer.
type Level string

const (
	Builtin Level = "builtin"
	System  Level = "system"
	User    Level = "user"
	Project Level = "project"
)

// Layer describes one source of settings and its load status. The builtin
// layer has no path.
type Layer struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  Level
	Loaded bool
}

// Kind describes one layered setting.
type Kind struct {
	// File is the base name looked for at the system and user levels,
	// e.g. "config.yaml".
	File string
	// Builtin puts an embedded layer below the files.
	Builtin bool
}

// Options controls which layers are considered.
type Options struct {
	// ProjectPath is an explicit file, usually from a command-line flag.
	ProjectPath string

	// SystemPath and UserPath override the platform defaults. Set them to
	// a nonexistent path to skip the layer.
	SystemPath string
	UserPath   string

	// NoInherit skips the system and user layers. NoInheritEnv has the
	// same effect.
	NoInherit bool

	// NoBuiltin leaves the embedded layer out.
	NoBuiltin bool
}

// Discover returns the layers to check, from lowest precedence to highest.
// File layers are deduplicated by absolute path, so a project file that is
// also the user file is read once, at the lower level.
func Discover(kind Kind, opts Options) []Layer {
	var out []Layer
	if kind.Builtin && !opts.NoBuiltin {
		out = append(out, Layer{Level: Builtin})
	}

	seen := make(map[string]bool)
	add := func(level Level, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, Layer{Path: path, Level: level})
	}

	if !opts.NoInherit && !EnvNoInherit() {
		add(System, orDefault(opts.SystemPath, SystemPath(kind.File)))
		add(User, orDefault(opts.UserPath, UserPath(kind.File)))
	}
	add(Project, opts.ProjectPath)
	return out
}

// Load calls load for each layer in order and records the outcome on it.
// Missing system and user files are skipped. A missing project file is an
// error because it was asked for by name. Loading stops at the first
// failure, which is also stored in that layer's Err.
func Load(ls []Layer, load func(Layer) error) error {
	for i := range ls {
		l := &ls[i]
		if l.Level != Builtin {
			if _, err := os.Stat(l.Path); errors.Is(err, os.ErrNotExist) {
				if l.Level != Project {
					continue
				}
				l.Err = fmt.Errorf("%w: %s", os.ErrNotExist, l.Path)
				return l.Err
			}
		}
		if err := load(*l); err != nil {
			l.Err = err
			return err
		}
		l.Loaded = true
	}
	return nil
}

// SystemPath returns the platform-standard system path for file.
func SystemPath(file string) string {
	if runtime.GOOS == "windows" {
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, AppDir, file)
	}
	return filepath.Join("/etc", AppDir, file)
}

// UserPath returns $XDG_CONFIG_HOME/srcinstall/<file>, or "" when there is
// no config home.
func UserPath(file string) string {
	if xdg.ConfigHome == "" {
		return ""
	}
	return filepath.Join(xdg.ConfigHome, AppDir, file)
}

// EnvNoInherit reports whether NoInheritEnv is "1" or "true" (any case).
func EnvNoInherit() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(NoInheritEnv)))
	return v == "1" || v == "true"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
