package config

import "github.com/bianoble/srcinstall/internal/layers"

// FileName is the config file looked for at each level.
const FileName = "config.yaml"

var kind = layers.Kind{File: FileName}

// Level is the precedence level of a config file.
type Level = layers.Level

const (
	LevelSystem  = layers.System
	LevelUser    = layers.User
	LevelProject = layers.Project
)

// LayerInfo describes a discovered config file and its load status.
type LayerInfo = layers.Layer

// DiscoverOptions controls which config files are read. ProjectPath is
// usually --config.
type DiscoverOptions = layers.Options

// DiscoverPaths returns the config files to check, from lowest precedence
// (system) to highest (project).
func DiscoverPaths(opts DiscoverOptions) []LayerInfo {
	return layers.Discover(kind, opts)
}

// DefaultSystemConfigPath returns the platform-standard system config path.
func DefaultSystemConfigPath() string {
	return layers.SystemPath(FileName)
}

// DefaultUserConfigPath returns $XDG_CONFIG_HOME/srcinstall/config.yaml.
func DefaultUserConfigPath() string {
	return layers.UserPath(FileName)
}
