package catalog

import "github.com/bianoble/srcinstall/internal/layers"

// FileName is the catalog file looked for at each level.
const FileName = "catalog.yaml"

var kind = layers.Kind{File: FileName, Builtin: true}

// Level is the precedence level of a catalog layer.
type Level = layers.Level

const (
	LevelBuiltin = layers.Builtin
	LevelSystem  = layers.System
	LevelUser    = layers.User
	LevelProject = layers.Project
)

// LayerInfo describes a catalog layer and its load status.
type LayerInfo = layers.Layer

// DiscoverOptions controls which catalogs are read. ProjectPath is usually
// --catalog.
type DiscoverOptions = layers.Options

// DiscoverPaths returns the catalog layers to check, from the embedded
// catalog up to the project file.
func DiscoverPaths(opts DiscoverOptions) []LayerInfo {
	return layers.Discover(kind, opts)
}

// LoadLayers merges every discovered catalog that exists. The returned
// layers report what was loaded.
func LoadLayers(opts DiscoverOptions) (*Catalog, []LayerInfo, error) {
	var catalogs []*Catalog
	found := DiscoverPaths(opts)
	err := layers.Load(found, func(l LayerInfo) error {
		var cat *Catalog
		var err error
		if l.Level == LevelBuiltin {
			cat, err = Builtin()
		} else {
			cat, err = Load(l.Path)
		}
		if err != nil {
			return err
		}
		catalogs = append(catalogs, cat)
		return nil
	})
	if err != nil {
		return nil, found, err
	}

	if len(catalogs) == 0 {
		return &Catalog{Version: 1}, found, nil
	}
	merged, err := MergeAll(catalogs)
	if err != nil {
		return nil, found, err
	}
	return merged, found, nil
}
