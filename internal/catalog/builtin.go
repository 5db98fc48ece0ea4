package catalog

import (
	_ "embed"
	"fmt"
	"sort"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Builtin returns the catalog shipped with the binary.
func Builtin() (*Catalog, error) {
	cat, err := Parse(builtinYAML, "")
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return cat, nil
}

// Lookup returns the package called name.
func (c *Catalog) Lookup(name string) (*Package, error) {
	for i := range c.Packages {
		if c.Packages[i].Name == name {
			return &c.Packages[i], nil
		}
	}
	return nil, fmt.Errorf("unknown package '%s' — run 'srcinstall list' to see available packages or add it to a catalog", name)
}

// Names returns the package names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Packages))
	for _, p := range c.Packages {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
