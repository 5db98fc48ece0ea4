package catalog

import "fmt"

// Merge combines two catalogs where overlay takes precedence over base:
//   - version: must agree if both declare it
//   - variables: deep merge, overlay keys win
//   - packages: merge by name; an overlay entry replaces the base entry
func Merge(base, overlay *Catalog) (*Catalog, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Catalog{}
	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}
	result.Variables = mergeVariables(base.Variables, overlay.Variables)
	result.Packages = mergePackages(base.Packages, overlay.Packages)
	return result, nil
}

// MergeAll merges catalogs in order, lowest precedence first.
func MergeAll(catalogs []*Catalog) (*Catalog, error) {
	if len(catalogs) == 0 {
		return nil, fmt.Errorf("no catalogs to merge")
	}

	result := catalogs[0]
	for i := 1; i < len(catalogs); i++ {
		var err error
		result, err = Merge(result, catalogs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0:
		*out = overlay
	case overlay == 0, base == overlay:
		*out = base
	default:
		return fmt.Errorf("catalog version mismatch: one layer declares version %d, another declares version %d — all catalog layers must agree on version", base, overlay)
	}
	return nil
}

func mergeVariables(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}

	result := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v
	}
	return result
}

func mergePackages(base, overlay []Package) []Package {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	overlayNames := make(map[string]bool, len(overlay))
	for _, p := range overlay {
		overlayNames[p.Name] = true
	}

	var result []Package
	for _, p := range base {
		if !overlayNames[p.Name] {
			result = append(result, p)
		}
	}
	return append(result, overlay...)
}
