package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/srcinstall/internal/workdir"
)

// Override patches one file of an unpacked source tree before configure
// runs, e.g. appending to Python's Modules/Setup.local.
type Override struct {
	Target   string `yaml:"target"`
	File     string `yaml:"file"`
	Strategy string `yaml:"strategy"`
}

// Valid override strategies.
const (
	StrategyAppend  = "append"
	StrategyPrepend = "prepend"
	StrategyReplace = "replace"
)

// OverrideProcessor applies overrides whose content files live under
// BaseDir, usually the directory of the catalog that declared them.
type OverrideProcessor struct {
	BaseDir string
}

// ValidateOverrides checks that every override file exists.
func (o *OverrideProcessor) ValidateOverrides(overrides []Override) error {
	for _, ov := range overrides {
		absPath := filepath.Join(o.BaseDir, ov.File)
		if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("override for '%s': file '%s' does not exist — create it or remove the override", ov.Target, ov.File)
		} else if err != nil {
			return fmt.Errorf("override for '%s': checking file '%s': %w", ov.Target, ov.File, err)
		}
	}
	return nil
}

// Apply patches the files in srcDir. A replace may create its target; the
// other strategies require it to exist.
func (o *OverrideProcessor) Apply(srcDir string, overrides []Override) error {
	for _, ov := range overrides {
		target, err := workdir.ValidatePath(srcDir, ov.Target)
		if err != nil {
			return fmt.Errorf("override for '%s': %w", ov.Target, err)
		}
		addition, err := os.ReadFile(filepath.Join(o.BaseDir, ov.File))
		if err != nil {
			return fmt.Errorf("override for '%s': reading override file '%s': %w", ov.Target, ov.File, err)
		}

		existing, err := os.ReadFile(target)
		if err != nil && !(errors.Is(err, os.ErrNotExist) && ov.Strategy == StrategyReplace) {
			return fmt.Errorf("override for '%s': target file does not exist in the source tree", ov.Target)
		}

		merged, err := merge(existing, addition, ov.Strategy)
		if err != nil {
			return fmt.Errorf("override for '%s': %w", ov.Target, err)
		}

		mode := os.FileMode(0o644)
		if info, err := os.Stat(target); err == nil {
			mode = info.Mode().Perm()
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, merged, mode); err != nil {
			return fmt.Errorf("override for '%s': writing: %w", ov.Target, err)
		}
	}
	return nil
}

func merge(existing, addition []byte, strategy string) ([]byte, error) {
	switch strategy {
	case StrategyAppend:
		return appendContent(existing, addition), nil
	case StrategyPrepend:
		return prependContent(existing, addition), nil
	case StrategyReplace:
		return addition, nil
	default:
		return nil, fmt.Errorf("invalid strategy '%s'", strategy)
	}
}

func appendContent(original, addition []byte) []byte {
	if len(original) > 0 && original[len(original)-1] != '\n' {
		original = append(original, '\n')
	}
	return append(original, addition...)
}

func prependContent(original, addition []byte) []byte {
	if len(addition) > 0 && addition[len(addition)-1] != '\n' {
		addition = append(addition, '\n')
	}
	return append(addition, original...)
}
