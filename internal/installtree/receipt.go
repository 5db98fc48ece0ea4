package installtree

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// ReceiptFile is stored under <install>/.build.
const ReceiptFile = "receipt.yaml"

// Receipt records how an install was produced.
type Receipt struct {
	Package     string    `yaml:"package"`
	Version     string    `yaml:"version"`
	Tag         string    `yaml:"tag"`
	Commit      string    `yaml:"commit,omitempty"`
	Sources     []string  `yaml:"sources,omitempty"`
	Prefix      string    `yaml:"prefix"`
	TestsFailed bool      `yaml:"tests_failed,omitempty"`
	FinishedAt  time.Time `yaml:"finished_at"`
}

// ReceiptPath returns where the receipt for installDir lives.
func ReceiptPath(installDir string) string {
	return filepath.Join(installDir, BuildDir, ReceiptFile)
}

// WriteReceipt stores r for installDir, replacing any previous receipt in
// one step.
func WriteReceipt(installDir string, r *Receipt) error {
	if errs := ValidateReceipt(r); len(errs) > 0 {
		return fmt.Errorf("invalid receipt:\n  - %s", strings.Join(errs, "\n  - "))
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	path := ReceiptPath(installDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing receipt %s: %w", path, err)
	}
	return nil
}

// ReadReceipt loads the receipt for installDir.
func ReadReceipt(installDir string) (*Receipt, error) {
	path := ReceiptPath(installDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading receipt %s: %w", path, err)
	}
	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing receipt %s: %w", path, err)
	}
	return &r, nil
}

// ValidateReceipt returns the problems with r, if any.
func ValidateReceipt(r *Receipt) []string {
	var errs []string
	if r.Package == "" {
		errs = append(errs, "'package' is required")
	}
	if r.Version == "" {
		errs = append(errs, "'version' is required")
	}
	if r.Tag == "" {
		errs = append(errs, "'tag' is required")
	}
	return errs
}
