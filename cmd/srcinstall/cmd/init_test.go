package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/srcinstall/internal/config"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
}

func TestInitCreatesConfig(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	withConfigPath(t, outPath)

	initForce = false
	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatalf("init: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("generated config is not valid YAML: %v", err)
	}
	if doc["test_policy"] != "continue" {
		t.Errorf("test_policy = %v", doc["test_policy"])
	}
}

func TestInitTemplateLoads(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "config.yaml")
	withConfigPath(t, outPath)

	initForce = false
	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, _, err := config.Load(config.DiscoverOptions{
		ProjectPath: outPath,
		NoInherit:   true,
	})
	if err != nil {
		t.Fatalf("loading generated config: %v", err)
	}
	def := config.Default()
	if cfg.GPGBinary != def.GPGBinary || cfg.TestPolicy != def.TestPolicy || cfg.Alias != def.Alias {
		t.Errorf("template drifted from defaults: %+v", cfg)
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(outPath, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	withConfigPath(t, outPath)

	initForce = false
	err := initCmd.RunE(initCmd, nil)
	if err == nil {
		t.Fatal("expected error when file exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error should mention 'already exists': %v", err)
	}
}

func TestInitForceOverwrites(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(outPath, []byte("old content"), 0o644); err != nil {
		t.Fatal(err)
	}
	withConfigPath(t, outPath)

	initForce = true
	defer func() { initForce = false }()
	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatalf("init --force: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "old content" {
		t.Error("file was not overwritten")
	}
}
