package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TestLoadConfigMissingFile verifies that defaults are returned when no file exists
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected default config, got %+v", cfg)
	}
}

// TestLoadConfigOverrides verifies that file values replace defaults
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roi2bb.yaml")
	doc := `processing:
  mode: 2d-corner
  continueOnError: true
labels:
  strategy: static
  classes:
    liver: 0
    spleen: 1
output:
  precision: 4
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.Mode != "2d-corner" || !cfg.Processing.ContinueOnError {
		t.Errorf("Processing section not loaded: %+v", cfg.Processing)
	}
	if cfg.Output.Precision != 4 {
		t.Errorf("Expected precision 4, got %d", cfg.Output.Precision)
	}
	expected := map[string]int{"liver": 0, "spleen": 1}
	if !reflect.DeepEqual(cfg.Labels.Classes, expected) {
		t.Errorf("Expected classes %v to replace defaults, got %v", expected, cfg.Labels.Classes)
	}
}

// TestLoadConfigInvalid verifies validation of decoded values
func TestLoadConfigInvalid(t *testing.T) {
	testCases := []string{
		"labels:\n  strategy: fuzzy\n",
		"labels:\n  indexBase: 2\n",
		"output:\n  precision: -1\n",
		"processing: [unbalanced\n",
	}

	for i, doc := range testCases {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte(doc), 0644)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("Case %d: expected error for %q", i, doc)
		}
	}
}

// TestSaveAndLoadConfig verifies that a saved default file loads back unchanged
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "roi2bb.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Round trip changed config: %+v", cfg)
	}
}
