package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestConvertCommand runs the CLI end to end with a YAML geometry sidecar
func TestConvertCommand(t *testing.T) {
	tmpDir := t.TempDir()
	rois := filepath.Join(tmpDir, "rois")
	os.MkdirAll(rois, 0755)
	os.WriteFile(filepath.Join(rois, "Patient_002_liver_1.json"),
		[]byte(`{"markups": [{"center": [10, 20, 30], "size": [5, 5, 5]}]}`), 0644)
	image := filepath.Join(tmpDir, "image.yaml")
	os.WriteFile(image, []byte("resolution: [1, 1, 1]\nshape: [100, 100, 100]\n"+
		"affine: [[1, 0, 0, 50], [0, 1, 0, -50], [0, 0, 1, -50], [0, 0, 0, 1]]\n"), 0644)
	output := filepath.Join(tmpDir, "labels.txt")
	classes := filepath.Join(tmpDir, "classes.txt")

	args := []string{"roi2bb",
		"--config", filepath.Join(tmpDir, "absent.yaml"),
		"--index-base", "1",
		"--precision", "3",
		"--classes-out", classes,
		image, rois, output,
	}
	if err := newApp().Run(args); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if string(data) != "1 0.800 0.600 0.300 0.050 0.050 0.050" {
		t.Errorf("Unexpected output %q", data)
	}
	names, _ := os.ReadFile(classes)
	if string(names) != "liver\n" {
		t.Errorf("Unexpected class names %q", names)
	}
}

// TestConvertCommandErrors verifies argument and configuration errors
func TestConvertCommandErrors(t *testing.T) {
	tmpDir := t.TempDir()
	absent := filepath.Join(tmpDir, "absent.yaml")

	testCases := [][]string{
		{"roi2bb", "--config", absent, "only-one-arg"},
		{"roi2bb", "--config", absent, "--index-base", "5", "a.nii", tmpDir, "out.txt"},
		{"roi2bb", "--config", absent, "--mode", "4d", "a.nii", tmpDir, "out.txt"},
		{"roi2bb", "--config", absent, "image.unknown", tmpDir, filepath.Join(tmpDir, "out.txt")},
	}

	for _, args := range testCases {
		if err := newApp().Run(args); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}

// TestInitConfigCommand verifies that the default configuration is written
func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roi2bb.yaml")
	if err := newApp().Run([]string{"roi2bb", "init-config", path}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not written: %v", err)
	}
}
