package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the reference defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Input.Channel != 1 {
		t.Errorf("Expected default channel 1, got %d", cfg.Input.Channel)
	}
	if cfg.Segmentation.Filter != "frangi" {
		t.Errorf("Expected default filter frangi, got %q", cfg.Segmentation.Filter)
	}
	if cfg.Segmentation.HoleSize != 50 || cfg.Segmentation.MinObjectSize != 500 {
		t.Errorf("Expected hole size 50 and min object size 500, got %d and %d",
			cfg.Segmentation.HoleSize, cfg.Segmentation.MinObjectSize)
	}
	if cfg.Density.TileHeight != 16 || cfg.Density.TileWidth != 16 {
		t.Errorf("Expected 16x16 density tiles, got %dx%d", cfg.Density.TileHeight, cfg.Density.TileWidth)
	}

	// The primary scale range expands to the seven reference scales.
	scales := cfg.Segmentation.Sigma1.Values()
	if len(scales) != 7 {
		t.Errorf("Expected 7 sigma1 scales, got %d (%v)", len(scales), scales)
	}
}

// TestLoadConfigMissingFile verifies that a missing config file yields the
// defaults without an error
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Failed to load missing config: %v", err)
	}
	if cfg.Segmentation.Threshold != 60 {
		t.Errorf("Expected default threshold 60, got %v", cfg.Segmentation.Threshold)
	}
}

// TestLoadConfigOverridesDefaults verifies that file values override defaults
// while omitted fields keep theirs
func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
input:
  channel: 2
segmentation:
  threshold: 45
  sigma1:
    start: 2
    stop: 6
    step: 2
output:
  dir: out
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Input.Channel != 2 {
		t.Errorf("Expected channel 2, got %d", cfg.Input.Channel)
	}
	if cfg.Segmentation.Threshold != 45 {
		t.Errorf("Expected threshold 45, got %v", cfg.Segmentation.Threshold)
	}
	if got := cfg.Segmentation.Sigma1.Values(); len(got) != 2 {
		t.Errorf("Expected 2 sigma1 scales, got %v", got)
	}
	if cfg.Output.Dir != "out" {
		t.Errorf("Expected output dir %q, got %q", "out", cfg.Output.Dir)
	}

	// Untouched fields keep their defaults.
	if cfg.Segmentation.HoleSize != 50 {
		t.Errorf("Expected default hole size 50, got %d", cfg.Segmentation.HoleSize)
	}
	if !cfg.Segmentation.MultiScale {
		t.Error("Expected multiScale to stay enabled by default")
	}
}

// TestSaveConfigRoundTrip verifies save and reload
func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Input.Channel = 0
	cfg.Segmentation.MinObjectSize = 120

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.Input.Channel != 0 {
		t.Errorf("Expected channel 0 after round trip, got %d", loaded.Input.Channel)
	}
	if loaded.Segmentation.MinObjectSize != 120 {
		t.Errorf("Expected min object size 120 after round trip, got %d", loaded.Segmentation.MinObjectSize)
	}
}
