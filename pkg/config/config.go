// Package config provides configuration loading and management for the
// vessel pipeline. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Channel is the fluorescence channel extracted from
		// multi-channel sources (0 = red, 1 = green, 2 = blue)
		Channel int `yaml:"channel"`

		// MetadataFile is the sidecar filename carrying calibration
		// metadata, looked up next to the slice images
		MetadataFile string `yaml:"metadataFile"`
	} `yaml:"input"`

	// Segmentation parameters
	Segmentation struct {
		// Filter names the vesselness filter
		Filter string `yaml:"filter"`

		// Sigma1 is the primary filter scale range (half-open)
		Sigma1 imaging.ScaleRange `yaml:"sigma1"`

		// Sigma2 is the secondary scale range for multi-scale runs
		Sigma2 imaging.ScaleRange `yaml:"sigma2"`

		// HoleSize is the largest background hole filled inside
		// segmented vessels, in pixels
		HoleSize int `yaml:"holeSize"`

		// MinObjectSize removes foreground components smaller than
		// this many pixels
		MinObjectSize int `yaml:"minObjectSize"`

		// Threshold is the binarization cutoff as a percentage of the
		// maximum filter response
		Threshold float64 `yaml:"threshold"`

		// Preprocess enables smoothing and contrast stretching before
		// filtering
		Preprocess bool `yaml:"preprocess"`

		// MultiScale adds the Sigma2 response on top of Sigma1
		MultiScale bool `yaml:"multiScale"`
	} `yaml:"segmentation"`

	// Density parameters
	Density struct {
		// TileHeight and TileWidth define the vessel density tiling
		TileHeight int `yaml:"tileHeight"`
		TileWidth  int `yaml:"tileWidth"`
	} `yaml:"density"`

	// Output parameters
	Output struct {
		// Dir is the directory artifacts are committed to
		Dir string `yaml:"dir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default input parameters (CD31 stains land on channel 1)
	cfg.Input.Channel = 1
	cfg.Input.MetadataFile = "metadata.yaml"

	// Set default segmentation parameters
	cfg.Segmentation.Filter = "frangi"
	cfg.Segmentation.Sigma1 = imaging.ScaleRange{Start: 1, Stop: 8, Step: 1}
	cfg.Segmentation.Sigma2 = imaging.ScaleRange{Start: 10, Stop: 20, Step: 5}
	cfg.Segmentation.HoleSize = 50
	cfg.Segmentation.MinObjectSize = 500
	cfg.Segmentation.Threshold = 60
	cfg.Segmentation.Preprocess = true
	cfg.Segmentation.MultiScale = true

	// Set default density parameters
	cfg.Density.TileHeight = 16
	cfg.Density.TileWidth = 16

	// Set default output parameters
	cfg.Output.Dir = "vessel_analysis_output"
	cfg.Output.Verbose = true

	return cfg
}

// SegmentationParams assembles the imaging-level segmentation parameters
// from the configuration
func (c *Config) SegmentationParams() imaging.SegmentationParams {
	return imaging.SegmentationParams{
		Filter:        c.Segmentation.Filter,
		Sigma1:        c.Segmentation.Sigma1,
		Sigma2:        c.Segmentation.Sigma2,
		HoleSize:      c.Segmentation.HoleSize,
		MinObjectSize: c.Segmentation.MinObjectSize,
		Threshold:     c.Segmentation.Threshold,
		Preprocess:    c.Segmentation.Preprocess,
		MultiScale:    c.Segmentation.MultiScale,
	}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
