package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Backends that can label images
const (
	BackendRekognition = "rekognition"
	BackendOllama      = "ollama"
	BackendLlamaCpp    = "llamacpp"
)

// Config holds the application configuration
type Config struct {
	InputFolder string           `json:"input_folder"`
	OutputFile  string           `json:"output_file"`
	Selection   SelectionConfig  `json:"selection"`
	Compliance  ComplianceConfig `json:"compliance"`
	Labeling    LabelingConfig   `json:"labeling"`
}

// SelectionConfig controls which files a run processes
type SelectionConfig struct {
	Mode           string   `json:"selection_mode"`
	Files          []string `json:"files"`
	SampleFraction float64  `json:"sample_fraction"`
	// Seed makes random sampling reproducible when set
	Seed *uint64 `json:"seed,omitempty"`
}

// ComplianceConfig holds the payload limits images are shrunk to
type ComplianceConfig struct {
	MaxSizeMB    float64 `json:"max_size_mb"`
	MaxDimension int     `json:"max_dimension"`
	Quality      int     `json:"quality"`
}

// LabelingConfig holds configuration for the labeling backend
type LabelingConfig struct {
	Backend         string `json:"backend"`
	LabelCap        int    `json:"label_cap"`
	ImageProperties bool   `json:"image_properties"`
	// Region overrides the AWS region for the rekognition backend
	Region string `json:"region,omitempty"`
	// Model and URL apply to the ollama and llamacpp backends
	Model string `json:"model,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		InputFolder: "./images",
		OutputFile:  "./results/rekognition_output.json",
		Selection: SelectionConfig{
			Mode:           "explicit",
			SampleFraction: 0.5,
		},
		Compliance: ComplianceConfig{
			MaxSizeMB:    5,
			MaxDimension: 2000,
			Quality:      85,
		},
		Labeling: LabelingConfig{
			Backend:         BackendRekognition,
			LabelCap:        10,
			ImageProperties: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MaxBytes converts MaxSizeMB to bytes
func (c *ComplianceConfig) MaxBytes() int64 {
	return int64(c.MaxSizeMB * 1024 * 1024)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.InputFolder == "" {
		return fmt.Errorf("input_folder cannot be empty")
	}

	if c.OutputFile == "" {
		return fmt.Errorf("output_file cannot be empty")
	}

	switch c.Selection.Mode {
	case "explicit":
		if len(c.Selection.Files) == 0 {
			return fmt.Errorf("selection.files cannot be empty in explicit mode")
		}
	case "random":
		if c.Selection.SampleFraction < 0 || c.Selection.SampleFraction > 1 {
			return fmt.Errorf("selection.sample_fraction must be between 0 and 1")
		}
	default:
		return fmt.Errorf("selection.selection_mode must be explicit or random")
	}

	if c.Compliance.MaxSizeMB <= 0 {
		return fmt.Errorf("compliance.max_size_mb must be positive")
	}

	if c.Compliance.MaxDimension < 1 {
		return fmt.Errorf("compliance.max_dimension must be positive")
	}

	if c.Compliance.Quality < 1 || c.Compliance.Quality > 100 {
		return fmt.Errorf("compliance.quality must be between 1 and 100")
	}

	if c.Labeling.LabelCap < 1 {
		return fmt.Errorf("labeling.label_cap must be positive")
	}

	backends := []string{BackendRekognition, BackendOllama, BackendLlamaCpp}
	if !slices.Contains(backends, c.Labeling.Backend) {
		return fmt.Errorf("labeling.backend must be one of %v", backends)
	}

	if c.Labeling.Backend != BackendRekognition && c.Labeling.Model == "" {
		return fmt.Errorf("labeling.model is required for the %s backend", c.Labeling.Backend)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-labeler", "config.json")
}
