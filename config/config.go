// Package config loads project defaults from a .jsontrans.yaml file.
//
// When a .jsontrans.yaml file exists in the working directory, its values
// become the defaults for the translate command. Command-line flags always
// win over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".jsontrans.yaml"

// File is the top-level .jsontrans.yaml structure.
type File struct {
	// SourceLang is the source language code (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the default target language list.
	Languages []string `yaml:"languages,omitempty"`
	// Mode: "merged" or "blog".
	Mode string `yaml:"mode,omitempty"`
	// Backend: "openai" or "amazon".
	Backend string `yaml:"backend,omitempty"`
	// Model overrides the OpenAI model name.
	Model string `yaml:"model,omitempty"`
	// OutputDir is where translated documents are written.
	OutputDir string `yaml:"output_dir,omitempty"`
	// BatchSize caps strings per backend request.
	BatchSize int `yaml:"batch_size,omitempty"`
	// MaxConcurrent caps in-flight backend requests.
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
	// MaxRetries bounds retries of rate-limited batches.
	MaxRetries int `yaml:"max_retries,omitempty"`
	// Proxy is an HTTP proxy URL for backend requests.
	Proxy string `yaml:"proxy,omitempty"`
}

// Load reads .jsontrans.yaml from the given directory.
// Returns nil if no config file exists.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}
