// Package config loads the aperture configuration from a YAML file and
// fills in defaults for anything the file leaves out.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"aperture/internal/decision"
	"aperture/internal/oracle"
)

// Config is the full application configuration.
type Config struct {
	Oracle    OracleConfig      `yaml:"oracle"`
	Weights   *decision.Weights `yaml:"weights,omitempty"`
	OutputDir string            `yaml:"output_dir"`
	// SystemPromptFile points at a replacement grading rubric.
	SystemPromptFile string    `yaml:"system_prompt_file,omitempty"`
	Log              LogConfig `yaml:"log"`
}

// OracleConfig configures the vision model client. APIKeyFile takes
// precedence over APIKey so the key can stay out of the config file.
type OracleConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key,omitempty"`
	APIKeyFile     string `yaml:"api_key_file,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Oracle: OracleConfig{
			BaseURL:        oracle.DefaultBaseURL,
			Model:          oracle.DefaultModel,
			TimeoutSeconds: 120,
		},
		OutputDir: "output",
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config file. Fields absent from the file keep their
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = oracle.DefaultBaseURL
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = oracle.DefaultModel
	}
	if cfg.Oracle.TimeoutSeconds <= 0 {
		cfg.Oracle.TimeoutSeconds = 120
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	return cfg, nil
}

// ResolveAPIKey returns the oracle API key: the key file wins, then the
// inline key, then the OPENAI_API_KEY environment variable.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.Oracle.APIKeyFile != "" {
		data, err := os.ReadFile(c.Oracle.APIKeyFile)
		if err != nil {
			return "", fmt.Errorf("read api key file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if c.Oracle.APIKey != "" {
		return c.Oracle.APIKey, nil
	}
	return os.Getenv("OPENAI_API_KEY"), nil
}

// SystemPrompt reads the replacement rubric, or returns "" when none is
// configured.
func (c *Config) SystemPrompt() (string, error) {
	if c.SystemPromptFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("read system prompt file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
