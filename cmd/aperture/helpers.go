package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"aperture/internal/config"
	"aperture/internal/cull"
	"aperture/internal/logging"
	"aperture/internal/oracle"
)

// loadConfig reads the --config file (or defaults) and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	return cfg, nil
}

// buildPipeline wires a culling pipeline from the configuration.
func buildPipeline(cfg *config.Config) (*cull.Pipeline, error) {
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	client := oracle.NewClient(oracle.Config{
		BaseURL: cfg.Oracle.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.Oracle.Model,
		Timeout: time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
	})

	opts := []cull.Option{cull.WithOutputDir(cfg.OutputDir)}
	if cfg.Weights != nil {
		opts = append(opts, cull.WithWeights(*cfg.Weights))
	}
	prompt, err := cfg.SystemPrompt()
	if err != nil {
		return nil, err
	}
	if prompt != "" {
		opts = append(opts, cull.WithSystemPrompt(prompt))
	}
	return cull.New(client, opts...)
}

// gatherImages expands the argument list into photo files: directories
// contribute their .jpg/.jpeg entries (non-recursive), files pass through.
func gatherImages(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if ext == ".jpg" || ext == ".jpeg" {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
