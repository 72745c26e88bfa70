package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const exportTimeFormat = "20060102_150405"

// ExportOne writes a single record to dir as <stem>_<timestamp>.json and
// returns the path written.
func (s *Store) ExportOne(dir, filename string) (string, error) {
	rec, err := s.Get(filename)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	name := fmt.Sprintf("%s_%s.json", stem, time.Now().Format(exportTimeFormat))
	return writeJSON(dir, name, rec)
}

// Export writes every record to dir as all_metadata_<timestamp>.json and
// returns the path written.
func (s *Store) Export(dir string) (string, error) {
	name := fmt.Sprintf("all_metadata_%s.json", time.Now().Format(exportTimeFormat))
	return writeJSON(dir, name, s.All())
}

func writeJSON(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return path, nil
}
