// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corrections

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2comp/pkg/types"
)

// Export file names written under the store's export directory.
const (
	ExportYAMLFile = "corrections.yaml"
	ExportJSONFile = "corrections.json"
)

// ExportYAML writes the records matching opts to corrections.yaml and
// returns the path written. A zero Limit exports everything.
func (s *Store) ExportYAML(ctx context.Context, opts ListOptions) (string, error) {
	records, err := s.exportRecords(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport(ExportYAMLFile, data)
}

// ExportJSON writes the records matching opts to corrections.json and
// returns the path written. A zero Limit exports everything.
func (s *Store) ExportJSON(ctx context.Context, opts ListOptions) (string, error) {
	records, err := s.exportRecords(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport(ExportJSONFile, data)
}

func (s *Store) exportRecords(ctx context.Context, opts ListOptions) ([]types.CorrectionRecord, error) {
	if opts.Limit == 0 {
		opts.Limit = -1
	}
	records, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []types.CorrectionRecord{}
	}
	return records, nil
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(s.exportDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
