// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2comp/pkg/types"
)

// ErrUnsupportedFormat is returned by ProcessFile for files that are neither
// Markdown nor JSON converter output.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Document is a converter output file after ingestion.
type Document struct {
	// Path is the file the document was read from.
	Path string

	// Content is the raw Markdown text. Empty for JSON input.
	Content string

	// Sections is the segmented Markdown. Empty for JSON input.
	Sections types.SectionMap

	// Raw holds decoded JSON converter output, nil for Markdown.
	Raw any
}

// ProcessFile reads a converter output file and segments it. Markdown files
// (.md) are segmented; JSON files (.json) are decoded and returned with an
// empty section map.
func ProcessFile(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading markdown %s: %w", path, err)
		}
		content := string(data)
		return &Document{
			Path:     path,
			Content:  content,
			Sections: Segment(content),
		}, nil
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading json %s: %w", path, err)
		}
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing json %s: %w", path, err)
		}
		return &Document{
			Path:     path,
			Sections: types.NewSectionMap(),
			Raw:      raw,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// WriteSections writes sections to path as YAML, one
// key/body entry per section in first-occurrence order.
func WriteSections(path string, sections types.SectionMap) error {
	data, err := yaml.Marshal(sections.Entries())
	if err != nil {
		return fmt.Errorf("marshaling sections: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
