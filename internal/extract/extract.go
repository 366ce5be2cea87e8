// Package extract turns segmented datasheet text into a component record,
// package record, and pin list by calling a language model backend.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2comp/internal/segment"
	"github.com/pdiddy/pdf2comp/pkg/types"
)

const (
	markdownDir  = "markdown"
	extractedDir = "extracted"

	// preambleLimit caps how much of the preamble goes into the context.
	preambleLimit = 2000
	// rawLimit caps the raw text used when no sections were identified.
	rawLimit = 50000

	unknown        = "Unknown"
	defaultPinType = "Passive"
)

// Backend abstracts the language model so tests can supply a mock.
// Implementations receive the assembled datasheet context and return the
// decoded JSON answer.
type Backend interface {
	Extract(ctx context.Context, datasheet string) (Response, error)
}

// Response is the structured answer the backend returns for one document.
type Response struct {
	Component ResponseComponent `json:"component" yaml:"component"`
	Package   ResponsePackage   `json:"package" yaml:"package"`
	Pins      []ResponsePin     `json:"pins" yaml:"pins"`
}

// ResponseComponent is the component block of a Response.
type ResponseComponent struct {
	PartNumber   string `json:"part_number" yaml:"part_number"`
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Description  string `json:"description" yaml:"description"`
}

// ResponsePackage is the package block of a Response.
type ResponsePackage struct {
	Name        string             `json:"name" yaml:"name"`
	PackageType string             `json:"package_type" yaml:"package_type"`
	Dimensions  map[string]float64 `json:"dimensions" yaml:"dimensions"`
}

// ResponsePin is one pin as returned by the backend. Number accepts both
// JSON strings and numbers.
type ResponsePin struct {
	Number         flexString `json:"number" yaml:"number"`
	Name           string     `json:"name" yaml:"name"`
	ElectricalType string     `json:"electrical_type" yaml:"electrical_type"`
	Description    string     `json:"description" yaml:"description"`
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pin number must be a string or number: %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any documents failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ExtractAll processes all Markdown files in docsDir/markdown/, extracts
// component data via the backend, and writes results to docsDir/extracted/.
// Documents whose output is newer than the Markdown are skipped.
func ExtractAll(ctx context.Context, backend Backend, cfg types.ExtractionConfig, w io.Writer) (BatchSummary, error) {
	mdDir := filepath.Join(cfg.DocsDir, markdownDir)
	outDir := filepath.Join(cfg.DocsDir, extractedDir)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	entries, err := os.ReadDir(mdDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading markdown directory %s: %w", mdDir, err)
	}

	var summary BatchSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		docID := strings.TrimSuffix(entry.Name(), ".md")
		mdPath := filepath.Join(mdDir, entry.Name())
		outPath := ResultPath(cfg.DocsDir, docID)

		changed, err := hasChanged(mdPath, outPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s\n", docID)
			summary.Skipped++
			continue
		}

		fmt.Fprintf(w, "extracting %s\n", docID)

		result, err := ExtractDocument(ctx, backend, docID, mdPath, cfg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}

		if err := WriteResult(outPath, result); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", docID, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "extracted %s (%s, %d pins)\n", docID, result.Component.PartNumber, len(result.Pins))
		summary.Extracted++
	}

	return summary, nil
}

// ResultPath returns where the extraction result for docID is written.
func ResultPath(docsDir, docID string) string {
	return filepath.Join(docsDir, extractedDir, docID+".yaml")
}

// ExtractDocument segments one Markdown document, builds the model context
// from its sections, and converts the backend's answer into an
// ExtractionResult.
func ExtractDocument(ctx context.Context, backend Backend, docID, mdPath string, cfg types.ExtractionConfig) (*types.ExtractionResult, error) {
	doc, err := segment.ProcessFile(mdPath)
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	resp, err := callWithRetry(ctx, backend, BuildContext(doc.Sections, doc.Content), maxRetries)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", docID, err)
	}

	result := convertResponse(resp)
	result.DocumentID = docID
	return result, nil
}

// BuildContext assembles the text sent to the model. When sections were
// identified it concatenates the description, package, and pin sections
// under fixed banners; otherwise it falls back to truncated raw text.
func BuildContext(sections types.SectionMap, raw string) string {
	if sections.Len() == 0 {
		return truncate(raw, rawLimit)
	}

	var b strings.Builder
	b.WriteString("--- COMPONENT DESCRIPTION ---\n")
	b.WriteString(sections.Get(types.SectionDescription) + "\n")
	b.WriteString(sections.Get(types.SectionFeatures) + "\n")
	b.WriteString(truncate(sections.Get(types.SectionPreamble), preambleLimit) + "\n")

	b.WriteString("\n--- PACKAGE INFORMATION ---\n")
	b.WriteString(sections.Get(types.SectionPackageDimensions) + "\n")
	b.WriteString(sections.Get(types.SectionOrderingInformation) + "\n")

	b.WriteString("\n--- PIN CONFIGURATION ---\n")
	b.WriteString(sections.Get(types.SectionPinConfiguration) + "\n")
	return b.String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff.
func callWithRetry(ctx context.Context, backend Backend, datasheet string, maxRetries int) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Extract(ctx, datasheet)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// convertResponse fills defaults the model left empty: part number,
// manufacturer, package name and type become "Unknown"; pin electrical
// type becomes "Passive".
func convertResponse(resp Response) *types.ExtractionResult {
	result := &types.ExtractionResult{
		Component: types.Component{
			PartNumber:   orDefault(resp.Component.PartNumber, unknown),
			Manufacturer: orDefault(resp.Component.Manufacturer, unknown),
			Description:  strings.TrimSpace(resp.Component.Description),
		},
		Package: types.Package{
			Name:        orDefault(resp.Package.Name, unknown),
			PackageType: orDefault(resp.Package.PackageType, unknown),
			Dimensions:  resp.Package.Dimensions,
		},
	}

	for _, p := range resp.Pins {
		result.Pins = append(result.Pins, types.Pin{
			Number:         strings.TrimSpace(string(p.Number)),
			Name:           strings.TrimSpace(p.Name),
			ElectricalType: orDefault(p.ElectricalType, defaultPinType),
			Description:    strings.TrimSpace(p.Description),
		})
	}
	return result
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// hasChanged reports whether the Markdown file is newer than the output file.
// Returns true if the output does not exist or the Markdown is more recent.
func hasChanged(mdPath, outPath string) (bool, error) {
	mdInfo, err := os.Stat(mdPath)
	if err != nil {
		return false, fmt.Errorf("stat markdown %s: %w", mdPath, err)
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", outPath, err)
	}

	return mdInfo.ModTime().After(outInfo.ModTime()), nil
}

// WriteResult marshals the ExtractionResult to a YAML file.
func WriteResult(path string, result *types.ExtractionResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResult loads an ExtractionResult written by WriteResult.
func ReadResult(path string) (*types.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result %s: %w", path, err)
	}
	var result types.ExtractionResult
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing result %s: %w", path, err)
	}
	return &result, nil
}
