// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdf2comp/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LLMConfig holds settings for the OpenAI-compatible chat completions
// service used for extraction (vLLM in the default deployment).
type LLMConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the API root, without the /chat/completions suffix
	// (default "http://localhost:8000/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the served model name.
	Model string `json:"model" yaml:"model"`

	// APIKey is sent as a bearer token. vLLM accepts any value.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature is the sampling temperature (default 0.1).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	LLMConfig `yaml:",inline"`

	// DocsDir is the base directory for documents (contains markdown/, extracted/).
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`
}

// SymbolConfig holds settings for the symbol stage.
type SymbolConfig struct {
	// OutputDir receives generated .kicad_sym files.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// CorrectionConfig holds settings for the correction log.
type CorrectionConfig struct {
	// DBPath is the SQLite database file (default "pdf2comp.db").
	DBPath string `json:"db_path" yaml:"db_path"`

	// ExportDir receives corrections export files.
	ExportDir string `json:"export_dir" yaml:"export_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Extraction  ExtractionConfig `json:"extraction" yaml:"extraction"`
	Symbol      SymbolConfig     `json:"symbol" yaml:"symbol"`
	Corrections CorrectionConfig `json:"corrections" yaml:"corrections"`
}
