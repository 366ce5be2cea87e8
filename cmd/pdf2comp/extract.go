// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2comp/internal/extract"
	"github.com/pdiddy/pdf2comp/internal/httputil"
	"github.com/pdiddy/pdf2comp/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [markdown files...]",
	Short: "Extract component, package, and pin data from datasheet Markdown",
	Long: `Extract segments each datasheet, builds a prompt from the description,
package, and pin sections, and asks an OpenAI-compatible model (such as a
local vLLM server) for structured JSON. Results are written as YAML to
<docs-dir>/extracted/<name>.yaml.

With --batch, every file in <docs-dir>/markdown/ is processed and documents
whose output is newer than their Markdown are skipped.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("docs-dir", "docs", "base directory for datasheets (contains markdown/, extracted/)")
	extractCmd.Flags().String("base-url", "", "OpenAI-compatible API base URL")
	extractCmd.Flags().String("model", "", "model identifier")
	extractCmd.Flags().Int("max-retries", 0, "attempts per document before giving up")
	extractCmd.Flags().Bool("batch", false, "process all Markdown files in docs-dir")

	bindFlag(extractCmd, keyDocsDir, "docs-dir")
	bindFlag(extractCmd, keyLLMBaseURL, "base-url")
	bindFlag(extractCmd, keyLLMModel, "model")
	bindFlag(extractCmd, keyLLMMaxRetries, "max-retries")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	batch, _ := cmd.Flags().GetBool("batch")
	if !batch && len(args) == 0 {
		return fmt.Errorf("provide one or more Markdown files, or use --batch")
	}

	cfg := pipelineConfig().Extraction
	backend := newBackend(cfg.LLMConfig)
	httputil.RetryLog = os.Stderr
	ctx := context.Background()

	if batch {
		summary, err := extract.ExtractAll(ctx, backend, cfg, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("%d document(s): %d extracted, %d skipped, %d failed\n",
			summary.Total(), summary.Extracted, summary.Skipped, summary.Failed)
		if summary.HasFailures() {
			return fmt.Errorf("%d document(s) failed extraction", summary.Failed)
		}
		return nil
	}

	var failed int
	for _, path := range args {
		docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		result, err := extract.ExtractDocument(ctx, backend, docID, path, cfg)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", docID, err)
			failed++
			continue
		}
		outPath := extract.ResultPath(cfg.DocsDir, docID)
		if err := extract.WriteResult(outPath, result); err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: write error: %v\n", docID, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "extracted %s (%s, %d pins) -> %s\n",
			docID, result.Component.PartNumber, len(result.Pins), outPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d document(s) failed extraction", failed)
	}
	return nil
}

func newBackend(cfg types.LLMConfig) *extract.OpenAIBackend {
	return &extract.OpenAIBackend{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		UserAgent:   cfg.UserAgent,
		Client:      &http.Client{Timeout: cfg.Timeout},
	}
}
