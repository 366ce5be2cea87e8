// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2comp/internal/corrections"
	"github.com/pdiddy/pdf2comp/pkg/types"
)

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Record and export corrections to extraction output",
	Long: `Corrections manages a local SQLite log of user corrections to model
output. Each record keeps the prompt context, what the model produced, and
what the user fixed it to, so the log can be exported for evaluation or
fine-tuning.`,
}

// --- log subcommand ---

var correctionsLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Record one correction",
	Long: `Log stores a correction. The input context, model output, and corrected
output are read from files; JSON contents are stored verbatim.`,
	RunE: runCorrectionsLog,
}

func runCorrectionsLog(cmd *cobra.Command, args []string) error {
	taskType, _ := cmd.Flags().GetString("task")
	if taskType == "" {
		return fmt.Errorf("--task is required")
	}

	input, err := readFlagFile(cmd, "input-file")
	if err != nil {
		return err
	}
	llmOutput, err := readFlagFile(cmd, "llm-output-file")
	if err != nil {
		return err
	}
	correction, err := readFlagFile(cmd, "correction-file")
	if err != nil {
		return err
	}
	modelVersion, _ := cmd.Flags().GetString("model-version")
	confidence, _ := cmd.Flags().GetFloat64("confidence")

	store, err := openCorrections()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Log(context.Background(), types.CorrectionRecord{
		TaskType:       taskType,
		InputContext:   input,
		LLMOutput:      llmOutput,
		UserCorrection: correction,
		ModelVersion:   modelVersion,
		Confidence:     confidence,
	})
	if err != nil {
		return err
	}
	fmt.Printf("logged %s (%s)\n", rec.ID, rec.TaskType)
	return nil
}

func readFlagFile(cmd *cobra.Command, flag string) (string, error) {
	path, _ := cmd.Flags().GetString(flag)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading --%s: %w", flag, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// --- list subcommand ---

var correctionsListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List recorded corrections, newest first",
	RunE:  runCorrectionsList,
}

func runCorrectionsList(cmd *cobra.Command, args []string) error {
	store, err := openCorrections()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(context.Background(), listOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No corrections found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-8s  %-20s  %s\n",
		"ID", "Task", "Model", "Created", "Input")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, r := range records {
		input := strings.ReplaceAll(r.InputContext, "\n", " ")
		if len(input) > 30 {
			input = input[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-8s  %-20s  %s\n",
			r.ID, r.TaskType, r.ModelVersion, r.CreatedAt.Format("2006-01-02 15:04:05"), input)
	}
	fmt.Fprintf(os.Stdout, "\n%d corrections\n", len(records))
	return nil
}

// --- show subcommand ---

var correctionsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one correction as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCorrections()
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling correction: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

// --- export subcommand ---

var correctionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export corrections to YAML or JSON",
	Long: `Export writes the correction log (or a filtered subset) to
corrections.yaml or corrections.json in the export directory, which
defaults to the directory holding the database.`,
	RunE: runCorrectionsExport,
}

func runCorrectionsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openCorrections()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := listOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openCorrections() (*corrections.Store, error) {
	return corrections.NewStore(pipelineConfig().Corrections)
}

func listOptsFromFlags(cmd *cobra.Command, args []string) corrections.ListOptions {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	taskType, _ := cmd.Flags().GetString("task")
	limit, _ := cmd.Flags().GetInt("limit")
	return corrections.ListOptions{
		TaskType: taskType,
		Query:    query,
		Limit:    limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	correctionsCmd.PersistentFlags().String("db", "pdf2comp.db", "correction log database path")
	correctionsCmd.PersistentFlags().String("export-dir", "", "directory for export files (default: database directory)")
	bindFlag(correctionsCmd, keyCorrectionsDB, "db")
	bindFlag(correctionsCmd, keyCorrectionsOut, "export-dir")

	// Log flags.
	correctionsLogCmd.Flags().String("task", "", "task type, e.g. pin_extraction")
	correctionsLogCmd.Flags().String("input-file", "", "file holding the prompt context")
	correctionsLogCmd.Flags().String("llm-output-file", "", "file holding the model output")
	correctionsLogCmd.Flags().String("correction-file", "", "file holding the corrected output")
	correctionsLogCmd.Flags().String("model-version", "", "model version (default v1)")
	correctionsLogCmd.Flags().Float64("confidence", 0, "confidence score for the correction")

	// List flags.
	correctionsListCmd.Flags().String("task", "", "filter by task type")
	correctionsListCmd.Flags().String("query", "", "substring filter on context and outputs")
	correctionsListCmd.Flags().Int("limit", 0, "maximum results (0 = default, -1 = all)")
	correctionsListCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	correctionsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	correctionsExportCmd.Flags().String("task", "", "filter by task type for partial export")
	correctionsExportCmd.Flags().String("query", "", "substring filter for partial export")
	correctionsExportCmd.Flags().Int("limit", 0, "maximum records to export (0 = all)")

	// Wire subcommands.
	correctionsCmd.AddCommand(correctionsLogCmd)
	correctionsCmd.AddCommand(correctionsListCmd)
	correctionsCmd.AddCommand(correctionsShowCmd)
	correctionsCmd.AddCommand(correctionsExportCmd)

	rootCmd.AddCommand(correctionsCmd)
}
