package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2comp/internal/extract"
	"github.com/pdiddy/pdf2comp/internal/symbol"
)

var symbolCmd = &cobra.Command{
	Use:   "symbol [extracted yaml files...]",
	Short: "Generate KiCad symbol libraries from extraction results",
	Long: `Symbol reads extraction results written by the extract command, places
each pin on a side of the symbol body by its function (power up, ground
down, inputs left, outputs right), and writes one .kicad_sym library per
part to the symbols directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSymbol,
}

func init() {
	symbolCmd.Flags().String("out-dir", "symbols", "directory for generated .kicad_sym files")
	symbolCmd.Flags().Bool("stdout", false, "print the symbol instead of writing a file")

	bindFlag(symbolCmd, keySymbolsDir, "out-dir")

	rootCmd.AddCommand(symbolCmd)
}

func runSymbol(cmd *cobra.Command, args []string) error {
	toStdout, _ := cmd.Flags().GetBool("stdout")
	cfg := pipelineConfig().Symbol

	var failed int
	for _, path := range args {
		result, err := extract.ReadResult(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed  %s: %v\n", path, err)
			failed++
			continue
		}

		if toStdout {
			fmt.Println(symbol.Synthesize(result.Component, result.Pins))
			continue
		}

		out, err := symbol.WriteFile(cfg.OutputDir, result.Component, result.Pins)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed  %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("wrote %s (%d pins)\n", out, len(result.Pins))
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed symbol generation", failed)
	}
	return nil
}
