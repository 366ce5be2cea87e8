// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2comp/internal/segment"
)

var segmentCmd = &cobra.Command{
	Use:   "segment FILE",
	Short: "Split converted datasheet Markdown into labelled sections",
	Long: `Segment reads a Markdown file produced by a PDF converter and groups its
text under canonical section keys (description, features,
electrical_characteristics, pin_configuration, package_dimensions,
ordering_information). Text before the first heading is kept as preamble.

Sections are printed as YAML, or written to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().String("out", "", "write sections YAML to this file instead of stdout")

	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	doc, err := segment.ProcessFile(args[0])
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out != "" {
		if err := segment.WriteSections(out, doc.Sections); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d section(s) to %s\n", doc.Sections.Len(), out)
		return nil
	}

	data, err := yaml.Marshal(doc.Sections.Entries())
	if err != nil {
		return fmt.Errorf("marshaling sections: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
