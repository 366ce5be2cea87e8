//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Extract runs batch extraction over docs/markdown/ with the configured model.
func Extract() error {
	mg.Deps(Build, Init)
	fmt.Println("[extract] Extracting component and pin data from docs/markdown/.")
	return sh.RunV(binPath(), "extract", "--batch")
}

// Symbols generates a KiCad symbol for every extraction result in docs/extracted/.
func Symbols() error {
	mg.Deps(Build)
	results, err := filepath.Glob(filepath.Join("docs", "extracted", "*.yaml"))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("[symbols] No extraction results in docs/extracted/.")
		return nil
	}
	return sh.RunV(binPath(), append([]string{"symbol"}, results...)...)
}

// Pipeline runs extraction followed by symbol generation.
func Pipeline() {
	mg.SerialDeps(Extract, Symbols)
}
