// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Component identifies the part a symbol is generated for.
type Component struct {
	// PartNumber becomes the symbol's library name and Value text.
	PartNumber string `json:"part_number" yaml:"part_number"`

	// Description is copied into the symbol's Description property.
	Description string `json:"description" yaml:"description"`

	// Manufacturer is carried through extraction output only.
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
}

// Pin is one terminal of a component as read from the pin table.
// Number is kept as a string so identifiers like "A1" or "EP" survive.
type Pin struct {
	Number string `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`

	// ElectricalType is the free-text role from the document
	// ("Input", "Power", "GND", ...). Matching on it is case-insensitive.
	ElectricalType string `json:"electrical_type" yaml:"electrical_type"`

	Description string `json:"description" yaml:"description"`
}

// Package describes the physical body of a component.
type Package struct {
	// Name is the package designation (e.g. "SOIC-8").
	Name string `json:"name" yaml:"name"`

	// PackageType is the package family (e.g. "SOIC", "QFN").
	PackageType string `json:"package_type" yaml:"package_type"`

	// Dimensions holds nominal sizes in millimetres keyed by name
	// (width, length, height, pitch, ...).
	Dimensions map[string]float64 `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// ExtractionResult holds the structured data extracted from one document.
type ExtractionResult struct {
	// DocumentID is the source file name without extension.
	DocumentID string `json:"document_id" yaml:"document_id"`

	Component Component `json:"component" yaml:"component"`
	Package   Package   `json:"package" yaml:"package"`
	Pins      []Pin     `json:"pins" yaml:"pins"`

	// Error records an extraction failure message. Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
