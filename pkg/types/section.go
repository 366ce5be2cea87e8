// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Canonical section keys produced by the segmenter. Headings that match
// none of the segmenter rules keep their raw label as the key.
const (
	SectionPreamble                  = "preamble"
	SectionPinConfiguration          = "pin_configuration"
	SectionPackageDimensions         = "package_dimensions"
	SectionOrderingInformation       = "ordering_information"
	SectionElectricalCharacteristics = "electrical_characteristics"
	SectionFeatures                  = "features"
	SectionDescription               = "description"
)

// SectionMap maps a section key to the body text accumulated under it.
// Keys records first-occurrence order; consumers should not depend on it.
type SectionMap struct {
	Keys   []string
	Bodies map[string]string
}

// NewSectionMap returns an empty SectionMap ready for Append.
func NewSectionMap() SectionMap {
	return SectionMap{Bodies: make(map[string]string)}
}

// Append adds body under key. A key that already has content gets a
// newline separator followed by body; content is never overwritten.
func (m *SectionMap) Append(key, body string) {
	if m.Bodies == nil {
		m.Bodies = make(map[string]string)
	}
	existing, ok := m.Bodies[key]
	if !ok {
		m.Keys = append(m.Keys, key)
		m.Bodies[key] = body
		return
	}
	m.Bodies[key] = existing + "\n" + body
}

// Get returns the body stored under key, or "" when absent.
func (m SectionMap) Get(key string) string {
	return m.Bodies[key]
}

// Has reports whether key is present.
func (m SectionMap) Has(key string) bool {
	_, ok := m.Bodies[key]
	return ok
}

// Len returns the number of sections.
func (m SectionMap) Len() int {
	return len(m.Keys)
}

// SectionEntry is one key/body pair, used when a SectionMap is written out.
type SectionEntry struct {
	Key  string `json:"key" yaml:"key"`
	Body string `json:"body" yaml:"body"`
}

// Entries returns the sections in first-occurrence order.
func (m SectionMap) Entries() []SectionEntry {
	entries := make([]SectionEntry, 0, len(m.Keys))
	for _, k := range m.Keys {
		entries = append(entries, SectionEntry{Key: k, Body: m.Bodies[k]})
	}
	return entries
}
