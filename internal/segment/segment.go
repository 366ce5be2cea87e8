// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits heading-delimited document text into labelled
// sections so extraction can focus on the parts of a datasheet that carry
// pin, package, and ordering data.
package segment

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/pdf2comp/pkg/types"
)

// Rule maps a canonical section key to the heading patterns that select it.
type Rule struct {
	Key      string
	Patterns []*regexp.Regexp
}

// matches reports whether any of the rule's patterns hits label.
func (r Rule) matches(label string) bool {
	for _, p := range r.Patterns {
		if p.MatchString(label) {
			return true
		}
	}
	return false
}

func rule(key string, patterns ...string) Rule {
	r := Rule{Key: key}
	for _, p := range patterns {
		r.Patterns = append(r.Patterns, regexp.MustCompile(`(?i)`+p))
	}
	return r
}

// rules is evaluated top-down and the first matching rule wins. Specific
// intents come before broad ones: "Pin Description" must land in
// pin_configuration, not description, and a heading naming both pins and
// dimensions is a pin table.
var rules = []Rule{
	rule(types.SectionPinConfiguration,
		`pin\s+configuration`,
		`pin\s+functions`,
		`pin\s+description`,
		`terminal\s+configuration`,
		`pinout`,
	),
	rule(types.SectionPackageDimensions,
		`package\s+dimensions`,
		`mechanical\s+data`,
		`package\s+outline`,
		`physical\s+dimensions`,
		`dimensions`,
	),
	rule(types.SectionOrderingInformation,
		`ordering\s+information`,
		`device\s+ordering`,
		`order\s+codes`,
	),
	rule(types.SectionElectricalCharacteristics,
		`electrical\s+characteristics`,
		`specifications`,
		`dc\s+characteristics`,
		`ac\s+characteristics`,
	),
	rule(types.SectionFeatures,
		`key\s+features`,
		`features`,
	),
	rule(types.SectionDescription,
		`general\s+description`,
		`description`,
		`overview`,
	),
}

// Rules returns a copy of the rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Segment splits text into sections keyed by canonical section name.
//
// Lines before the first heading go to "preamble". A heading that matches
// no rule keeps its label as the key. When a key recurs, later bodies are
// appended after a newline. Segment accepts any input and never fails.
func Segment(text string) types.SectionMap {
	sections := types.NewSectionMap()
	currentKey := types.SectionPreamble
	var buffer []string

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		sections.Append(currentKey, strings.Join(buffer, "\n"))
		buffer = nil
	}

	for _, line := range strings.Split(text, "\n") {
		label, ok := headingLabel(line)
		if !ok {
			buffer = append(buffer, line)
			continue
		}
		flush()
		currentKey = Classify(label)
	}

	flush()
	return sections
}

// Classify returns the canonical key for a heading label, or the label
// itself when no rule matches.
func Classify(label string) string {
	normalized := norm.NFKC.String(label)
	for _, r := range rules {
		if r.matches(normalized) {
			return r.Key
		}
	}
	return label
}

// headingLabel reports whether line is a Markdown heading and returns its
// label with the leading # run and surrounding whitespace removed.
func headingLabel(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeft(trimmed, "#")), true
}
