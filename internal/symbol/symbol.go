// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package symbol lays out a component's pins around a rectangular body and
// serializes the result as a KiCad symbol library (.kicad_sym).
//
// Synthesize is a pure function of its inputs and is safe for concurrent
// use on disjoint inputs.
package symbol

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/pdf2comp/pkg/types"
)

// FileExt is the extension KiCad expects for symbol libraries.
const FileExt = ".kicad_sym"

const (
	libHeader = `(kicad_symbol_lib (version 20211014) (generator kicad_symbol_editor)`
	fontSize  = `(font (size 1.27 1.27))`
)

// Synthesize renders the symbol library for c with pins laid out by
// ComputeLayout. An empty pin list yields a minimum-size body with no pins.
func Synthesize(c types.Component, pins []types.Pin) string {
	return Render(c, ComputeLayout(pins))
}

// Render serializes a computed layout.
func Render(c types.Component, l Layout) string {
	name := quote(c.PartNumber)

	var b strings.Builder
	b.WriteString(libHeader + "\n")
	fmt.Fprintf(&b, "  (symbol %s (in_bom yes) (on_board yes)\n", name)
	writeProperty(&b, "Reference", quote("U"), 0, "0 5 0", false)
	writeProperty(&b, "Value", name, 1, "0 -5 0", false)
	writeProperty(&b, "Footprint", quote(""), 2, "0 -10 0", true)
	writeProperty(&b, "Datasheet", quote(""), 3, "0 -15 0", true)
	writeProperty(&b, "Description", quote(c.Description), 4, "0 0 0", true)

	fmt.Fprintf(&b, "    (symbol %s\n", quote(c.PartNumber+"_1_1"))
	halfW, halfH := round(l.Width/2), round(l.Height/2)
	fmt.Fprintf(&b, "      (rectangle (start %s %s) (end %s %s)"+
		" (stroke (width 0.254) (type default) (color 0 0 0 0))"+
		" (fill (type background)))\n",
		num(-halfW), num(halfH), num(halfW), num(-halfH))

	for _, p := range l.Pins {
		writePin(&b, p)
	}

	b.WriteString("    )\n")
	b.WriteString("  )\n")
	b.WriteString(")")
	return b.String()
}

func writeProperty(b *strings.Builder, key, value string, id int, at string, hide bool) {
	effects := fontSize
	if hide {
		effects = `(font (size 1.27 1.27) hide yes)`
	}
	fmt.Fprintf(b, "    (property %s %s (id %d) (at %s)\n", quote(key), value, id, at)
	fmt.Fprintf(b, "      (effects %s)\n", effects)
	b.WriteString("    )\n")
}

func writePin(b *strings.Builder, p PlacedPin) {
	fmt.Fprintf(b, "      (pin %s (at %s %s %d) (length %s)\n",
		p.Type, num(p.X), num(p.Y), p.Rotation, num(pinLength))
	fmt.Fprintf(b, "        (name %s (effects %s))\n", quote(p.Pin.Name), fontSize)
	fmt.Fprintf(b, "        (number %s (effects %s))\n", quote(p.Pin.Number), fontSize)
	b.WriteString("      )\n")
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

// quote wraps s in double quotes, escaping characters that would end the
// string early.
func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

// num formats a millimetre value with the shortest exact representation.
func num(v float64) string {
	return strconv.FormatFloat(round(v), 'f', -1, 64)
}

// Balanced reports whether every "(" in s has a matching ")" outside quoted
// strings, and no string literal is left open.
func Balanced(s string) bool {
	depth := 0
	inString, escaped := false, false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && !inString
}

// FileName returns the library file name for a part number. Path
// separators and other characters unsafe in file names become "_".
func FileName(partNumber string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(partNumber))
	if name == "" {
		name = "unnamed"
	}
	return name + FileExt
}

// WriteFile synthesizes the symbol for c and writes it to dir, returning
// the path written.
func WriteFile(dir string, c types.Component, pins []types.Pin) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(c.PartNumber))
	if err := os.WriteFile(path, []byte(Synthesize(c, pins)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing symbol %s: %w", path, err)
	}
	return path, nil
}
