// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package symbol

import (
	"math"

	"github.com/pdiddy/pdf2comp/pkg/types"
)

const (
	// gridPitch is the KiCad schematic grid in millimetres.
	gridPitch = 2.54
	// pinLength is the length of every pin stub.
	pinLength = 2.54
	// minBodySize is the smallest body edge for any pin count.
	minBodySize = 10.16
	// minBodyWidth leaves room for the value and reference text.
	minBodyWidth = 15.24
)

// PlacedPin is a pin with its position on the symbol.
type PlacedPin struct {
	Pin  types.Pin
	Side Side

	// X and Y are in millimetres relative to the body centre.
	X, Y float64

	// Rotation is the pin direction in degrees: 0, 90, 180 or 270.
	Rotation int

	// Type is the canonical pin type token.
	Type string
}

// Layout is the computed geometry of a symbol. Pins are listed left,
// right, top, bottom, each side in pin-number order.
type Layout struct {
	Width  float64
	Height float64
	Pins   []PlacedPin
}

// Counts returns the number of pins placed on each side.
func (l Layout) Counts() map[Side]int {
	counts := make(map[Side]int, len(Sides))
	for _, p := range l.Pins {
		counts[p.Side]++
	}
	return counts
}

// ComputeLayout sizes the body to fit the pins and places each pin,
// centred along its edge at grid pitch.
func ComputeLayout(pins []types.Pin) Layout {
	groups := GroupPins(pins)

	maxVertical := max(len(groups[SideLeft]), len(groups[SideRight]))
	maxHorizontal := max(len(groups[SideTop]), len(groups[SideBottom]))

	height := math.Max(float64(maxVertical)*gridPitch+gridPitch, minBodySize)
	width := math.Max(float64(maxHorizontal)*gridPitch+gridPitch, minBodySize)
	width = math.Max(width, minBodyWidth)

	layout := Layout{
		Width:  round(width),
		Height: round(height),
		Pins:   make([]PlacedPin, 0, len(pins)),
	}
	for _, side := range Sides {
		layout.Pins = append(layout.Pins, placeSide(groups[side], side, width/2, height/2)...)
	}
	return layout
}

// placeSide positions the pins of one edge. Vertical edges run top to
// bottom from +span/2; horizontal edges run left to right from -span/2.
func placeSide(pins []types.Pin, side Side, halfW, halfH float64) []PlacedPin {
	if len(pins) == 0 {
		return nil
	}
	span := float64(len(pins)-1) * gridPitch

	placed := make([]PlacedPin, 0, len(pins))
	for i, p := range pins {
		pp := PlacedPin{Pin: p, Side: side, Type: PinType(p.ElectricalType)}
		offset := float64(i) * gridPitch

		switch side {
		case SideLeft:
			pp.X, pp.Y, pp.Rotation = -halfW, span/2-offset, 180
		case SideRight:
			pp.X, pp.Y, pp.Rotation = halfW, span/2-offset, 0
		case SideTop:
			pp.X, pp.Y, pp.Rotation = -span/2+offset, halfH, 270
		case SideBottom:
			pp.X, pp.Y, pp.Rotation = -span/2+offset, -halfH, 90
		}
		pp.X, pp.Y = round(pp.X), round(pp.Y)
		placed = append(placed, pp)
	}
	return placed
}

// round trims floating-point noise from grid arithmetic (3*2.54/2 is not
// exactly 3.81) and folds negative zero.
func round(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		return 0
	}
	return r
}
