// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package symbol

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/pdf2comp/pkg/types"
)

// Side is the symbol body edge a pin is drawn on.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// Sides lists the four edges in the order pins are emitted.
var Sides = []Side{SideLeft, SideRight, SideTop, SideBottom}

// Canonical pin type tokens written into the symbol file.
const (
	TypeInput         = "input"
	TypeOutput        = "output"
	TypeBidirectional = "bidirectional"
	TypePowerIn       = "power_in"
	TypePassive       = "passive"
	TypeNoConnect     = "no_connect"
	TypeOpenCollector = "open_collector"
)

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ClassifySide picks the edge for a pin from its electrical type, falling
// back to its name for ground pins. Inputs, passives and no-connects go
// left; outputs go right; supplies go top unless the name marks them as a
// return (GND, VSS, or a "-" rail); everything else goes left.
func ClassifySide(p types.Pin) Side {
	etype := strings.ToLower(p.ElectricalType)
	name := strings.ToLower(p.Name)

	switch {
	case containsAny(etype, "input", "passive", "nc"):
		return SideLeft
	case containsAny(etype, "output", "bidirectional", "open"):
		return SideRight
	case containsAny(etype, "power", "vdd", "vcc"):
		if containsAny(name, "gnd", "vss", "-") {
			return SideBottom
		}
		return SideTop
	case containsAny(name, "gnd", "vss"):
		return SideBottom
	default:
		return SideLeft
	}
}

// PinType maps a free-text electrical type to a canonical pin type token.
// Empty or unrecognised types map to passive.
func PinType(electricalType string) string {
	etype := strings.ToLower(electricalType)
	switch {
	case strings.Contains(etype, "input"):
		return TypeInput
	case strings.Contains(etype, "output"):
		return TypeOutput
	case strings.Contains(etype, "bidirectional"):
		return TypeBidirectional
	case strings.Contains(etype, "power"):
		return TypePowerIn
	case strings.Contains(etype, "passive"):
		return TypePassive
	case containsAny(etype, "nc", "no connect"):
		return TypeNoConnect
	case strings.Contains(etype, "open"):
		return TypeOpenCollector
	default:
		return TypePassive
	}
}

// GroupPins assigns every pin to exactly one side and orders each side by
// pin number. Numeric numbers sort ascending; non-numeric ones follow in
// input order.
func GroupPins(pins []types.Pin) map[Side][]types.Pin {
	groups := make(map[Side][]types.Pin, len(Sides))
	for _, p := range pins {
		side := ClassifySide(p)
		groups[side] = append(groups[side], p)
	}
	for _, side := range Sides {
		sortByNumber(groups[side])
	}
	return groups
}

// sortByNumber stable-sorts pins numerically, non-numeric numbers last.
func sortByNumber(pins []types.Pin) {
	sort.SliceStable(pins, func(i, j int) bool {
		ni, iok := pinNumber(pins[i])
		nj, jok := pinNumber(pins[j])
		switch {
		case iok && jok:
			return ni < nj
		case iok:
			return true
		default:
			return false
		}
	})
}

func pinNumber(p types.Pin) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(p.Number))
	if err != nil {
		return 0, false
	}
	return n, true
}
