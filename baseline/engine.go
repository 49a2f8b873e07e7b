package baseline

import (
	"math"
	"strconv"
	"strings"
)

// UnitPixel is the only unit for which results are snapped to quarters.
const UnitPixel = "px"

// Declaration is a single computed output value.
type Declaration struct {
	Name  string // canonical name, e.g. "marginTop"
	Value float64
	Unit  string
}

// Property returns CSS property name of the declaration.
func (d Declaration) Property() string {
	return PropertyName(d.Name)
}

// FormatValue returns value as fixed point string with 6 decimals followed
// by unit, e.g. "24.000000px".
func (d Declaration) FormatValue() string {
	v := d.Value
	if v == 0 {
		// drop sign of negative zero
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 6, 64) + d.Unit
}

func (d Declaration) String() string {
	return d.Property() + ": " + d.FormatValue()
}

// Declarations is ordered output of Compute: line-height, margin-top,
// padding-top, padding-bottom, margin-bottom and font-size.
type Declarations []Declaration

// Get returns declaration with canonical name.
func (ds Declarations) Get(name string) (Declaration, bool) {
	for _, d := range ds {
		if d.Name == name {
			return d, true
		}
	}
	return Declaration{}, false
}

// Format renders declarations one per line.
func (ds Declarations) Format() string {
	var sb strings.Builder
	for _, d := range ds {
		sb.WriteString(d.String())
		sb.WriteString(";\n")
	}
	return sb.String()
}

// Output names in emission order.
const (
	OutLineHeight    = "lineHeight"
	OutMarginTop     = "marginTop"
	OutPaddingTop    = "paddingTop"
	OutPaddingBottom = "paddingBottom"
	OutMarginBottom  = "marginBottom"
	OutFontSize      = "fontSize"
)

// Correction returns position of the baseline snapped to the nearest grid
// line and the signed distance the baseline moved. Distance is in
// (-0.5, 0.5] for finite input.
func Correction(lineHeight, fontSize, baseline float64) (corrected, difference float64) {
	// distance of natural baseline from the bottom of the line box
	fromBottom := (lineHeight-fontSize)/2 + fontSize*baseline
	corrected = roundHalfUp(fromBottom)
	return corrected, corrected - fromBottom
}

// Compute returns declarations which align baseline of a text block
// described by b to the grid. NaN in b is not treated specially and
// propagates into the results.
func Compute(b Bundle) Declarations {
	var ratio float64
	if b.UseBaselineOrigin {
		ratio = b.Baseline
	}

	lineHeight, fontSize := b.LineHeight, b.FontSize
	leadingTop, leadingBottom := b.LeadingTop, b.LeadingBottom

	corrected, diff := Correction(lineHeight, fontSize, ratio)

	if b.UseBaselineOrigin {
		// leadings are measured from the corrected baseline, not from the
		// line box edges
		leadingTop -= lineHeight - corrected
		leadingBottom -= corrected
	}

	shift := 1.0
	if diff < 0 {
		shift = 0
	}

	m := b.GridHeight.Magnitude
	geometry := [...]struct {
		name  string
		value float64
	}{
		{OutLineHeight, lineHeight * m},
		{OutMarginTop, (leadingTop - shift) * m},
		{OutPaddingTop, (shift - diff) * m},
		{OutPaddingBottom, (1 - shift + diff) * m},
		{OutMarginBottom, (leadingBottom + shift - 1) * m},
	}

	unit := b.GridHeight.Unit
	out := make(Declarations, 0, len(geometry)+1)
	for _, g := range geometry {
		v := g.value
		if unit == UnitPixel {
			v = roundQuarter(v)
		}
		out = append(out, Declaration{Name: g.name, Value: v, Unit: unit})
	}
	// font size is never snapped
	return append(out, Declaration{Name: OutFontSize, Value: fontSize * m, Unit: unit})
}

// roundHalfUp rounds to the nearest integer, halves go towards positive
// infinity. Floor(x+0.5) is not used as the addition itself may round up.
func roundHalfUp(x float64) float64 {
	r := math.Floor(x)
	if x-r >= 0.5 {
		r++
	}
	return r
}

func roundQuarter(x float64) float64 {
	return roundHalfUp(x*4) / 4
}
