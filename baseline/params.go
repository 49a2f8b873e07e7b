// Package baseline implements vertical rhythm arithmetic: it resolves raw
// grid parameters into a typed bundle and computes the line-height, margins,
// paddings and font-size which put a text block baseline on the grid.
package baseline

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Canonical parameter names.
const (
	ParamFontSize          = "fontSize"
	ParamGridHeight        = "gridHeight"
	ParamLineHeight        = "lineHeight"
	ParamLeadingTop        = "leadingTop"
	ParamLeadingBottom     = "leadingBottom"
	ParamUseBaselineOrigin = "useBaselineOrigin"
	ParamBaseline          = "baseline"
)

// RawParams maps canonical parameter names to unparsed values.
type RawParams map[string]string

// Defaults returns a fresh copy of built-in parameter values. Every call
// returns a new map so callers are free to modify it.
func Defaults() RawParams {
	return RawParams{
		ParamFontSize:          "2",
		ParamGridHeight:        "1rem",
		ParamLineHeight:        "3",
		ParamLeadingTop:        "1",
		ParamLeadingBottom:     "2",
		ParamUseBaselineOrigin: "false",
	}
}

// Clone returns a copy of p, nil becomes an empty set.
func (p RawParams) Clone() RawParams {
	out := make(RawParams, len(p))
	maps.Copy(out, p)
	return out
}

var (
	// ErrMalformedGridHeight is matched by every *MalformedGridHeightError.
	ErrMalformedGridHeight = errors.New("malformed grid height")
	// ErrMissingBaseline is returned when baseline origin is requested
	// without font baseline ratio.
	ErrMissingBaseline = errors.New("baseline ratio is required when useBaselineOrigin is set")
	// ErrMissingGridHeight is returned when none of the sources has
	// gridHeight.
	ErrMissingGridHeight = errors.New("gridHeight parameter is not set")
)

// MalformedGridHeightError reports grid height value which is not a
// decimal magnitude immediately followed by 1-4 lowercase letters.
type MalformedGridHeightError struct {
	Value string
}

func (e *MalformedGridHeightError) Error() string {
	return fmt.Sprintf("malformed grid height %q: expected number followed by 1-4 lowercase letters unit (e.g. 1rem)", e.Value)
}

func (e *MalformedGridHeightError) Is(target error) bool {
	return target == ErrMalformedGridHeight
}

// CoercionError is returned by strict resolution for values which are not
// numbers.
type CoercionError struct {
	Name  string
	Value string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("parameter %s: value %q is not a number", e.Name, e.Value)
}

// GridHeight is the physical size of one grid unit.
type GridHeight struct {
	Magnitude float64
	Unit      string
}

func (g GridHeight) String() string {
	return strconv.FormatFloat(g.Magnitude, 'f', -1, 64) + g.Unit
}

// Bundle is the resolved, typed parameter set for a single occurrence.
// Dimensionless values are expressed in grid units.
type Bundle struct {
	FontSize          float64
	LineHeight        float64
	LeadingTop        float64
	LeadingBottom     float64
	Baseline          float64
	HasBaseline       bool
	UseBaselineOrigin bool
	GridHeight        GridHeight
	// Extra keeps unknown parameters, coerced with numeric rule.
	Extra map[string]float64
}

var gridHeightPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)([a-z]{1,4})$`)

// ParseGridHeight splits compound grid height value into magnitude and unit.
func ParseGridHeight(s string) (GridHeight, error) {
	m := gridHeightPattern.FindStringSubmatch(s)
	if m == nil {
		return GridHeight{}, &MalformedGridHeightError{Value: s}
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		// pattern guarantees plain decimal, this should never happen
		return GridHeight{}, &MalformedGridHeightError{Value: s}
	}
	return GridHeight{Magnitude: v, Unit: m[2]}, nil
}

type coercion int

const (
	coerceNumber coercion = iota
	coerceGridUnit
	coerceBool
)

// schema lists coercion rules for known parameters, anything not listed is
// numeric.
var schema = map[string]coercion{
	ParamFontSize:          coerceNumber,
	ParamGridHeight:        coerceGridUnit,
	ParamLineHeight:        coerceNumber,
	ParamLeadingTop:        coerceNumber,
	ParamLeadingBottom:     coerceNumber,
	ParamUseBaselineOrigin: coerceBool,
	ParamBaseline:          coerceNumber,
}

// flag accepts boolean words in addition to numbers. ok is false when value
// is neither.
func flag(s string) (v, ok bool) {
	switch strings.TrimSpace(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	n := Number(s)
	if math.IsNaN(n) {
		return false, false
	}
	return n != 0, true
}

type resolveOptions struct {
	strict bool
}

// ResolveOption changes resolution behavior.
type ResolveOption func(*resolveOptions)

// WithStrict makes resolution fail on values which do not coerce to a
// number instead of propagating NaN.
func WithStrict() ResolveOption {
	return func(o *resolveOptions) {
		o.strict = true
	}
}

// Merge combines parameter sources, later sources win on key collision.
// None of the sources is modified.
func Merge(sources ...RawParams) RawParams {
	out := make(RawParams)
	for _, src := range sources {
		maps.Copy(out, src)
	}
	return out
}

// Resolve merges defaults, global and inline parameters (in increasing
// priority) and coerces the result into a Bundle. Inline names must already
// be in canonical form, see NormalizeName.
func Resolve(defaults, global, inline RawParams, options ...ResolveOption) (Bundle, error) {
	var opts resolveOptions
	for _, o := range options {
		o(&opts)
	}

	raw := Merge(defaults, global, inline)

	// grid height goes first so its error does not depend on other values
	value, ok := raw[ParamGridHeight]
	if !ok {
		return Bundle{}, ErrMissingGridHeight
	}
	gh, err := ParseGridHeight(value)
	if err != nil {
		return Bundle{}, err
	}

	b := Bundle{GridHeight: gh, Extra: make(map[string]float64)}
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		value := raw[name]
		rule, known := schema[name]
		switch rule {
		case coerceGridUnit:
			continue
		case coerceBool:
			v, ok := flag(value)
			if !ok && opts.strict {
				return Bundle{}, &CoercionError{Name: name, Value: value}
			}
			b.UseBaselineOrigin = v
			continue
		}

		n := Number(value)
		if opts.strict && math.IsNaN(n) {
			return Bundle{}, &CoercionError{Name: name, Value: value}
		}
		if !known {
			b.Extra[name] = n
			continue
		}
		switch name {
		case ParamFontSize:
			b.FontSize = n
		case ParamLineHeight:
			b.LineHeight = n
		case ParamLeadingTop:
			b.LeadingTop = n
		case ParamLeadingBottom:
			b.LeadingBottom = n
		case ParamBaseline:
			b.Baseline, b.HasBaseline = n, true
		}
	}

	if b.UseBaselineOrigin && !b.HasBaseline {
		return Bundle{}, ErrMissingBaseline
	}
	return b, nil
}

// Number converts string to float64 the way "Number(string)" does in
// browsers: surrounding whitespace is ignored, empty string is zero,
// hexadecimal, octal and binary integer literals are accepted, everything
// which is not a number becomes NaN.
func Number(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			if strings.ContainsRune(s, '_') {
				return math.NaN()
			}
			if v, err := strconv.ParseUint(s, 0, 64); err == nil {
				return float64(v)
			}
			return math.NaN()
		}
	}

	// ParseFloat is more permissive than we want in a few places
	if strings.ContainsAny(s, "_xXpP") || strings.EqualFold(strings.TrimLeft(s, "+-"), "inf") ||
		strings.EqualFold(strings.TrimLeft(s, "+-"), "infinity") || strings.EqualFold(s, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			// overflow yields +-Inf, underflow yields 0 - both are what browsers do
			return v
		}
		return math.NaN()
	}
	return v
}
