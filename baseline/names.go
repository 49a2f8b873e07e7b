package baseline

import (
	"strings"
	"unicode"
)

// NormalizeName converts CSS property name (including custom properties) to
// canonical parameter name: "font-size" -> "fontSize", "--grid-height" ->
// "gridHeight".
func NormalizeName(prop string) string {
	prop = strings.TrimLeft(prop, "-")

	var sb strings.Builder
	sb.Grow(len(prop))
	upper := false
	for _, r := range prop {
		switch {
		case r == '-':
			if upper {
				// "--" inside name, keep first dash
				sb.WriteRune('-')
			}
			upper = true
		case upper && r >= 'a' && r <= 'z':
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			if upper {
				sb.WriteRune('-')
				upper = false
			}
			sb.WriteRune(r)
		}
	}
	if upper {
		sb.WriteRune('-')
	}
	return sb.String()
}

// PropertyName converts canonical name back to CSS property name:
// "marginTop" -> "margin-top".
func PropertyName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name) + 4)
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			sb.WriteRune('-')
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
