package css

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"plumber/utils/debug"
)

// Value represents a parsed CSS property value.
type Value struct {
	Raw     string  // Original CSS value string (e.g., "1.2em", "bold", "#ff0000")
	Value   float64 // Numeric value if applicable
	Unit    string  // Unit if applicable: "em", "px", "%", "pt", etc.
	Keyword string  // Keyword if applicable: "bold", "italic", "center", etc.
}

// IsNumeric returns true if the value has a numeric component.
// This includes explicit zero values like "0" or "0px".
func (v Value) IsNumeric() bool {
	if v.Unit != "" {
		return true
	}
	if v.Value != 0 && v.Keyword == "" {
		return true
	}
	// handles "0" case
	if v.Raw != "" && v.Keyword == "" {
		firstChar := rune(v.Raw[0])
		if unicode.IsDigit(firstChar) || firstChar == '.' || firstChar == '-' || firstChar == '+' {
			return true
		}
	}
	return false
}

// IsKeyword returns true if the value is a keyword (no numeric component).
func (v Value) IsKeyword() bool {
	return v.Keyword != "" && v.Unit == ""
}

// Declaration is a single "property: value" pair.
type Declaration struct {
	Property   string
	Value      Value
	Important  bool
	SourceLine int
}

// NewDeclaration creates declaration from raw value string.
func NewDeclaration(property, raw string) Declaration {
	return Declaration{Property: property, Value: Value{Raw: raw}}
}

func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value.Raw + " !important"
	}
	return d.Property + ": " + d.Value.Raw
}

// Rule represents a style rule: selector and everything inside its block,
// nested rules and at-rules included.
type Rule struct {
	Selector   string
	Items      []Item
	SourceLine int
}

// Declarations returns direct declarations of the rule in source order.
func (r *Rule) Declarations() []Declaration {
	return declarations(r.Items)
}

// AtRule represents "@name prelude;" or "@name prelude { ... }".
type AtRule struct {
	Name       string // without leading "@"
	Prelude    string
	HasBlock   bool
	Items      []Item
	SourceLine int
}

// Declarations returns direct declarations of the at-rule block in source
// order.
func (a *AtRule) Declarations() []Declaration {
	return declarations(a.Items)
}

func declarations(items []Item) []Declaration {
	var out []Declaration
	for _, item := range items {
		if item.Declaration != nil {
			out = append(out, *item.Declaration)
		}
	}
	return out
}

// Item is a single node of a stylesheet tree.
// Exactly one of Rule, AtRule, Declaration or Comment is non-nil.
type Item struct {
	Rule        *Rule
	AtRule      *AtRule
	Declaration *Declaration
	Comment     *string
}

// DeclarationItem wraps declaration into an Item.
func DeclarationItem(d Declaration) Item {
	return Item{Declaration: &d}
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items    []Item   // All top-level items in source order
	Warnings []string // Problems found while parsing
}

// AtRules returns all at-rules with the given name, at any depth, in source
// order.
func (s *Stylesheet) AtRules(name string) []*AtRule {
	var found []*AtRule
	var walk func(items []Item)
	walk = func(items []Item) {
		for _, item := range items {
			switch {
			case item.AtRule != nil:
				if strings.EqualFold(item.AtRule.Name, name) {
					found = append(found, item.AtRule)
				}
				walk(item.AtRule.Items)
			case item.Rule != nil:
				walk(item.Rule.Items)
			}
		}
	}
	walk(s.Items)
	return found
}

// ReplaceFunc is called for each matching at-rule. parent is the innermost
// style rule enclosing the at-rule or nil when there is none. When ok is true
// the at-rule is replaced by repl (which may be empty).
type ReplaceFunc func(at *AtRule, parent *Rule) (repl []Item, ok bool)

// ReplaceAtRules walks the stylesheet depth first and calls fn for every
// at-rule named name (case insensitive). Replacement items are not walked
// again.
func (s *Stylesheet) ReplaceAtRules(name string, fn ReplaceFunc) {
	s.Items = replaceAtRules(s.Items, name, nil, fn)
}

func replaceAtRules(items []Item, name string, parent *Rule, fn ReplaceFunc) []Item {
	out := items[:0:0]
	for _, item := range items {
		switch {
		case item.AtRule != nil && strings.EqualFold(item.AtRule.Name, name):
			if repl, ok := fn(item.AtRule, parent); ok {
				out = append(out, repl...)
				continue
			}
			// declined at-rule is kept, its nested occurrences still have to be visited
			item.AtRule.Items = replaceAtRules(item.AtRule.Items, name, parent, fn)
		case item.AtRule != nil:
			item.AtRule.Items = replaceAtRules(item.AtRule.Items, name, parent, fn)
		case item.Rule != nil:
			item.Rule.Items = replaceAtRules(item.Rule.Items, name, item.Rule, fn)
		}
		out = append(out, item)
	}
	return out
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for i, item := range s.Items {
		if i > 0 {
			// blank line between top level items
			cw.printf("\n")
		}
		writeItem(cw, item, 0)
		if cw.err != nil {
			break
		}
	}
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}

func writeItem(cw *countingWriter, item Item, depth int) {
	indent := strings.Repeat("  ", depth)
	switch {
	case item.Comment != nil:
		cw.printf("%s/*%s*/\n", indent, *item.Comment)
	case item.Declaration != nil:
		cw.printf("%s%s;\n", indent, item.Declaration.String())
	case item.Rule != nil:
		cw.printf("%s%s {\n", indent, item.Rule.Selector)
		for _, child := range item.Rule.Items {
			writeItem(cw, child, depth+1)
		}
		cw.printf("%s}\n", indent)
	case item.AtRule != nil:
		head := "@" + item.AtRule.Name
		if item.AtRule.Prelude != "" {
			head += " " + item.AtRule.Prelude
		}
		if !item.AtRule.HasBlock {
			cw.printf("%s%s;\n", indent, head)
			return
		}
		cw.printf("%s%s {\n", indent, head)
		for _, child := range item.AtRule.Items {
			writeItem(cw, child, depth+1)
		}
		cw.printf("%s}\n", indent)
	}
}

// Dump returns human readable tree of the stylesheet for debugging.
func (s *Stylesheet) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "stylesheet: %d items, %d warnings", len(s.Items), len(s.Warnings))
	for _, w := range s.Warnings {
		tw.TextBlock(1, "warning", w)
	}
	dumpItems(tw, s.Items, 1)
	return tw.String()
}

func dumpItems(tw *debug.TreeWriter, items []Item, depth int) {
	for _, item := range items {
		switch {
		case item.Comment != nil:
			tw.TextBlock(depth, "comment", *item.Comment)
		case item.Declaration != nil:
			d := item.Declaration
			tw.Line(depth, "decl %s (line %d)", d.Property, d.SourceLine)
			tw.TextBlock(depth+1, "value", d.Value.Raw)
			if d.Value.IsNumeric() {
				tw.Line(depth+1, "numeric: %g%s", d.Value.Value, d.Value.Unit)
			}
		case item.Rule != nil:
			tw.Line(depth, "rule (line %d)", item.Rule.SourceLine)
			tw.TextBlock(depth+1, "selector", item.Rule.Selector)
			dumpItems(tw, item.Rule.Items, depth+1)
		case item.AtRule != nil:
			tw.Line(depth, "at-rule @%s (line %d, block: %t)", item.AtRule.Name, item.AtRule.SourceLine, item.AtRule.HasBlock)
			tw.TextBlock(depth+1, "prelude", item.AtRule.Prelude)
			dumpItems(tw, item.AtRule.Items, depth+1)
		}
	}
}
