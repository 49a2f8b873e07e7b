// Package transform replaces @plumber at-rules in stylesheets with computed
// baseline grid declarations.
package transform

import (
	"bytes"
	"fmt"
	"maps"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"plumber/baseline"
	"plumber/css"
)

// AtRuleName is the name of at-rule being replaced (without "@").
const AtRuleName = "plumber"

// Options configures Transformer. Params holds global parameter overrides by
// canonical name, empty values are treated as unset.
type Options struct {
	Params baseline.RawParams
	Strict bool
}

// WarningKind classifies non fatal problems.
type WarningKind int

const (
	// WarnMissingSelector - occurrence is not enclosed in a style rule.
	WarnMissingSelector WarningKind = iota
	// WarnParse - problem reported by CSS parser.
	WarnParse
)

func (k WarningKind) String() string {
	switch k {
	case WarnMissingSelector:
		return "missing-selector"
	case WarnParse:
		return "parse"
	default:
		return fmt.Sprintf("warning(%d)", int(k))
	}
}

// Warning is attached to Result, processing continues.
type Warning struct {
	Kind    WarningKind
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// OccurrenceError is returned (combined with multierr) for every occurrence
// which was left untransformed.
type OccurrenceError struct {
	Line int
	Err  error
}

func (e *OccurrenceError) Error() string {
	return fmt.Sprintf("@%s at line %d: %v", AtRuleName, e.Line, e.Err)
}

func (e *OccurrenceError) Unwrap() error {
	return e.Err
}

// Result summarizes a single stylesheet transformation.
type Result struct {
	Replaced int
	Failed   int
	Warnings []Warning
}

// Transformer is safe for concurrent use: it never modifies its parameters.
type Transformer struct {
	defaults baseline.RawParams
	global   baseline.RawParams
	resolve  []baseline.ResolveOption
	log      *zap.Logger
}

// New creates Transformer. Options are copied.
func New(opts Options, log *zap.Logger) *Transformer {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Transformer{
		defaults: baseline.Defaults(),
		global:   make(baseline.RawParams, len(opts.Params)),
		log:      log.Named("transform"),
	}
	for name, value := range opts.Params {
		if value != "" {
			t.global[name] = value
		}
	}
	if opts.Strict {
		t.resolve = append(t.resolve, baseline.WithStrict())
	}
	return t
}

// Apply replaces every @plumber at-rule in sheet. Occurrences which cannot be
// resolved are left in place and reported in returned error, all others are
// transformed.
func (t *Transformer) Apply(sheet *css.Stylesheet) (*Result, error) {
	res := &Result{}
	n := len(sheet.AtRules(AtRuleName))
	if n == 0 {
		return res, nil
	}
	t.log.Debug("Occurrences found", zap.Int("count", n))

	var errs error
	sheet.ReplaceAtRules(AtRuleName, func(at *css.AtRule, parent *css.Rule) ([]css.Item, bool) {
		if parent == nil {
			res.Warnings = append(res.Warnings, Warning{
				Kind:    WarnMissingSelector,
				Line:    at.SourceLine,
				Message: fmt.Sprintf("@%s is not inside a style rule", AtRuleName),
			})
			t.log.Debug("Occurrence without selector", zap.Int("line", at.SourceLine))
		}

		items, err := t.occurrence(at)
		if err != nil {
			res.Failed++
			errs = multierr.Append(errs, &OccurrenceError{Line: at.SourceLine, Err: err})
			return nil, false
		}
		res.Replaced++
		return items, true
	})
	return res, errs
}

// occurrence computes replacement for a single at-rule.
func (t *Transformer) occurrence(at *css.AtRule) ([]css.Item, error) {
	inline := make(baseline.RawParams)
	for _, d := range at.Declarations() {
		inline[baseline.NormalizeName(d.Property)] = d.Value.Raw
	}

	b, err := baseline.Resolve(t.defaults, t.global, inline, t.resolve...)
	if err != nil {
		return nil, err
	}

	decls := baseline.Compute(b)
	items := make([]css.Item, 0, len(decls))
	for _, d := range decls {
		decl := css.NewDeclaration(d.Property(), d.FormatValue())
		decl.SourceLine = at.SourceLine
		items = append(items, css.DeclarationItem(decl))
	}

	if ce := t.log.Check(zap.DebugLevel, "Occurrence replaced"); ce != nil {
		ce.Write(zap.Int("line", at.SourceLine), zap.Stringer("grid", b.GridHeight), zap.Int("declarations", len(items)))
	}
	return items, nil
}

// Process parses data, applies transformation and returns resulting CSS text.
// Parser warnings are added to Result. Output is always produced, even when
// some occurrences failed.
func (t *Transformer) Process(data []byte, source string) ([]byte, *Result, error) {
	sheet := css.NewParser(t.log).Parse(data, source)

	res, err := t.Apply(sheet)
	for _, w := range sheet.Warnings {
		res.Warnings = append(res.Warnings, Warning{Kind: WarnParse, Message: w})
	}

	var buf bytes.Buffer
	if _, werr := sheet.WriteTo(&buf); werr != nil {
		return nil, res, multierr.Append(err, fmt.Errorf("unable to serialize stylesheet: %w", werr))
	}
	return buf.Bytes(), res, err
}

// Params returns copy of effective global parameters.
func (t *Transformer) Params() baseline.RawParams {
	out := t.defaults.Clone()
	maps.Copy(out, t.global)
	return out
}
