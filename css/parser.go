package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into a tree of rules, at-rules and
// declarations.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. Problems are recorded in
// Stylesheet.Warnings, parsing never fails.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Items:    make([]Item, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	ts := newTokenStream(data)
	sheet.Items, _ = p.parseItems(ts, sheet, true)

	if err := ts.lex.Err(); err != nil && !errors.Is(err, io.EOF) {
		p.warn(sheet, ts.line, fmt.Sprintf("tokenizer error: %v", err))
	}
	return sheet
}

func (p *Parser) warn(sheet *Stylesheet, line int, msg string) {
	msg = fmt.Sprintf("line %d: %s", line, msg)
	sheet.Warnings = append(sheet.Warnings, msg)
	p.log.Debug("CSS parse problem", zap.String("warning", msg))
}

type token struct {
	tt   css.TokenType
	data string
	line int
}

// tokenStream wraps lexer adding one token look ahead and line tracking.
type tokenStream struct {
	lex    *css.Lexer
	line   int
	peeked *token
}

func newTokenStream(data []byte) *tokenStream {
	return &tokenStream{
		lex:  css.NewLexer(parse.NewInput(bytes.NewReader(data))),
		line: 1,
	}
}

func (ts *tokenStream) next() token {
	if ts.peeked != nil {
		t := *ts.peeked
		ts.peeked = nil
		return t
	}
	tt, data := ts.lex.Next()
	t := token{tt: tt, data: string(data), line: ts.line}
	ts.line += strings.Count(t.data, "\n")
	return t
}

func (ts *tokenStream) peek() token {
	if ts.peeked == nil {
		t := ts.next()
		ts.peeked = &t
	}
	return *ts.peeked
}

// parseItems parses block content until closing brace (consumed) or end of
// input. closed reports whether closing brace was seen.
func (p *Parser) parseItems(ts *tokenStream, sheet *Stylesheet, top bool) (items []Item, closed bool) {
	items = make([]Item, 0)
	for {
		t := ts.peek()
		switch t.tt {
		case css.ErrorToken:
			return items, false

		case css.WhitespaceToken, css.SemicolonToken, css.CDOToken, css.CDCToken:
			ts.next()

		case css.CommentToken:
			ts.next()
			c := strings.TrimSuffix(strings.TrimPrefix(t.data, "/*"), "*/")
			items = append(items, Item{Comment: &c})

		case css.RightBraceToken:
			ts.next()
			if !top {
				return items, true
			}
			p.warn(sheet, t.line, "unexpected '}'")

		case css.AtKeywordToken:
			ts.next()
			items = append(items, Item{AtRule: p.parseAtRule(ts, sheet, t)})

		default:
			if item, ok := p.parseRuleOrDeclaration(ts, sheet, top); ok {
				items = append(items, item)
			}
		}
	}
}

// collect gathers tokens up to the end of a prelude or declaration. Closing
// semicolon and opening brace are consumed, closing brace is left for the
// enclosing block.
func collect(ts *tokenStream) ([]token, css.TokenType) {
	var (
		toks  []token
		depth int
	)
	for {
		t := ts.peek()
		switch t.tt {
		case css.ErrorToken, css.RightBraceToken:
			return toks, t.tt
		case css.LeftBraceToken:
			ts.next()
			return toks, t.tt
		case css.SemicolonToken:
			if depth == 0 {
				ts.next()
				return toks, t.tt
			}
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.CommentToken:
			ts.next()
			continue
		}
		toks = append(toks, ts.next())
	}
}

func (p *Parser) parseAtRule(ts *tokenStream, sheet *Stylesheet, kw token) *AtRule {
	at := &AtRule{
		Name:       strings.TrimPrefix(kw.data, "@"),
		SourceLine: kw.line,
	}

	prelude, term := collect(ts)
	at.Prelude = joinTokens(prelude)

	if term != css.LeftBraceToken {
		at.Items = make([]Item, 0)
		return at
	}

	at.HasBlock = true
	var closed bool
	if at.Items, closed = p.parseItems(ts, sheet, false); !closed {
		p.warn(sheet, kw.line, fmt.Sprintf("block of @%s is not closed", at.Name))
	}
	return at
}

func (p *Parser) parseRuleOrDeclaration(ts *tokenStream, sheet *Stylesheet, top bool) (Item, bool) {
	line := ts.peek().line
	toks, term := collect(ts)

	if term == css.LeftBraceToken {
		rule := &Rule{Selector: joinTokens(toks), SourceLine: line}
		if rule.Selector == "" {
			p.warn(sheet, line, "rule without selector")
		}
		var closed bool
		if rule.Items, closed = p.parseItems(ts, sheet, false); !closed {
			p.warn(sheet, line, fmt.Sprintf("block of %q is not closed", rule.Selector))
		}
		return Item{Rule: rule}, true
	}

	if len(toks) == 0 {
		return Item{}, false
	}

	decl, ok := parseDeclaration(toks)
	if !ok {
		p.warn(sheet, line, fmt.Sprintf("malformed declaration %q", joinTokens(toks)))
		return Item{}, false
	}
	decl.SourceLine = line
	if top {
		p.warn(sheet, line, fmt.Sprintf("declaration %q outside of any block", decl.Property))
	}
	return Item{Declaration: &decl}, true
}

// parseDeclaration recognizes "name : value [!important]".
func parseDeclaration(toks []token) (Declaration, bool) {
	toks = trimWhitespace(toks)
	if len(toks) < 2 {
		return Declaration{}, false
	}
	if toks[0].tt != css.IdentToken && toks[0].tt != css.CustomPropertyNameToken {
		return Declaration{}, false
	}
	decl := Declaration{Property: toks[0].data}

	rest := trimWhitespace(toks[1:])
	if len(rest) == 0 || rest[0].tt != css.ColonToken {
		return Declaration{}, false
	}
	value := trimWhitespace(rest[1:])

	if n := len(value); n >= 2 && value[n-1].tt == css.IdentToken && strings.EqualFold(value[n-1].data, "important") {
		head := trimWhitespace(value[:n-1])
		if m := len(head); m > 0 && head[m-1].tt == css.DelimToken && head[m-1].data == "!" {
			decl.Important = true
			value = trimWhitespace(head[:m-1])
		}
	}

	decl.Value = parsePropertyValue(value)
	return decl, true
}

func trimWhitespace(toks []token) []token {
	for len(toks) > 0 && toks[0].tt == css.WhitespaceToken {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].tt == css.WhitespaceToken {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// joinTokens builds source text from tokens collapsing whitespace runs into
// single space.
func joinTokens(toks []token) string {
	var (
		sb    strings.Builder
		space bool
	)
	for _, t := range toks {
		if t.tt == css.WhitespaceToken {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteString(t.data)
	}
	return sb.String()
}

// parsePropertyValue converts CSS tokens to a Value.
func parsePropertyValue(toks []token) Value {
	val := Value{Raw: joinTokens(toks)}
	if len(toks) != 1 {
		// multi-value properties and functions are kept as keyword with raw value
		val.Keyword = val.Raw
		return val
	}

	t := toks[0]
	switch t.tt {
	case css.DimensionToken:
		val.Value, val.Unit = parseDimension(t.data)
	case css.PercentageToken:
		val.Value, _ = strconv.ParseFloat(strings.TrimSuffix(t.data, "%"), 64)
		val.Unit = "%"
	case css.NumberToken:
		val.Value, _ = strconv.ParseFloat(t.data, 64)
	case css.IdentToken:
		val.Keyword = strings.ToLower(t.data)
	case css.StringToken:
		val.Keyword = unquote(t.data)
	case css.HashToken:
		// Color value
		val.Keyword = t.data
	default:
		val.Keyword = val.Raw
	}
	return val
}

// parseDimension extracts numeric value and unit from dimension token.
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}

	if numEnd == 0 {
		return 0, ""
	}

	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	unit := strings.ToLower(s[numEnd:])
	return num, unit
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
