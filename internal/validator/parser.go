package validator

import (
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
)

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

func (p Position) Pos() Position { return p }

// Node is a stylesheet node: *Rule, *AtRule or *Declaration.
type Node interface {
	Pos() Position
}

// Stylesheet is the flat tree produced by Parse.
type Stylesheet struct {
	Nodes []Node
}

// Rule is a qualified rule. Selector is the whitespace-normalized selector
// text and Selectors its top-level comma-separated parts.
type Rule struct {
	Position
	Selector  string
	Selectors []string
	Nodes     []Node
}

// AtRule is any @-rule, with or without a block.
type AtRule struct {
	Position
	Name   string
	Params string
	Block  bool
	Nodes  []Node
}

type Declaration struct {
	Position
	Property  string
	Value     string
	Important bool
}

// ParseError is returned by Parse for input that does not form a flat
// rule/declaration tree.
type ParseError struct {
	Msg    string
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

func errorAt(t *scanner.Token, msg string) *ParseError {
	return &ParseError{Msg: msg, Line: t.Line, Column: t.Column}
}

type blockKind int

const (
	blockRule blockKind = iota
	blockAtRule
)

type parser struct {
	toks []*scanner.Token
	pos  int
	end  *scanner.Token
}

// Parse tokenizes css with the gorilla scanner and builds a Stylesheet.
// Comments are dropped. Rules may contain declarations and at-rules but not
// other rules; at-rule blocks may contain rules and declarations.
func Parse(css string) (*Stylesheet, error) {
	toks, end, err := tokenize(css)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, end: end}
	return p.parseStylesheet()
}

func tokenize(css string) ([]*scanner.Token, *scanner.Token, error) {
	sc := scanner.New(css)
	var toks []*scanner.Token
	for {
		t := sc.Next()
		switch t.Type {
		case scanner.TokenEOF:
			return toks, t, nil
		case scanner.TokenError:
			return nil, nil, errorAt(t, t.Value)
		case scanner.TokenComment, scanner.TokenCDO, scanner.TokenCDC, scanner.TokenBOM:
			continue
		}
		toks = append(toks, t)
	}
}

func isChar(t *scanner.Token, c string) bool {
	return t.Type == scanner.TokenChar && t.Value == c
}

func (p *parser) atEOF() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() *scanner.Token {
	if p.atEOF() {
		return p.end
	}
	return p.toks[p.pos]
}

// skip drops whitespace and empty statements.
func (p *parser) skip() {
	for !p.atEOF() {
		t := p.peek()
		if t.Type != scanner.TokenS && !isChar(t, ";") {
			return
		}
		p.pos++
	}
}

// collect consumes tokens up to a top-level ';', '{' or '}' and returns them
// with the stop token, which is left unconsumed. At end of input the stop
// token is the EOF token.
func (p *parser) collect() ([]*scanner.Token, *scanner.Token, error) {
	start := p.pos
	var open []*scanner.Token
	for !p.atEOF() {
		t := p.peek()
		switch {
		case t.Type == scanner.TokenFunction, isChar(t, "("), isChar(t, "["):
			open = append(open, t)
		case isChar(t, ")"), isChar(t, "]"):
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		case len(open) == 0 && (isChar(t, ";") || isChar(t, "{") || isChar(t, "}")):
			return p.toks[start:p.pos], t, nil
		}
		p.pos++
	}
	if len(open) > 0 {
		return nil, nil, errorAt(open[len(open)-1], "unclosed bracket")
	}
	return p.toks[start:p.pos], p.end, nil
}

func (p *parser) parseStylesheet() (*Stylesheet, error) {
	sheet := &Stylesheet{}
	for {
		p.skip()
		if p.atEOF() {
			return sheet, nil
		}

		t := p.peek()
		if t.Type == scanner.TokenAtKeyword {
			at, err := p.parseAtRule()
			if err != nil {
				return nil, err
			}
			sheet.Nodes = append(sheet.Nodes, at)
			continue
		}

		toks, stop, err := p.collect()
		if err != nil {
			return nil, err
		}
		switch {
		case isChar(stop, "{"):
			rule, err := p.parseRule(toks, stop)
			if err != nil {
				return nil, err
			}
			sheet.Nodes = append(sheet.Nodes, rule)
		case isChar(stop, "}"):
			return nil, errorAt(stop, "unexpected }")
		case hasColon(toks):
			return nil, errorAt(toks[0], "declaration outside of a rule")
		default:
			return nil, errorAt(toks[0], "unknown word")
		}
	}
}

func (p *parser) parseRule(prelude []*scanner.Token, open *scanner.Token) (*Rule, error) {
	p.pos++ // '{'

	pos := Position{Line: open.Line, Column: open.Column}
	if len(prelude) > 0 {
		pos = Position{Line: prelude[0].Line, Column: prelude[0].Column}
	}
	rule := &Rule{
		Position:  pos,
		Selector:  joinTokens(prelude),
		Selectors: splitSelectors(prelude),
	}

	nodes, err := p.parseBlock(blockRule, open)
	if err != nil {
		return nil, err
	}
	rule.Nodes = nodes
	return rule, nil
}

func (p *parser) parseAtRule() (*AtRule, error) {
	kw := p.peek()
	p.pos++

	at := &AtRule{
		Position: Position{Line: kw.Line, Column: kw.Column},
		Name:     strings.ToLower(strings.TrimPrefix(kw.Value, "@")),
	}

	toks, stop, err := p.collect()
	if err != nil {
		return nil, err
	}
	at.Params = joinTokens(toks)

	// ';' is skipped by the caller and '}' closes the enclosing block.
	if isChar(stop, "{") {
		p.pos++
		at.Block = true
		nodes, err := p.parseBlock(blockAtRule, stop)
		if err != nil {
			return nil, err
		}
		at.Nodes = nodes
	}
	return at, nil
}

func (p *parser) parseBlock(kind blockKind, open *scanner.Token) ([]Node, error) {
	var nodes []Node
	for {
		p.skip()
		if p.atEOF() {
			return nil, errorAt(open, "unclosed block")
		}

		t := p.peek()
		if isChar(t, "}") {
			p.pos++
			return nodes, nil
		}
		if t.Type == scanner.TokenAtKeyword {
			at, err := p.parseAtRule()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, at)
			continue
		}

		toks, stop, err := p.collect()
		if err != nil {
			return nil, err
		}
		if isChar(stop, "{") {
			if kind == blockRule {
				return nil, errorAt(t, "nested rules are not supported")
			}
			rule, err := p.parseRule(toks, stop)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, rule)
			continue
		}

		decl, err := parseDeclaration(toks)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, decl)
	}
}

func parseDeclaration(toks []*scanner.Token) (*Declaration, error) {
	if len(toks) == 0 {
		return nil, &ParseError{Msg: "unknown word"}
	}
	colon := -1
	for i, t := range toks {
		if isChar(t, ":") {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return nil, errorAt(toks[0], "unknown word")
	}

	name := trimSpace(toks[:colon])
	for _, t := range name {
		if t.Type == scanner.TokenS {
			return nil, errorAt(toks[0], "unknown word")
		}
	}

	value := joinTokens(toks[colon+1:])
	important := false
	if loc := importantSuffix.FindStringIndex(value); loc != nil {
		important = true
		value = strings.TrimSpace(value[:loc[0]])
	}

	return &Declaration{
		Position:  Position{Line: toks[0].Line, Column: toks[0].Column},
		Property:  joinTokens(name),
		Value:     value,
		Important: important,
	}, nil
}

func hasColon(toks []*scanner.Token) bool {
	for _, t := range toks {
		if isChar(t, ":") {
			return true
		}
	}
	return false
}

func trimSpace(toks []*scanner.Token) []*scanner.Token {
	for len(toks) > 0 && toks[0].Type == scanner.TokenS {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].Type == scanner.TokenS {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// joinTokens rebuilds source text with every whitespace run collapsed to a
// single space.
func joinTokens(toks []*scanner.Token) string {
	var b strings.Builder
	space := false
	for _, t := range trimSpace(toks) {
		if t.Type == scanner.TokenS {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteString(t.Value)
	}
	return b.String()
}

func splitSelectors(toks []*scanner.Token) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, t := range toks {
		switch {
		case t.Type == scanner.TokenFunction, isChar(t, "("), isChar(t, "["):
			depth++
		case isChar(t, ")"), isChar(t, "]"):
			if depth > 0 {
				depth--
			}
		case depth == 0 && isChar(t, ","):
			if s := joinTokens(toks[start:i]); s != "" {
				parts = append(parts, s)
			}
			start = i + 1
		}
	}
	if s := joinTokens(toks[start:]); s != "" {
		parts = append(parts, s)
	}
	return parts
}
