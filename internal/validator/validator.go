// Package validator sanitizes author-supplied theme stylesheets.
//
// Only flat rules scoped to :root or .user-theme are accepted. At-rules,
// global or element selectors, external resources and overlay primitives
// (fixed positioning, very high z-index) are reported as violations. All
// violations are collected; a stylesheet is valid only when there are none.
package validator

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Kind classifies a violation.
type Kind string

const (
	KindSelector Kind = "selector"
	KindProperty Kind = "property"
	KindAtRule   Kind = "at-rule"
	KindOther    Kind = "other"
)

// Violation is one reason a stylesheet was rejected. Line and Column are
// 1-based and zero when unknown.
type Violation struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type Result struct {
	Valid  bool        `json:"valid"`
	Errors []Violation `json:"errors"`
}

// Validate checks css against the theme policy. It never panics and never
// returns an error: parse failures are reported as a single KindOther
// violation.
func Validate(css string) Result {
	if !utf8.ValidString(css) {
		return invalid(Violation{Kind: KindOther, Message: "stylesheet is not valid UTF-8 text"})
	}
	if strings.TrimSpace(css) == "" {
		return invalid(Violation{Kind: KindOther, Message: "stylesheet is empty"})
	}

	sheet, err := Parse(css)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return invalid(Violation{Kind: KindOther, Message: "parse error: " + pe.Msg, Line: pe.Line, Column: pe.Column})
		}
		return invalid(Violation{Kind: KindOther, Message: "parse error: " + err.Error()})
	}

	c := &collector{errs: []Violation{}}
	c.walk(sheet.Nodes, "")
	return Result{Valid: len(c.errs) == 0, Errors: c.errs}
}

func invalid(v Violation) Result {
	return Result{Valid: false, Errors: []Violation{v}}
}

type collector struct {
	errs []Violation
}

func (c *collector) add(kind Kind, msg string, pos Position) {
	c.errs = append(c.errs, Violation{Kind: kind, Message: msg, Line: pos.Line, Column: pos.Column})
}

func (c *collector) walk(nodes []Node, selector string) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *AtRule:
			c.add(KindAtRule, atRuleViolation(n.Name), n.Pos())
			c.walk(n.Nodes, "")
		case *Rule:
			if len(n.Selectors) == 0 {
				c.add(KindSelector, "selector must be :root or start with .user-theme", n.Pos())
			}
			for _, sel := range n.Selectors {
				if msg := selectorViolation(sel); msg != "" {
					c.add(KindSelector, msg, n.Pos())
				}
			}
			c.walk(n.Nodes, n.Selector)
		case *Declaration:
			for _, msg := range declarationViolations(n, selector) {
				c.add(KindProperty, msg, n.Pos())
			}
		}
	}
}
