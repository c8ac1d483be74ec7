package validator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/css/scanner"
)

const (
	rootSelector = ":root"
	scopeClass   = ".user-theme"

	// MaxZIndex is the highest z-index an author may set.
	MaxZIndex = 1000
)

var forbiddenSelectors = map[string]struct{}{
	"body":   {},
	"html":   {},
	"*":      {},
	"html *": {},
	"body *": {},
	"script": {},
	"iframe": {},
	"object": {},
	"embed":  {},
}

// attributeUniversal matches [attr] and *[attr] selectors.
var attributeUniversal = regexp.MustCompile(`^\*?\[[^\]]*\]$`)

// Named in messages; every other at-rule is rejected too.
var forbiddenAtRules = map[string]struct{}{
	"import":    {},
	"font-face": {},
	"charset":   {},
	"namespace": {},
	"keyframes": {},
	"media":     {},
	"supports":  {},
}

// resourceFunctions load external content from a value.
var resourceFunctions = map[string]struct{}{
	"url":               {},
	"src":               {},
	"image-set":         {},
	"-webkit-image-set": {},
}

var forbiddenProperties = map[string]struct{}{
	"content":    {},
	"behavior":   {},
	"expression": {},
}

var importantSuffix = regexp.MustCompile(`(?i)!\s*important\s*$`)

func atRuleViolation(name string) string {
	if _, ok := forbiddenAtRules[name]; ok {
		return fmt.Sprintf("forbidden at-rule: @%s", name)
	}
	return fmt.Sprintf("at-rules are not allowed: @%s", name)
}

// selectorViolation returns "" when sel is allowed.
func selectorViolation(sel string) string {
	lower := strings.ToLower(sel)

	if _, ok := forbiddenSelectors[lower]; ok || attributeUniversal.MatchString(lower) {
		return "forbidden selector: " + sel
	}
	if lower == rootSelector {
		return ""
	}
	if rest, ok := strings.CutPrefix(lower, scopeClass); ok && (rest == "" || rest[0] == ' ') {
		return ""
	}
	return fmt.Sprintf("selector must be %s or start with %s: %s", rootSelector, scopeClass, sel)
}

// declarationViolations checks one declaration. selector is the enclosing
// rule's selector, empty when the parent is not a rule.
func declarationViolations(d *Declaration, selector string) []string {
	var out []string

	prop := normalizeProperty(d.Property)
	value := strings.ToLower(d.Value)

	hasResource, hasExpression := scanValue(value)
	if hasResource {
		out = append(out, fmt.Sprintf("external resources are not allowed: url() in %s", d.Property))
	}
	if hasExpression {
		out = append(out, fmt.Sprintf("script expressions are not allowed in %s", d.Property))
	}

	switch prop {
	case "position":
		switch w := firstWord(value); w {
		case "fixed", "sticky", "-webkit-sticky":
			out = append(out, "position: "+w+" is not allowed")
		}
	case "z-index":
		if n, ok := leadingInt(value); ok && n > MaxZIndex {
			out = append(out, fmt.Sprintf("z-index above %d is not allowed (got %d)", MaxZIndex, n))
		}
	case "display":
		if strings.ToLower(strings.TrimSpace(selector)) == rootSelector && strings.TrimSpace(value) == "none" {
			out = append(out, "display: none on :root is not allowed")
		}
	}

	if _, ok := forbiddenProperties[prop]; ok {
		out = append(out, "property not allowed: "+prop)
	}
	return out
}

// normalizeProperty lowercases, resolves escapes and drops the legacy
// '*' and '_' property hacks.
func normalizeProperty(p string) string {
	p = unescapeIdent(strings.ToLower(strings.TrimSpace(p)))
	return strings.TrimLeft(p, "*_")
}

// scanValue tokenizes a lowercased value and reports resource-loading and
// expression() functions.
func scanValue(value string) (resource, expression bool) {
	sc := scanner.New(value)
	for {
		t := sc.Next()
		switch t.Type {
		case scanner.TokenEOF, scanner.TokenError:
			return resource, expression
		case scanner.TokenURI:
			resource = true
		case scanner.TokenFunction:
			name := unescapeIdent(strings.TrimSuffix(t.Value, "("))
			if _, ok := resourceFunctions[name]; ok {
				resource = true
			}
			if name == "expression" {
				expression = true
			}
		}
	}
}

func firstWord(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return unescapeIdent(fields[0])
}

// leadingInt parses an optionally signed run of leading digits and ignores
// whatever follows, so "1001px" yields 1001. Out-of-range values saturate.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		if s[0] == '-' {
			return math.MinInt64, true
		}
		return math.MaxInt64, true
	}
	return n, true
}

// unescapeIdent resolves CSS escapes (\72 and \r style) in an identifier.
func unescapeIdent(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(s) && j-i <= 6 && isHex(s[j]) {
			j++
		}
		if j > i+1 {
			n, _ := strconv.ParseUint(s[i+1:j], 16, 32)
			b.WriteString(strings.ToLower(string(rune(n))))
			if j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
				j++
			}
			i = j - 1
			continue
		}
		b.WriteByte(s[j])
		i = j
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
