package css

import (
	"bytes"
	"io"
	"strings"
)

// Declaration is a single "property: value" pair. Value is kept as raw text
// including "!important" if present.
type Declaration struct {
	Property string
	Value    string
}

// String returns declaration as it appears in CSS without trailing semicolon.
func (d Declaration) String() string {
	return d.Property + ": " + d.Value
}

// Rule is a qualified rule: selector and its declaration block in source
// order. Declarations holds leading declarations, once a comment or nested
// rule is met the rest of the block goes to Items.
type Rule struct {
	Selector     string
	Declarations []Declaration
	Items        []Item
}

// AtRule is an @-rule. Depending on the kind of rule its block holds nested
// items (@media, @supports, ...), declarations (@font-face, @page) or raw
// body text for rules we do not look into. Declaration blocks are split
// the same way as in Rule.
type AtRule struct {
	Name         string // including "@", lower case
	Prelude      string
	Block        bool
	Items        []Item
	Declarations []Declaration
	Body         string
}

// Item is a single node of a stylesheet or a block. Exactly one field is
// set. Declarations is a run of declarations following a comment or nested
// rule inside a block.
type Item struct {
	Comment      *string
	Rule         *Rule
	AtRule       *AtRule
	Declarations []Declaration
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items    []Item   // All top-level items in source order
	Warnings []string // Problems found while parsing
}

// WalkDeclarations calls fn for every declaration block in the stylesheet,
// nested ones included, replacing the block with returned slice.
func (s *Stylesheet) WalkDeclarations(fn func(decls []Declaration) []Declaration) {
	walkItems(s.Items, fn)
}

func walkItems(items []Item, fn func([]Declaration) []Declaration) {
	for i := range items {
		switch {
		case items[i].Rule != nil:
			items[i].Rule.Declarations = fn(items[i].Rule.Declarations)
			walkItems(items[i].Rule.Items, fn)
		case items[i].Declarations != nil:
			items[i].Declarations = fn(items[i].Declarations)
		case items[i].AtRule != nil:
			ar := items[i].AtRule
			if len(ar.Declarations) > 0 {
				ar.Declarations = fn(ar.Declarations)
			}
			walkItems(ar.Items, fn)
		}
	}
}

// Charset returns encoding label declared by @charset rule or empty string.
func (s *Stylesheet) Charset() string {
	for _, item := range s.Items {
		if item.AtRule != nil && item.AtRule.Name == "@charset" {
			return unquote(item.AtRule.Prelude)
		}
	}
	return ""
}

// SetCharset replaces label of existing @charset rule. Stylesheets without
// @charset are left alone.
func (s *Stylesheet) SetCharset(label string) {
	for _, item := range s.Items {
		if item.AtRule != nil && item.AtRule.Name == "@charset" {
			item.AtRule.Prelude = `"` + cssEscapeDoubleQuoted(label) + `"`
			return
		}
	}
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	writeItems(&buf, s.Items, 0, false)
	return buf.WriteTo(w)
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeItems writes block content, afterDecls tells that declarations were
// already written in front of items.
func writeItems(buf *bytes.Buffer, items []Item, depth int, afterDecls bool) {
	indent := strings.Repeat("  ", depth)
	for i, item := range items {
		// blank line around blocks
		if (i > 0 && (isBlock(item) || isBlock(items[i-1]))) || (i == 0 && afterDecls && isBlock(item)) {
			buf.WriteByte('\n')
		}
		switch {
		case item.Comment != nil:
			buf.WriteString(indent)
			buf.WriteString(*item.Comment)
			buf.WriteByte('\n')
		case item.Rule != nil:
			buf.WriteString(indent)
			buf.WriteString(item.Rule.Selector)
			buf.WriteString(" {\n")
			writeBlock(buf, item.Rule.Declarations, item.Rule.Items, depth+1)
			buf.WriteString(indent)
			buf.WriteString("}\n")
		case item.AtRule != nil:
			writeAtRule(buf, item.AtRule, depth)
		case item.Declarations != nil:
			writeDeclarations(buf, item.Declarations, depth)
		}
	}
}

func writeBlock(buf *bytes.Buffer, decls []Declaration, items []Item, depth int) {
	writeDeclarations(buf, decls, depth)
	writeItems(buf, items, depth, len(decls) > 0)
}

func writeAtRule(buf *bytes.Buffer, ar *AtRule, depth int) {
	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	buf.WriteString(ar.Name)
	if ar.Prelude != "" {
		buf.WriteByte(' ')
		buf.WriteString(ar.Prelude)
	}
	if !ar.Block {
		buf.WriteString(";\n")
		return
	}
	if len(ar.Items) == 0 && len(ar.Declarations) == 0 {
		buf.WriteString(" {")
		buf.WriteString(ar.Body)
		buf.WriteString("}\n")
		return
	}
	buf.WriteString(" {\n")
	writeBlock(buf, ar.Declarations, ar.Items, depth+1)
	buf.WriteString(indent)
	buf.WriteString("}\n")
}

func writeDeclarations(buf *bytes.Buffer, decls []Declaration, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, d := range decls {
		buf.WriteString(indent)
		buf.WriteString(d.Property)
		buf.WriteString(": ")
		buf.WriteString(d.Value)
		buf.WriteString(";\n")
	}
}

// isBlock reports items written with surrounding blank lines: rules and
// at-rules with blocks. Runs of statements, comments and declarations are
// kept together.
func isBlock(item Item) bool {
	return item.Rule != nil || (item.AtRule != nil && item.AtRule.Block)
}

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func cssEscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
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
