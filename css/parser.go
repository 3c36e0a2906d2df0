package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets preserving order of rules and declarations.
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

// Parse parses CSS text into a Stylesheet. It never fails: constructs which
// cannot be parsed are dropped and reported in Stylesheet.Warnings.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Items:    make([]Item, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	ps := &parsing{
		log:    p.log,
		parser: css.NewParser(parse.NewInputBytes(data), false),
		sheet:  sheet,
		src:    data,
	}
	b, _ := ps.parseBlock(true)
	sheet.Items = append(sheet.Items, b.items...)
	return sheet
}

// parsing is the state of a single Parse call. Grammar parser normalizes
// whitespace and skips comments inside blocks, so raw source between grammar
// offsets is consulted for those.
type parsing struct {
	log    *zap.Logger
	parser *css.Parser
	sheet  *Stylesheet
	src    []byte
	off    int // where source of the last grammar starts
}

// next returns next grammar along with its raw source text.
func (ps *parsing) next() (css.GrammarType, []byte, []byte) {
	ps.off = ps.parser.Offset()
	gt, _, data := ps.parser.Next()
	return gt, data, ps.source(ps.off)
}

// source returns raw text from offset start up to the current parser position.
func (ps *parsing) source(start int) []byte {
	end := min(ps.parser.Offset(), len(ps.src))
	return ps.src[min(start, end):end]
}

// block accumulates content of a stylesheet, rule or at-rule block keeping
// source order. Declarations go to decls until the first comment or nested
// rule, everything after that goes to items.
type block struct {
	decls []Declaration
	items []Item
}

func (b *block) declaration(d Declaration) {
	if len(b.items) == 0 {
		b.decls = append(b.decls, d)
		return
	}
	if last := &b.items[len(b.items)-1]; last.Declarations != nil {
		last.Declarations = append(last.Declarations, d)
		return
	}
	b.items = append(b.items, Item{Declarations: []Declaration{d}})
}

func (b *block) comments(list []string) {
	for _, c := range list {
		b.items = append(b.items, Item{Comment: &c})
	}
}

func (b *block) item(item Item) {
	b.items = append(b.items, item)
}

// parseBlock consumes grammar until the end of current at-rule block or end
// of input. Nested rules and declarations are collected separately, caller
// decides which of them make sense for the block. Raw body is returned for
// at-rules we do not look into.
func (ps *parsing) parseBlock(top bool) (b block, body string) {
	start := ps.parser.Offset()
	lastErr := -1
	unknown := false

	done := func() (block, string) {
		if unknown {
			// comments are part of raw body already
			return block{}, rawBody(ps.source(start))
		}
		return b, ""
	}

	for {
		gt, data, src := ps.next()
		if gt != css.CommentGrammar && gt != css.TokenGrammar {
			comments, _, _ := scanSource(src)
			b.comments(comments)
		}

		switch gt {
		case css.ErrorGrammar:
			if !ps.parser.HasParseError() {
				if err := ps.parser.Err(); err != nil && !errors.Is(err, io.EOF) {
					ps.warn("Unable to read stylesheet", err.Error())
				}
				return done()
			}
			// do not spin on the same broken construct
			off := ps.parser.Offset()
			if off == lastErr {
				return done()
			}
			lastErr = off
			ps.warn("CSS parse error, skipping", ps.parser.Err().Error())

		case css.EndAtRuleGrammar:
			if !top {
				return done()
			}

		case css.CommentGrammar:
			b.comments([]string{string(data)})

		case css.AtRuleGrammar:
			b.item(Item{AtRule: &AtRule{
				Name:    string(data),
				Prelude: joinTokens(ps.parser.Values()),
			}})

		case css.BeginAtRuleGrammar:
			ar := &AtRule{
				Name:    string(data),
				Prelude: joinTokens(ps.parser.Values()),
				Block:   true,
			}
			nested, raw := ps.parseBlock(false)
			ar.Declarations, ar.Items = nested.decls, nested.items
			ar.Body = raw
			ps.log.Debug("Parsed at-rule", zap.String("rule", ar.Name), zap.String("prelude", ar.Prelude),
				zap.Int("items", len(ar.Items)), zap.Int("declarations", len(ar.Declarations)))
			b.item(Item{AtRule: ar})

		case css.BeginRulesetGrammar:
			b.item(Item{Rule: ps.parseRule(joinSelector(ps.parser.Values()))})

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			d := makeDeclaration(gt, data, ps.parser.Values(), src)
			if top {
				ps.warn("Declaration outside of any rule, skipping", d.String())
				continue
			}
			b.declaration(d)

		case css.TokenGrammar:
			// content of at-rules we do not look into is taken from source,
			// CDO/CDC at top level are dropped
			unknown = !top
		}
	}
}

// parseRule parses rule block until EndRulesetGrammar. Rules may nest.
func (ps *parsing) parseRule(selector string) *Rule {
	var b block
	lastErr := -1

loop:
	for {
		gt, data, src := ps.next()
		comments, _, _ := scanSource(src)
		b.comments(comments)

		switch gt {
		case css.EndRulesetGrammar:
			break loop

		case css.ErrorGrammar:
			if !ps.parser.HasParseError() {
				break loop
			}
			off := ps.parser.Offset()
			if off == lastErr {
				break loop
			}
			lastErr = off
			ps.warn("Invalid declaration, skipping", ps.parser.Err().Error())

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			b.declaration(makeDeclaration(gt, data, ps.parser.Values(), src))

		case css.BeginRulesetGrammar:
			nested := joinSelector(ps.parser.Values())
			b.item(Item{Rule: ps.parseRule(nested)})
			ps.log.Debug("Parsed nested rule", zap.String("parent", selector), zap.String("rule", nested))

		case css.AtRuleGrammar:
			ps.warn("Nested at-rule is not supported, skipping", string(data))

		case css.BeginAtRuleGrammar:
			ps.warn("Nested at-rule is not supported, skipping", string(data))
			ps.skipAtRuleBlock()
		}
	}
	return &Rule{Selector: selector, Declarations: b.decls, Items: b.items}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (ps *parsing) skipAtRuleBlock() {
	depth := 1
	for depth > 0 {
		gt, _, _ := ps.parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if !ps.parser.HasParseError() {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// warn records problem in the stylesheet, parsing goes on.
func (ps *parsing) warn(msg, details string) {
	ps.sheet.Warnings = append(ps.sheet.Warnings, msg+": "+details)
	ps.log.Debug(msg, zap.String("details", details))
}

// makeDeclaration builds declaration keeping value text as it was written
// in src, normalized token text is used only when source could not be read.
func makeDeclaration(gt css.GrammarType, name []byte, values []css.Token, src []byte) Declaration {
	d := Declaration{Property: string(name)}
	if gt == css.CustomPropertyGrammar {
		// custom property value is a single raw token
		var sb strings.Builder
		for _, t := range values {
			sb.Write(t.Data)
		}
		d.Value = strings.TrimSpace(sb.String())
		return d
	}
	if _, value, ok := scanSource(src); ok {
		d.Value = value
		return d
	}
	d.Value = joinTokens(values)
	return d
}

// scanSource lexes raw source of a single grammar. It returns comments in
// front of it and, when grammar looks like "name: value", the value text
// with terminating semicolon or brace removed.
func scanSource(src []byte) (comments []string, value string, ok bool) {
	if len(src) == 0 {
		return nil, "", false
	}
	s := string(src)
	lexer := css.NewLexer(parse.NewInputString(s))
	pos, named := 0, false
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			return comments, "", false
		}
		pos += len(data)
		switch tt {
		case css.CommentToken:
			if !named {
				comments = append(comments, string(data))
			}
		case css.WhitespaceToken, css.SemicolonToken:
		case css.ColonToken:
			if named {
				return comments, declarationValue(s[pos:]), true
			}
			named = true
		default:
			named = true
		}
	}
}

func declarationValue(s string) string {
	s = strings.TrimSpace(s)
	if n := len(s); n > 0 && (s[n-1] == ';' || s[n-1] == '}') {
		s = s[:n-1]
	}
	return strings.TrimSpace(s)
}

// rawBody strips closing brace from raw at-rule block source.
func rawBody(src []byte) string {
	if n := len(src); n > 0 && src[n-1] == '}' {
		src = src[:n-1]
	}
	return string(src)
}

// joinTokens restores text from tokens, parser already normalized whitespace
// between them.
func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// joinSelector restores selector text putting single spaces around
// combinators and after commas of selector groups.
func joinSelector(tokens []css.Token) string {
	var buf []byte
	level := 0
	for _, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			level++
		case css.RightParenthesisToken, css.RightBracketToken:
			level--
		case css.WhitespaceToken:
			if len(buf) == 0 || buf[len(buf)-1] == ' ' {
				continue
			}
		}
		if level == 0 && len(t.Data) == 1 {
			switch t.Data[0] {
			case ',':
				buf = append(bytes.TrimRight(buf, " "), ", "...)
				continue
			case '>', '+', '~':
				buf = append(bytes.TrimRight(buf, " "), ' ', t.Data[0], ' ')
				continue
			}
		}
		buf = append(buf, t.Data...)
	}
	return strings.TrimSpace(string(buf))
}
