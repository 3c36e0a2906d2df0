// Package fallback produces opaque replacements for declarations using
// translucent colors, for engines which cannot render alpha.
package fallback

import (
	"fmt"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rgbafb/color"
)

// DefaultBackgroundColor is assumed behind every translucent color unless
// configured otherwise.
const DefaultBackgroundColor = "#ffffff"

var (
	// DefaultProperties lists declarations processed by default.
	DefaultProperties = []string{
		"background-color",
		"background",
		"color",
		"border",
		"border-color",
		"outline",
		"outline-color",
	}
	// DefaultOldIEProperties is what "oldie: true" expands to.
	DefaultOldIEProperties = []string{
		"background-color",
		"background",
	}
)

// Options is resolved generator configuration. OldIE lists properties for
// which legacy gradient filters are emitted, empty disables them.
type Options struct {
	Properties      []string
	BackgroundColor string
	OldIE           []string
}

// DefaultOptions returns options matching built-in defaults with legacy
// filters disabled.
func DefaultOptions() Options {
	return Options{
		Properties:      append([]string(nil), DefaultProperties...),
		BackgroundColor: DefaultBackgroundColor,
	}
}

// Result of converting single declaration. Filters are either empty or hold
// two legacy declarations.
type Result struct {
	Fallback Declaration
	Filters  []Declaration
}

// Conversion is a single translucent color together with its opaque
// equivalent.
type Conversion struct {
	Source color.Color
	Opaque color.Color
}

// Hex returns "#rrggbb" of the opaque color.
func (c Conversion) Hex() string {
	return "#" + c.Opaque.Hex()
}

// ARGB returns "#aarrggbb" where alpha comes from the source color.
func (c Conversion) ARGB() string {
	return "#" + color.Color{R: c.Opaque.R, G: c.Opaque.G, B: c.Opaque.B, A: c.Source.A}.ARGB()
}

// Translucent reports whether source alpha is strictly between 0 and 1.
func (c Conversion) Translucent() bool {
	return 0 < c.Source.A && c.Source.A < 1
}

// Generator converts declarations. It is read-only after construction and
// safe for concurrent use.
type Generator struct {
	properties map[string]struct{}
	oldie      map[string]struct{}
	background string
	log        *zap.Logger
}

// New creates generator for the given options.
func New(opts Options, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	bg := opts.BackgroundColor
	if bg == "" {
		bg = DefaultBackgroundColor
	}
	return &Generator{
		properties: toSet(opts.Properties),
		oldie:      toSet(opts.OldIE),
		background: bg,
		log:        log.Named("fallback"),
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return set
}

// Eligible reports whether declaration should be looked at: property must be
// on the allow list and value must contain alpha bearing color function.
func (g *Generator) Eligible(prop, value string) bool {
	if value == "" {
		return false
	}
	if _, ok := g.properties[strings.ToLower(prop)]; !ok {
		return false
	}
	lv := strings.ToLower(value)
	return strings.Contains(lv, "rgba(") || strings.Contains(lv, "hsla(")
}

// LegacyEligible reports whether legacy filters may be produced for property.
func (g *Generator) LegacyEligible(prop string) bool {
	_, ok := g.oldie[strings.ToLower(prop)]
	return ok
}

// Color converts single color expression composing it over configured
// background. Background is parsed on every call.
func (g *Generator) Color(expr string) (Conversion, error) {
	bg, err := color.Parse(g.background)
	if err != nil {
		return Conversion{}, fmt.Errorf("bad background color: %w", err)
	}
	fg, err := color.Parse(expr)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{Source: fg, Opaque: fg.Over(bg)}, nil
}

// LegacyFilter returns gradient filter value for the given "#aarrggbb" color.
func LegacyFilter(argb string) string {
	return "progid:DXImageTransform.Microsoft.gradient(startColorStr=" + argb + ",endColorStr=" + argb + ")"
}

// Convert replaces every rgba()/hsla() function in value with opaque hex
// color. Expressions which cannot be parsed are left untouched and reported
// in returned error; the result is still usable when changed is true.
func (g *Generator) Convert(prop, value string) (res Result, changed bool, err error) {
	var (
		sb    strings.Builder
		first *Conversion
	)

	lexer := css.NewLexer(parse.NewInputString(value))
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			break
		}
		if tt != css.FunctionToken || !isAlphaFunction(data) {
			sb.Write(data)
			continue
		}

		args, closed := functionArguments(lexer)
		expr := strings.ToLower(string(data)) + args + ")"
		conv, cerr := g.Color(expr)
		if cerr != nil {
			err = multierr.Append(err, fmt.Errorf("property %q: %w", prop, cerr))
			sb.Write(data)
			sb.WriteString(args)
			if closed {
				sb.WriteByte(')')
			}
			continue
		}

		g.log.Debug("Converted color", zap.String("property", prop), zap.String("from", expr), zap.String("to", conv.Hex()))
		sb.WriteString(conv.Hex())
		if first == nil {
			first = &conv
		}
	}

	if first == nil || sb.String() == value {
		return Result{}, false, err
	}

	res.Fallback = Declaration{Property: prop, Value: sb.String()}
	if g.LegacyEligible(prop) && first.Translucent() {
		filter := LegacyFilter(first.ARGB())
		res.Filters = []Declaration{
			{Property: "-ms-filter", Value: `"` + filter + `"`},
			{Property: "filter", Value: filter},
		}
	}
	return res, true, err
}

func isAlphaFunction(data []byte) bool {
	name := strings.ToLower(string(data))
	return name == "rgba(" || name == "hsla("
}

// functionArguments collects raw text of function arguments up to matching
// closing parenthesis, which is consumed but not returned.
func functionArguments(lexer *css.Lexer) (string, bool) {
	var sb strings.Builder
	depth := 0
	for {
		tt, data := lexer.Next()
		switch tt {
		case css.ErrorToken:
			return sb.String(), false
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			if depth == 0 {
				return sb.String(), true
			}
			depth--
		}
		sb.Write(data)
	}
}
