package color

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is wrapped by every ParseError.
var ErrMalformed = errors.New("malformed color")

// ParseError describes color string which could not be decoded.
type ParseError struct {
	Input  string
	Format Format
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse %s color %q: %s", e.Format, e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

// Classify detects format of the color string by looking at its structure.
// Alpha bearing keywords are checked before their base counterparts.
func Classify(s string) Format {
	ls := strings.ToLower(s)
	switch {
	case strings.Contains(ls, "rgba"), strings.Contains(ls, "rgb"):
		return FormatRgba
	case strings.Contains(ls, "hsla"), strings.Contains(ls, "hsl"):
		return FormatHsla
	case isHexString(strings.TrimPrefix(strings.TrimSpace(ls), "#")):
		return FormatHex
	default:
		return FormatUnknown
	}
}

// Parse decodes color string in one of supported formats: rgb()/rgba(),
// 3 or 6 digit hex with optional '#' and hsl()/hsla().
func Parse(s string) (Color, error) {
	switch f := Classify(s); f {
	case FormatRgba:
		return parseRGBA(s)
	case FormatHex:
		return parseHex(s)
	case FormatHsla:
		return parseHSLA(s)
	default:
		return Color{}, &ParseError{Input: s, Format: f, Reason: "unrecognized color format"}
	}
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Color {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseRGBA(s string) (Color, error) {
	args, err := functionArgs(s, FormatRgba)
	if err != nil {
		return Color{}, err
	}
	if len(args) < 3 {
		return Color{}, &ParseError{Input: s, Format: FormatRgba, Reason: fmt.Sprintf("expected at least 3 components, got %d", len(args))}
	}

	var ch [3]int
	for i := range ch {
		v, ok := leadingInt(args[i])
		if !ok {
			return Color{}, &ParseError{Input: s, Format: FormatRgba, Reason: fmt.Sprintf("bad channel value %q", strings.TrimSpace(args[i]))}
		}
		ch[i] = v
	}
	return New(ch[0], ch[1], ch[2], optionalAlpha(args)), nil
}

func parseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")

	var pairs [3]string
	switch len(h) {
	case 3:
		for i := range pairs {
			pairs[i] = strings.Repeat(h[i:i+1], 2)
		}
	case 6:
		for i := range pairs {
			pairs[i] = h[i*2 : i*2+2]
		}
	default:
		return Color{}, &ParseError{Input: s, Format: FormatHex, Reason: fmt.Sprintf("unsupported length %d", len(h))}
	}

	var ch [3]int
	for i, p := range pairs {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return Color{}, &ParseError{Input: s, Format: FormatHex, Reason: fmt.Sprintf("bad hex digits %q", p)}
		}
		ch[i] = int(v)
	}
	return New(ch[0], ch[1], ch[2], 1), nil
}

func parseHSLA(s string) (Color, error) {
	args, err := functionArgs(s, FormatHsla)
	if err != nil {
		return Color{}, err
	}
	if len(args) < 3 {
		return Color{}, &ParseError{Input: s, Format: FormatHsla, Reason: fmt.Sprintf("expected at least 3 components, got %d", len(args))}
	}

	var v [3]int
	for i := range v {
		n, ok := leadingInt(args[i])
		if !ok {
			return Color{}, &ParseError{Input: s, Format: FormatHsla, Reason: fmt.Sprintf("bad component value %q", strings.TrimSpace(args[i]))}
		}
		v[i] = n
	}

	h := float64(v[0]) / 360
	sat := min(max(float64(v[1])/100, 0), 1)
	l := min(max(float64(v[2])/100, 0), 1)

	r, g, b := hslToRGB(h, sat, l)
	return New(r, g, b, optionalAlpha(args)), nil
}

// functionArgs strips functional wrapper "name(...)" and splits its
// arguments on commas.
func functionArgs(s string, f Format) ([]string, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return nil, &ParseError{Input: s, Format: f, Reason: "missing opening parenthesis"}
	}
	body := s[open+1:]
	if end := strings.LastIndexByte(body, ')'); end >= 0 {
		body = body[:end]
	}
	return strings.Split(body, ","), nil
}

// optionalAlpha returns fourth component as alpha. Absent, unparsable and
// zero values all default to 1 to stay compatible with the original tool.
func optionalAlpha(args []string) float64 {
	if len(args) < 4 {
		return 1
	}
	a, ok := leadingFloat(args[3])
	if !ok || a == 0 {
		return 1
	}
	return a
}

// leadingInt parses base-10 integer prefix of s ignoring surrounding
// whitespace, "12.7" gives 12 and "50%" gives 50.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

// leadingFloat parses decimal floating point prefix of s ignoring surrounding
// whitespace.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	mantissa := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		mantissa++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			mantissa++
		}
	}
	if mantissa == 0 {
		return 0, false
	}
	// exponent is consumed only when it is complete
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		if exp < len(s) && isDigit(s[exp]) {
			for exp < len(s) && isDigit(s[exp]) {
				exp++
			}
			end = exp
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHexString(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isDigit(c) && !('a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
