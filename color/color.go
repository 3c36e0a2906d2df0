// Package color implements the color model used to produce opaque fallbacks:
// parsing of rgb(a)/hsl(a)/hex strings, source-over compositing and hex
// serialization.
package color

import (
	"math"
	"strconv"
	"strings"
)

// Color is an RGBA color. Channels are in [0, 255], alpha is in [0, 1].
type Color struct {
	R, G, B int
	A       float64
}

// Opaque white, default compositing background.
var White = Color{R: 255, G: 255, B: 255, A: 1}

// New returns color with all components clamped to their valid ranges.
func New(r, g, b int, a float64) Color {
	return Color{
		R: clampChannel(r),
		G: clampChannel(g),
		B: clampChannel(b),
		A: clampAlpha(a),
	}
}

// Hex returns lower-case "rrggbb" without leading '#'.
func (c Color) Hex() string {
	var sb strings.Builder
	sb.Grow(6)
	writeHexByte(&sb, c.R)
	writeHexByte(&sb, c.G)
	writeHexByte(&sb, c.B)
	return sb.String()
}

// ARGB returns lower-case "aarrggbb" without leading '#', alpha byte is
// round(A*255).
func (c Color) ARGB() string {
	var sb strings.Builder
	sb.Grow(8)
	writeHexByte(&sb, alphaByte(c.A))
	sb.WriteString(c.Hex())
	return sb.String()
}

// IsOpaque reports whether color has full alpha.
func (c Color) IsOpaque() bool {
	return c.A >= 1
}

func (c Color) String() string {
	return "rgba(" + strconv.Itoa(c.R) + "," + strconv.Itoa(c.G) + "," + strconv.Itoa(c.B) + "," +
		strconv.FormatFloat(c.A, 'f', -1, 64) + ")"
}

func writeHexByte(sb *strings.Builder, v int) {
	const digits = "0123456789abcdef"
	v = clampChannel(v)
	sb.WriteByte(digits[v>>4])
	sb.WriteByte(digits[v&0x0f])
}

func alphaByte(a float64) int {
	return int(math.Floor(clampAlpha(a)*255 + 0.5))
}

func clampChannel(v int) int {
	return min(max(v, 0), 255)
}

func clampAlpha(a float64) float64 {
	if math.IsNaN(a) {
		return 1
	}
	return min(max(a, 0), 1)
}
