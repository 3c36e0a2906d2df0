package color

import "math"

// Over composites c over opaque background bg using alpha of c. Channels are
// floored, result is always opaque.
func (c Color) Over(bg Color) Color {
	a := clampAlpha(c.A)
	tint := func(fg, back int) int {
		return min(int(math.Floor((1-a)*float64(back)+a*float64(fg))), 255)
	}
	return Color{
		R: tint(c.R, bg.R),
		G: tint(c.G, bg.G),
		B: tint(c.B, bg.B),
		A: 1,
	}
}
