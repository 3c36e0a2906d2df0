package color

import "math"

// hslToRGB converts hue (fraction of a full turn), saturation and lightness
// (both in [0, 1]) into 8 bit channels.
func hslToRGB(h, s, l float64) (r, g, b int) {
	if s == 0 {
		// achromatic
		v := round255(l)
		return v, v, v
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return round255(hueToChannel(p, q, h+1.0/3)),
		round255(hueToChannel(p, q, h)),
		round255(hueToChannel(p, q, h-1.0/3))
}

func hueToChannel(p, q, t float64) float64 {
	t -= math.Floor(t)
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

// round255 scales v to 8 bits rounding half up.
func round255(v float64) int {
	return int(math.Floor(v*255 + 0.5))
}
