// Package color provides the integer RGB-565 color arithmetic the DXT5
// block repairer is built on: packing/unpacking, component clamping, and
// the weighted mixing and rounded division used by the candidate
// transforms in pkg/block.
package color

// RGB is a color expressed as three integer components in the canonical
// DXT5 endpoint ranges: R in [0,31], G in [0,63], B in [0,31]. Components
// are kept as int (not uint8) because intermediate arithmetic in the
// block repairer routinely goes negative or exceeds the packed ranges
// before being clamped or validated.
type RGB struct {
	R, G, B int
}

// Valid reports whether every component lies within its packed 5/6/5
// range. An endpoint that fails Valid cannot be written back into a
// DXT5 chunk.
func (c RGB) Valid() bool {
	return c.R >= 0 && c.R <= 31 && c.G >= 0 && c.G <= 63 && c.B >= 0 && c.B <= 31
}

// Clamp returns c with every component restricted to its packed range.
func (c RGB) Clamp() RGB {
	return RGB{clampInt(c.R, 0, 31), clampInt(c.G, 0, 63), clampInt(c.B, 0, 31)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// From16 unpacks a little-endian RGB-565 value (R in bits 11-15, G in
// bits 5-10, B in bits 0-4) into its three components.
func From16(v uint16) RGB {
	return RGB{
		R: int(v>>11) & 0x1F,
		G: int(v>>5) & 0x3F,
		B: int(v) & 0x1F,
	}
}

// To16 packs c into an RGB-565 value. c must already be Valid; To16 does
// not clamp or range-check.
func (c RGB) To16() uint16 {
	return uint16(c.R)<<11 | uint16(c.G)<<5 | uint16(c.B)
}

// Mix applies f component-wise to two colors, returning the per-component
// results as an RGB. f is typically one of the scaled mixer functions
// used by the block repairer (e.g. "6*a" or "3*a+3*b"); Mix does not
// clamp or scale on its own.
func Mix(a, b RGB, f func(a, b int) int) RGB {
	return RGB{f(a.R, b.R), f(a.G, b.G), f(a.B, b.B)}
}

// Complex applies f component-wise to three colors (two endpoints and a
// third operand, typically a candidate replacement value), mirroring
// Mix but for the three-argument candidate formulas.
func Complex(a, b, x RGB, f func(a, b, x int) int) RGB {
	return RGB{f(a.R, b.R, x.R), f(a.G, b.G, x.G), f(a.B, b.B, x.B)}
}

// RDiv computes (num + den/2) / den, the symmetric-rounding integer
// division used throughout the candidate endpoint solvers. den must be
// positive.
func RDiv(num, den int) int {
	return (num + den/2) / den
}
