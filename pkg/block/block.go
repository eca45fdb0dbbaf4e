// Package block implements the DXT5 palette-block repairer: given one
// block whose two RGB-565 endpoints are in the ambiguous "punch-through"
// order (cs0 <= cs1), it searches a small set of analytically-derived
// candidate endpoint pairs for the one that best reproduces the block's
// 16 texels under the canonical "opaque" palette interpretation.
package block

import (
	"errors"
	"math"

	"github.com/goopsie/dattexfix/pkg/color"
)

// ErrInvalidIndex is returned when a block contains a texel using index
// 11, which the punch-through interpretation reserves for transparency
// and which this repairer's input is never supposed to carry.
var ErrInvalidIndex = errors.New("block: invalid DXT5 color encoding")

// Chunk is the color portion of a 16-byte DXT5 block: the two RGB-565
// endpoints and the 32-bit field of sixteen 2-bit palette indices
// (texel k at bits 2k, 2k+1). The 8-byte alpha payload that precedes
// these fields on the wire belongs to the caller; this package never
// reads or writes it.
type Chunk struct {
	CS0, CS1 uint16
	CV       uint32
}

// Repair returns the opaque-mode equivalent of chunk, which must have
// cs0 <= cs1 and no texel using index 11. The result is not yet
// canonicalized (cs0 may still equal cs1, or rarely even be less than
// cs1 for degenerate inputs); call Canonicalize on the result.
func Repair(chunk Chunk) (Chunk, error) {
	var dist [4]int
	for i := 0; i < 16; i++ {
		idx := (chunk.CV >> uint(i*2)) & 0x3
		dist[idx]++
	}
	if dist[3] != 0 {
		return Chunk{}, ErrInvalidIndex
	}

	count := 0
	for i := 0; i < 3; i++ {
		if dist[i] != 0 {
			count++
		}
	}

	cs0 := color.From16(chunk.CS0)
	cs1 := color.From16(chunk.CS1)
	cv := chunk.CV

	switch count {
	case 1:
		cs0, cs1 = handle1(cs0, cs1)
	case 2:
		if dist[0] == 0 {
			cs0, cs1 = cs1, cs0
			cv &= 0xAAAAAAAA
		}
		cs0, cs1, cv = handle2(cs0, cs1, cv, dist[2])
	case 3:
		w := [4]int{dist[0], dist[1], dist[2], dist[3]}
		cs0, cs1, cv = handle3(cs0, cs1, cv, w)
	default:
		return Chunk{}, ErrInvalidIndex
	}

	return Chunk{CS0: cs0.To16(), CS1: cs1.To16(), CV: cv}, nil
}

// Canonicalize enforces the opaque-mode invariant cs0 > cs1. If cs0 <
// cs1 it swaps the endpoints and flips every index's low/high mapping
// (XOR cv with 0x55555555). If cs0 == cs1 it applies the trivial form:
// endpoint 0 becomes 1 with every texel on index 01 (endpoint 1) when
// both were 0, otherwise endpoint 1 becomes 0 with every texel on
// index 00 (endpoint 0).
func Canonicalize(chunk Chunk) Chunk {
	switch {
	case chunk.CS0 < chunk.CS1:
		chunk.CS0, chunk.CS1 = chunk.CS1, chunk.CS0
		chunk.CV ^= 0x55555555
	case chunk.CS0 == chunk.CS1:
		if chunk.CS0 == 0 {
			chunk.CS0 = 1
			chunk.CV = 0x55555555
		} else {
			chunk.CS1 = 0
			chunk.CV = 0x00000000
		}
	}
	return chunk
}

// mixer functions. Each returns a color scaled by a factor of 6 (or a
// fraction of 6) so that weighted-error comparisons across candidates
// never need to divide first; see pkg/color.Mix for the underlying
// component-wise application.
func mixSixA(a, b color.RGB) color.RGB {
	return color.Mix(a, b, func(ac, bc int) int { return 6 * ac })
}
func mixSixB(a, b color.RGB) color.RGB {
	return color.Mix(a, b, func(ac, bc int) int { return 6 * bc })
}
func mixMidpoint(a, b color.RGB) color.RGB {
	return color.Mix(a, b, func(ac, bc int) int { return 3*ac + 3*bc })
}
func mixThirdLow(a, b color.RGB) color.RGB {
	return color.Mix(a, b, func(ac, bc int) int { return 4*ac + 2*bc })
}
func mixThirdHigh(a, b color.RGB) color.RGB {
	return color.Mix(a, b, func(ac, bc int) int { return 2*ac + 4*bc })
}

func singleError2(x, y color.RGB) int {
	r, g, b := y.R-x.R, y.G-x.G, y.B-x.B
	return 2*r*r + g*g + 3*b*b
}

func totalError2(w [4]int, e0, e1, e2 int) int {
	return w[0]*e0 + w[1]*e1 + w[2]*e2
}

func totalError2P2(w2, e0, e2 int) int {
	return (16-w2)*e0 + w2*e2
}

type preEvalP2 struct {
	w2     int
	h0, h2 color.RGB
}

func newPreEvalP2(w2 int, a1, a2 color.RGB) preEvalP2 {
	return preEvalP2{w2: w2, h0: mixSixA(a1, a2), h2: mixMidpoint(a1, a2)}
}

type preEvalP3 struct {
	w          [4]int
	h0, h1, h2 color.RGB
}

func newPreEvalP3(w [4]int, a1, a2 color.RGB) preEvalP3 {
	return preEvalP3{w: w, h0: mixSixA(a1, a2), h1: mixSixB(a1, a2), h2: mixMidpoint(a1, a2)}
}

func (p preEvalP3) invert() preEvalP3 {
	return preEvalP3{w: p.w, h0: p.h1, h1: p.h0, h2: p.h2}
}

type mixFn func(a, b color.RGB) color.RGB

type evalResult struct {
	b1, b2 color.RGB
	cv     uint32
	err2   int
}

func evalP3(b1, b2 color.RGB, cv uint32, pre preEvalP3, x0, x1, x2 mixFn) evalResult {
	e0 := singleError2(x0(b1, b2), pre.h0)
	e1 := singleError2(x1(b1, b2), pre.h1)
	e2 := singleError2(x2(b1, b2), pre.h2)
	return evalResult{b1: b1, b2: b2, cv: cv, err2: totalError2(pre.w, e0, e1, e2)}
}

func evalP2(b1, b2 color.RGB, cv uint32, pre preEvalP2, x0, x2 mixFn) evalResult {
	if !b1.Valid() || !b2.Valid() {
		return evalResult{b1: b1, b2: b2, cv: cv, err2: math.MaxInt32}
	}
	e0 := singleError2(x0(b1, b2), pre.h0)
	e2 := singleError2(x2(b1, b2), pre.h2)
	return evalResult{b1: b1, b2: b2, cv: cv, err2: totalError2P2(pre.w2, e0, e2)}
}

func minEval(candidates ...evalResult) evalResult {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.err2 < best.err2 {
			best = c
		}
	}
	return best
}

func invertWeights(w [4]int) [4]int {
	return [4]int{w[1], w[0], w[2], w[3]}
}

func rdiv(num, den int) int {
	return (num + den/2) / den
}

func rdivHalf(num, den, half int) int {
	return (num + half) / den
}

// iiix solves the candidate pair where the first endpoint is left at
// cs0 and the second is extended outward from (cs0, cs1). If the
// unconstrained extension is out of range it is clamped and the first
// endpoint is re-solved against the clamped value.
func iiix(cs0, cs1 color.RGB, w [4]int) (color.RGB, color.RGB) {
	b := color.Mix(cs0, cs1, func(a, b int) int { return b + (b-a)/2 })
	if b.Valid() {
		return cs0, b
	}
	b = b.Clamp()
	a := color.Complex(cs0, cs1, b, func(a1, a2, x int) int {
		return rdiv(3*(3*w[0]+w[2])*a1+3*(w[1]+w[2])*a2-2*(w[1]+w[2])*x, 9*w[0]+w[1]+4*w[2])
	})
	return a, b
}

type iixiStore struct {
	w0w1, w0w2, w1w2, k, kHalf int
}

func newIixiStore(w [4]int) iixiStore {
	w0w1, w0w2, w1w2 := w[0]*w[1], w[0]*w[2], w[1]*w[2]
	k := 18*w0w1 + 2*w0w2 + 8*w1w2
	return iixiStore{w0w1: w0w1, w0w2: w0w2, w1w2: w1w2, k: k, kHalf: k / 2}
}

func (s iixiStore) invert() iixiStore {
	w0w1, w0w2, w1w2 := s.w0w1, s.w1w2, s.w0w2
	k := 18*w0w1 + 2*w0w2 + 8*w1w2
	return iixiStore{w0w1: w0w1, w0w2: w0w2, w1w2: w1w2, k: k, kHalf: k / 2}
}

// iixi solves the candidate pair where both endpoints move together,
// weighted by the cross-products of the three bucket counts.
func iixi(cs0, cs1 color.RGB, w [4]int, s iixiStore) (color.RGB, color.RGB) {
	b := color.Mix(cs0, cs1, func(a1, a2 int) int {
		return rdivHalf(s.k*a2+s.w0w2*(a2-a1), s.k, s.kHalf)
	})
	var a color.RGB
	if b.Valid() {
		a = color.Mix(cs0, cs1, func(a1, a2 int) int {
			return rdivHalf(s.k*a1+2*s.w1w2*(a2-a1), s.k, s.kHalf)
		})
	} else {
		b = b.Clamp()
		a = color.Complex(cs0, cs1, b, func(a1, a2, x int) int {
			return rdiv(9*w[0]*a1+3*w[2]*(a1+a2)-2*w[2]*x, 9*w[0]+4*w[2])
		})
	}
	return a, b
}

// handle1 is the k=1 "squeeze" method: every texel selects the same
// color, so both endpoints collapse to the integer midpoint, rounded
// down for cs1 and up for cs0 so the canonical cs0 > cs1 ordering holds
// without touching the index field.
func handle1(cs0, cs1 color.RGB) (color.RGB, color.RGB) {
	lower := color.Mix(cs0, cs1, func(a, b int) int { return (a + b) / 2 })
	upper := color.Mix(cs0, cs1, func(a, b int) int { return (a + b + 1) / 2 })
	return upper, lower
}

// handle2 is the k=2 case, with the unused index already normalized to
// 01 by the caller. It first tries the direct outward extension of
// cs1; if that lands out of range it falls back to evaluating three
// index-remapping candidates (ixxi, ixix, xiix) and keeps the cheapest.
func handle2(cs0, cs1 color.RGB, cv uint32, w2 int) (color.RGB, color.RGB, uint32) {
	outer := color.Mix(cs0, cs1, func(a, b int) int { return b + (b-a)/2 })
	if outer.Valid() {
		return cs0, outer, cv
	}

	pre := newPreEvalP2(w2, cs0, cs1)

	ixxi := evalP2(cs0, color.Mix(cs0, cs1, func(a, b int) int { return (b + a) / 2 }),
		cv>>1, pre, mixSixA, mixSixB)
	ixix := evalP2(cs0, color.Mix(cs0, cs1, func(a, b int) int { return (3*b + a + 1) / 4 }),
		cv|(cv>>1), pre, mixSixA, mixThirdHigh)
	xiix := evalP2(color.Mix(cs0, cs1, func(a, b int) int { return a - (b-a)/2 }), cs1,
		(cv>>1)|0xAAAAAAAA, pre, mixThirdLow, mixThirdHigh)

	best := minEval(ixxi, ixix, xiix)
	return best.b1, best.b2, best.cv
}

// handle3 is the k=3 case: all four opaque-mode candidates (iiix,
// xiii, iixi, ixii) are solved and the one with lowest weighted error
// wins.
func handle3(cs0, cs1 color.RGB, cv uint32, w [4]int) (color.RGB, color.RGB, uint32) {
	s := newIixiStore(w)
	p3 := newPreEvalP3(w, cs0, cs1)

	iiixA, iiixB := iiix(cs0, cs1, w)
	iiixEval := evalP3(iiixA, iiixB, cv|((cv<<1)&0xAAAAAAAA), p3, mixSixA, mixThirdHigh, mixThirdLow)

	xiiiA, xiiiB := iiix(cs1, cs0, invertWeights(w))
	xiiiEval := evalP3(xiiiA, xiiiB, (cv^0x55555555)|((cv<<1)&0xAAAAAAAA), p3.invert(), mixThirdLow, mixSixB, mixThirdHigh)

	iixiA, iixiB := iixi(cs0, cs1, w, s)
	iixiEval := evalP3(iixiA, iixiB, cv, p3, mixSixA, mixSixB, mixThirdLow)

	ixiiA, ixiiB := iixi(cs1, cs0, invertWeights(w), s.invert())
	ixiiEval := evalP3(ixiiA, ixiiB, cv^0x55555555, p3.invert(), mixSixA, mixSixB, mixThirdHigh)

	best := minEval(iiixEval, xiiiEval, iixiEval, ixiiEval)
	return best.b1, best.b2, best.cv
}
