package bmm

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NDim is the spatial dimensionality of the core. The source is written
// generically over NDIM; this rewrite only ever instantiates 2.
const NDim = 2

// QuotInt returns the Euclidean quotient and remainder of x divided by y:
// q*y + r = x with 0 <= r < |y|. Unlike Go's truncating %, this never
// yields a negative remainder, which is what wrap() below depends on.
func QuotInt(x, y int) (q, r int) {
	q = x / y
	r = x % y
	if r < 0 {
		if y > 0 {
			r += y
			q--
		} else {
			r -= y
			q++
		}
	}
	return q, r
}

// WrapInt returns y in [a, b) congruent to x modulo b-a, computed via the
// overflow-safe reassembly used by the source: reduce x and a separately
// modulo c = b-a, then take the difference of the remainders rather than
// reducing (x-a) directly, which could overflow for integers near the
// type's range. Precondition: b > a.
func WrapInt(x, a, b int) int {
	dynamicAssert(b > a, "WrapInt: b <= a")
	c := b - a
	_, r := QuotInt(x, c)
	_, s := QuotInt(a, c)
	y := r - s
	if y < 0 {
		y += c
	}
	return a + y
}

// UwrapInt is WrapInt(x, 0, b).
func UwrapInt(x, b int) int {
	dynamicAssert(b > 0, "UwrapInt: b <= 0")
	return WrapInt(x, 0, b)
}

// Wrap returns y in [a, b) congruent to x modulo b-a for the floating-point
// domain (positions, angles). Precondition: b > a.
func Wrap(x, a, b float64) float64 {
	dynamicAssert(b > a, "Wrap: b <= a")
	c := b - a
	y := math.Mod(x-a, c)
	if y < 0 {
		y += c
	}
	return a + y
}

// Uwrap is Wrap(x, 0, b).
func Uwrap(x, b float64) float64 {
	dynamicAssert(b > 0, "Uwrap: b <= 0")
	return Wrap(x, 0, b)
}

// Swrap wraps x into the symmetric interval [-p/2, p/2), the form used for
// periodic-image shortest-difference computation.
func Swrap(x, p float64) float64 {
	return Wrap(x, -p/2, p/2)
}

// dynamicAssert mirrors the source's debug-only assertion discipline for
// numeric preconditions: violating it is undefined behavior in a release
// build, so this only panics, it never returns an error value.
func dynamicAssert(cond bool, msg string) {
	if !cond {
		panic("bmm: " + msg)
	}
}

// Hc unpacks a flattened row-major hypercuboid index i into a per-dimension
// index vector ij, given the per-dimension extents nper. The last
// dimension varies fastest.
func Hc(i int, nper []int) []int {
	ij := make([]int, len(nper))
	for d := len(nper) - 1; d >= 0; d-- {
		q, r := QuotInt(i, nper[d])
		ij[d] = r
		i = q
	}
	return ij
}

// Unhc packs a per-dimension index vector ij into a flattened row-major
// index, the inverse of Hc.
func Unhc(ij []int, nper []int) int {
	i := 0
	for d := 0; d < len(nper); d++ {
		i = i*nper[d] + ij[d]
	}
	return i
}

// Vec2 is the core's 2D vector type. It is a named alias over mgl64.Vec2 so
// that the rest of the engine can use mathgl's arithmetic (Add, Sub, Dot,
// Len, LenSqr, Mul) directly while carrying the double-precision contract
// the source's double[2] fields require.
type Vec2 = mgl64.Vec2

// Diff returns a - b.
func Diff(a, b Vec2) Vec2 { return a.Sub(b) }

// Norm returns |v|.
func Norm(v Vec2) float64 { return v.Len() }

// Norm2 returns |v|^2.
func Norm2(v Vec2) float64 { return v.Dot(v) }

// Dot returns a . b.
func Dot(a, b Vec2) float64 { return a.Dot(b) }

// Scale returns v * s.
func Scale(v Vec2, s float64) Vec2 { return v.Mul(s) }

// AddTo returns a + b, the accumulator form used by the force passes.
func AddTo(a, b Vec2) Vec2 { return a.Add(b) }

// Rperp returns v rotated +pi/2 (the right-perpendicular used to build a
// contact tangent from a contact normal).
func Rperp(v Vec2) Vec2 { return Vec2{-v[1], v[0]} }

// Dir returns atan2(v[1], v[0]), the polar angle of v.
func Dir(v Vec2) float64 { return math.Atan2(v[1], v[0]) }

// CpDiff returns the periodic-image shortest difference a - b: each
// periodic dimension is folded through Swrap against the box extent before
// differencing; non-periodic dimensions use the raw difference.
func CpDiff(a, b Vec2, box Vec2, per [NDim]bool) Vec2 {
	var out Vec2
	for d := 0; d < NDim; d++ {
		delta := a[d] - b[d]
		if per[d] {
			delta = Swrap(delta, box[d])
		}
		out[d] = delta
	}
	return out
}

// CpDist2 returns the squared periodic-image distance between a and b.
func CpDist2(a, b Vec2, box Vec2, per [NDim]bool) float64 {
	return Norm2(CpDiff(a, b, box, per))
}
