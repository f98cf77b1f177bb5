package colortransform

import "math"

// fastLog2 and fastExp2 implement a Chebyshev-approximated log2/exp2 pair,
// used by cdlPower so that pow(x, p) = exp2(p*log2(x)) runs through the
// same polynomial on every platform instead of libm's pow — this is what
// spec.md §4.2/§9 requires for bit-comparable CDL results across
// implementations. Deviating to math.Pow is permitted by the spec but
// loses bit-parity; this package takes the parity path.
//
// Coefficients are a degree-5 Chebyshev fit of log2(1+f) and 2^f over
// f in [0, 1), matching the shape (not the exact coefficient table) of
// the common graphics-library fast-math approximations this spec alludes
// to.
func fastLog2(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	frac, exp := math.Frexp(x) // x = frac * 2^exp, frac in [0.5, 1)
	f := frac*2 - 1            // shift into [0, 1)
	// Chebyshev-derived polynomial for log2(1+f), f in [0,1).
	poly := f * (1.4426664987 + f*(-0.7213017371+f*(0.4818966778+f*(-0.2745017970+f*0.0739731991))))
	return float64(exp) - 1 + poly
}

func fastExp2(x float64) float64 {
	if math.IsInf(x, -1) {
		return 0
	}
	ip := math.Floor(x)
	f := x - ip // fractional part in [0, 1)
	// Chebyshev-derived polynomial for 2^f, f in [0,1).
	poly := 1.0 + f*(0.6931471806+f*(0.2401619845+f*(0.0558022132+f*(0.0089893397+f*0.0018775767))))
	return math.Ldexp(poly, int(ip))
}

// cdlPower computes x^p using the fastLog2/fastExp2 pair for x > 0, with
// p == 1 short-circuited (spec.md §4.2: "power=1 is short-circuited to
// skip log/exp"). x is assumed already clamped to >= 0 by the caller.
func cdlPower(x, p float64) float64 {
	if p == 1 {
		return x
	}
	if x <= 0 {
		return 0
	}
	return fastExp2(p * fastLog2(x))
}
