package colortransform

import "math"

func exponentScalar(x, gamma float64, neg NegativeStyle, invert bool) float64 {
	p := gamma
	if invert {
		p = 1 / gamma
	}
	if x >= 0 {
		return cdlPower(x, p)
	}
	switch neg {
	case NegMirror:
		return -cdlPower(-x, p)
	case NegPassThru:
		return x
	default: // NegClamp
		return 0
	}
}

func lowerExponent(t *Transform) (*Op, error) {
	p := t.Exponent
	invert := t.Direction == Inverse
	for _, g := range p.Gamma {
		if g == 0 {
			return nil, invalidTransform("exponent gamma must be non-zero")
		}
	}
	gamma := p.Gamma
	neg := p.Negative
	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			s[c] = float32(exponentScalar(float64(s[c]), gamma[c], neg, invert))
		}
	}
	isIdentity := gamma == [3]float64{1, 1, 1}
	return &Op{Name: "exponent", Fn: fn, GPUKernelKey: "exponent", GPUParams: exponentGPUParams(gamma, neg, invert), IsIdentity: isIdentity}, nil
}

// exponentGPUParams flattens the common case (forward, clamp negatives)
// to [gammaR, gammaG, gammaB] for the gpudispatch "exponent" kernel.
// Inverted or mirror/pass-through negative handling isn't representable
// in that flat form yet, so those configurations fall back to
// gpudispatch's errUnsupportedKernel rather than silently applying the
// wrong curve.
func exponentGPUParams(gamma [3]float64, neg NegativeStyle, invert bool) []float32 {
	if invert || neg != NegClamp {
		return nil
	}
	return []float32{float32(gamma[0]), float32(gamma[1]), float32(gamma[2])}
}

// lowerExponentWithLinear models an sRGB-like transfer curve: a linear
// segment near black blended into a power curve, matching the
// ExponentWithLinear payload (spec.md §3.4).
func lowerExponentWithLinear(t *Transform) (*Op, error) {
	p := t.ExponentWithLinear
	gamma := p.Gamma
	offset := p.Offset
	invert := t.Direction == Inverse

	// Forward: breakpoint where linear meets power segment, following the
	// sRGB-style construction: x_break = offset / (gamma - 1). The linear
	// segment's slope is chosen so the curve is continuous at x_break.
	powerSeg := func(x, g, o float64) float64 {
		base := (x + o) / (1 + o)
		return cdlPower(base, g)
	}
	fwd := func(x, g, o float64) float64 {
		if g <= 1 {
			return x
		}
		xb := o / (g - 1)
		if xb <= 0 {
			return powerSeg(x, g, o)
		}
		if x < xb {
			slope := powerSeg(xb, g, o) / xb
			return x * slope
		}
		return powerSeg(x, g, o)
	}
	inv := func(y, g, o float64) float64 {
		if g <= 1 {
			return y
		}
		xb := o / (g - 1)
		yb := fwd(xb, g, o)
		if y < yb {
			if xb == 0 {
				return 0
			}
			return y * xb / yb
		}
		return cdlPower(y, 1/g)*(1+o) - o
	}

	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			x := float64(s[c])
			var y float64
			if x >= 0 {
				if invert {
					y = inv(x, gamma[c], offset[c])
				} else {
					y = fwd(x, gamma[c], offset[c])
				}
			} else {
				y = x
			}
			s[c] = float32(y)
		}
	}
	return &Op{Name: "exponent_with_linear", Fn: fn, GPUKernelKey: "exponent_with_linear"}, nil
}

// lowerLog implements the bare Log variant: out = log_base(in) forward,
// base^in inverse (spec.md §3.4: "for inverses... Log: swap direction").
func lowerLog(t *Transform) (*Op, error) {
	base := t.Log.Base
	if base <= 0 || base == 1 {
		return nil, invalidTransform("log base must be > 0 and != 1")
	}
	lnBase := math.Log(base)
	invert := t.Direction == Inverse
	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			x := float64(s[c])
			var y float64
			if invert {
				y = math.Pow(base, x)
			} else if x > 0 {
				y = math.Log(x) / lnBase
			} else {
				y = math.Inf(-1)
			}
			s[c] = float32(y)
		}
	}
	return &Op{Name: "log", Fn: fn, GPUKernelKey: "log"}, nil
}

// lowerLogAffine implements the affine lin<->log curve family.
func lowerLogAffine(t *Transform) (*Op, error) {
	p := t.LogAffine
	if p.Base <= 0 || p.Base == 1 {
		return nil, invalidTransform("log base must be > 0 and != 1")
	}
	lnBase := math.Log(p.Base)
	invert := t.Direction == Inverse
	linSlope, linOff := p.LinSideSlope, p.LinSideOffset
	logSlope, logOff := p.LogSideSlope, p.LogSideOffset

	fwd := func(x float64, c int) float64 {
		lin := x*linSlope[c] + linOff[c]
		var logv float64
		if lin > 0 {
			logv = math.Log(lin) / lnBase
		} else {
			logv = math.Inf(-1)
		}
		return logv*logSlope[c] + logOff[c]
	}
	inv := func(y float64, c int) float64 {
		logv := (y - logOff[c]) / logSlope[c]
		lin := math.Pow(p.Base, logv)
		return (lin - linOff[c]) / linSlope[c]
	}

	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			x := float64(s[c])
			if invert {
				s[c] = float32(inv(x, c))
			} else {
				s[c] = float32(fwd(x, c))
			}
		}
	}
	return &Op{Name: "log_affine", Fn: fn, GPUKernelKey: "log_affine"}, nil
}

// lowerLogCamera extends LogAffine with an optional linear break below
// which a separate linear slope applies (e.g. camera log curves with a
// toe region), matching the LogCamera payload.
func lowerLogCamera(t *Transform) (*Op, error) {
	p := t.LogCamera
	base, err := lowerLogAffine(&Transform{Kind: KindLogAffine, Direction: t.Direction, LogAffine: &p.LogAffinePayload})
	if err != nil {
		return nil, err
	}
	if !p.HasBreak {
		return base, nil
	}
	brk := p.LinSideBreak
	slope := p.LinearSlope
	invert := t.Direction == Inverse

	// Evaluate the affine log curve at the break point to find the log-side
	// value the toe must connect to.
	affineFwd, _ := lowerLogAffine(&Transform{Kind: KindLogAffine, Direction: Forward, LogAffine: &p.LogAffinePayload})
	logAtBreak := func(c int) float64 {
		var sample Sample
		sample[c] = brk[c]
		affineFwd.Fn(&sample)
		return float64(sample[c])
	}

	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			x := float64(s[c])
			if invert {
				yBreak := logAtBreak(c)
				if x < yBreak {
					if slope[c] == 0 {
						s[c] = float32(brk[c])
					} else {
						s[c] = float32(brk[c] + (x-yBreak)/slope[c])
					}
					continue
				}
				var sample Sample
				sample[c] = float32(x)
				base.Fn(&sample)
				s[c] = sample[c]
			} else {
				if x < brk[c] {
					yBreak := logAtBreak(c)
					s[c] = float32(yBreak + (x-brk[c])*slope[c])
					continue
				}
				var sample Sample
				sample[c] = float32(x)
				base.Fn(&sample)
				s[c] = sample[c]
			}
		}
	}
	return &Op{Name: "log_camera", Fn: fn, GPUKernelKey: "log_camera"}, nil
}

// lowerRange maps [MinIn, MaxIn] to [MinOut, MaxOut], optionally clamping.
// Range-Clamp coerces NaN to MinOut (spec.md §7).
func lowerRange(t *Transform) (*Op, error) {
	p := t.Range
	invert := t.Direction == Inverse
	minIn, maxIn, minOut, maxOut := p.MinIn, p.MaxIn, p.MinOut, p.MaxOut
	if invert {
		minIn, maxIn, minOut, maxOut = minOut, maxOut, minIn, maxIn
	}
	clamp := p.Style == RangeClamp
	var scale float64
	if maxIn != minIn {
		scale = (maxOut - minOut) / (maxIn - minIn)
	}
	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			x := float64(s[c])
			if math.IsNaN(x) {
				if clamp {
					s[c] = float32(minOut)
				}
				continue
			}
			y := minOut + (x-minIn)*scale
			if clamp {
				if y < minOut {
					y = minOut
				} else if y > maxOut {
					y = maxOut
				}
			}
			s[c] = float32(y)
		}
	}
	isIdentity := minIn == minOut && maxIn == maxOut
	params := []float32{float32(minIn), float32(maxIn), float32(minOut), float32(maxOut), 0}
	if clamp {
		params[4] = 1
	}
	return &Op{Name: "range", Fn: fn, GPUKernelKey: "range", GPUParams: params, IsIdentity: isIdentity}, nil
}
