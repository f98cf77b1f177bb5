package colortransform

import "math"

// lowerGradingPrimary implements a lift/gamma/gain-style primary grade
// pivoted at p.Pivot (spec.md §3.4 GradingPrimary; supplemented per
// SPEC_FULL.md §C.4). p.Style is not consulted: the grade applies to the
// input values as given, whatever working space they are in.
func lowerGradingPrimary(t *Transform) (*Op, error) {
	p := t.Grading
	invert := t.Direction == Inverse
	pivot := p.Pivot
	lift, gamma, gain, contrast := p.Lift, p.Gamma, p.Gain, p.Contrast

	fwd := func(x float64, c int) float64 {
		// Contrast pivots around Pivot, then lift/gain apply additively/
		// multiplicatively, then gamma reshapes above black.
		y := pivot + (x-pivot)*contrast[c]
		y = y*gain[c] + lift[c]
		if y > 0 && gamma[c] > 0 && gamma[c] != 1 {
			y = cdlPower(y, 1/gamma[c])
		}
		return y
	}
	inv := func(y float64, c int) float64 {
		x := y
		if x > 0 && gamma[c] > 0 && gamma[c] != 1 {
			x = cdlPower(x, gamma[c])
		}
		if gain[c] != 0 {
			x = (x - lift[c]) / gain[c]
		} else {
			x = x - lift[c]
		}
		if contrast[c] != 0 {
			x = pivot + (x-pivot)/contrast[c]
		}
		return x
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
	return &Op{Name: "grading_primary", Fn: fn, GPUKernelKey: "grading_primary"}, nil
}

// lowerGradingTone implements a linear contrast around Pivot, with
// Contrast[0] as the slope for all three channels. There is no S-curve
// and no separate shadow/midtone/highlight handling.
func lowerGradingTone(t *Transform) (*Op, error) {
	p := t.Grading
	invert := t.Direction == Inverse
	pivot := p.Pivot
	contrast := p.Contrast[0]
	if contrast == 0 {
		contrast = 1
	}

	fwd := func(x float64) float64 {
		return pivot + (x-pivot)*contrast
	}
	inv := func(y float64) float64 {
		return pivot + (y-pivot)/contrast
	}
	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			x := float64(s[c])
			if invert {
				s[c] = float32(inv(x))
			} else {
				s[c] = float32(fwd(x))
			}
		}
	}
	return &Op{Name: "grading_tone", Fn: fn, GPUKernelKey: "grading_tone"}, nil
}

// evalControlCurve performs monotone piecewise-linear interpolation
// through sorted (ControlX, ControlY) control points.
func evalControlCurve(x float64, cx, cy []float64) float64 {
	n := len(cx)
	if n == 0 {
		return x
	}
	if n == 1 || x <= cx[0] {
		return cy[0]
	}
	if x >= cx[n-1] {
		return cy[n-1]
	}
	lo, hi := 0, n-1
	for lo < hi-1 {
		mid := (lo + hi) / 2
		if cx[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	t := (x - cx[lo]) / (cx[hi] - cx[lo])
	return cy[lo] + (cy[hi]-cy[lo])*t
}

// lowerRGBCurve applies evalControlCurve independently per RGB channel.
func lowerRGBCurve(t *Transform) (*Op, error) {
	p := t.Grading
	if len(p.ControlX) != len(p.ControlY) || len(p.ControlX) < 2 {
		return nil, invalidTransform("RGBCurve requires >=2 matching control points")
	}
	invert := t.Direction == Inverse
	cx, cy := p.ControlX, p.ControlY
	if invert {
		cx, cy = cy, cx
		// An inverted curve requires cx to be sorted ascending for the
		// binary search in evalControlCurve; the caller is responsible for
		// supplying a monotonic forward curve (spec.md §4.2 step 3).
	}
	fn := func(s *Sample) {
		for c := 0; c < 3; c++ {
			s[c] = float32(evalControlCurve(float64(s[c]), cx, cy))
		}
	}
	return &Op{Name: "rgb_curve", Fn: fn, GPUKernelKey: "rgb_curve"}, nil
}

// lowerHueCurve applies a curve over hue angle, adjusting saturation as a
// function of hue (a common creative-grading primitive).
func lowerHueCurve(t *Transform) (*Op, error) {
	p := t.Grading
	if len(p.ControlX) != len(p.ControlY) || len(p.ControlX) < 2 {
		return nil, invalidTransform("HueCurve requires >=2 matching control points")
	}
	cx, cy := p.ControlX, p.ControlY
	invert := t.Direction == Inverse
	fn := func(s *Sample) {
		h, sv, v := rgbToHSV(float64(s[0]), float64(s[1]), float64(s[2]))
		scale := evalControlCurve(math.Mod(h, 360), cx, cy)
		if invert && scale != 0 {
			scale = 1 / scale
		}
		sv *= scale
		r, g, b := hsvToRGB(h, sv, v)
		s[0], s[1], s[2] = float32(r), float32(g), float32(b)
	}
	return &Op{Name: "hue_curve", Fn: fn, GPUKernelKey: "hue_curve"}, nil
}
