package colortransform

import "math"

// lowerFixedFunction implements the named core set of FixedFunction styles
// (spec.md §9 open question (c)): REC2020 gamut compression, Rec.709
// surround, HSV adjust, XYZ<->{Lab,xyY,uvY,LUV}, and PQ OETF/EOTF.
// Unrecognized styles return NotSupported.
func lowerFixedFunction(t *Transform) (*Op, error) {
	p := t.FixedFunction
	invert := t.Direction == Inverse
	switch p.Style {
	case FFRec2020GamutCompress:
		return &Op{Name: "ff_gamut_compress", Fn: gamutCompressFn(p.Params, invert), GPUKernelKey: "ff_gamut_compress"}, nil
	case FFRec709Surround:
		gamma := 1.0
		if len(p.Params) > 0 {
			gamma = p.Params[0]
		}
		return &Op{Name: "ff_surround", Fn: surroundFn(gamma, invert), GPUKernelKey: "ff_surround"}, nil
	case FFHSVAdjust:
		return &Op{Name: "ff_hsv_adjust", Fn: hsvAdjustFn(p.Params, invert), GPUKernelKey: "ff_hsv_adjust"}, nil
	case FFXYZToLab:
		return &Op{Name: "ff_xyz_lab", Fn: xyzLabFn(invert), GPUKernelKey: "ff_xyz_lab"}, nil
	case FFXYZToXYY:
		return &Op{Name: "ff_xyz_xyy", Fn: xyzXyYFn(invert), GPUKernelKey: "ff_xyz_xyy"}, nil
	case FFXYZToUVY:
		return &Op{Name: "ff_xyz_uvy", Fn: xyzUvYFn(invert), GPUKernelKey: "ff_xyz_uvy"}, nil
	case FFXYZToLUV:
		return &Op{Name: "ff_xyz_luv", Fn: xyzLuvFn(invert), GPUKernelKey: "ff_xyz_luv"}, nil
	case FFPQEOTF:
		return &Op{Name: "ff_pq_eotf", Fn: pqFn(true, invert), GPUKernelKey: "ff_pq_eotf"}, nil
	case FFPQOETF:
		return &Op{Name: "ff_pq_oetf", Fn: pqFn(false, invert), GPUKernelKey: "ff_pq_oetf"}, nil
	default:
		return nil, notSupported("fixed function style %d", p.Style)
	}
}

// gamutCompressFn softens out-of-gamut excursions by pulling values beyond
// a threshold toward a limit, the shape of ACES' gamut compression.
func gamutCompressFn(params []float64, invert bool) OpFunc {
	threshold, limit := 0.8, 1.2
	if len(params) > 0 {
		threshold = params[0]
	}
	if len(params) > 1 {
		limit = params[1]
	}
	compress := func(x float64) float64 {
		if x <= threshold {
			return x
		}
		scale := limit - threshold
		if scale <= 0 {
			return x
		}
		t := (x - threshold) / scale
		return threshold + scale*(1-math.Exp(-t))
	}
	expand := func(y float64) float64 {
		if y <= threshold {
			return y
		}
		scale := limit - threshold
		if scale <= 0 {
			return y
		}
		t := (y - threshold) / scale
		if t >= 1 {
			t = 1 - 1e-6
		}
		return threshold + scale*(-math.Log(1-t))
	}
	return func(s *Sample) {
		for c := 0; c < 3; c++ {
			if invert {
				s[c] = float32(expand(float64(s[c])))
			} else {
				s[c] = float32(compress(float64(s[c])))
			}
		}
	}
}

func surroundFn(gamma float64, invert bool) OpFunc {
	p := gamma
	if invert && gamma != 0 {
		p = 1 / gamma
	}
	return func(s *Sample) {
		for c := 0; c < 3; c++ {
			s[c] = float32(cdlPower(math.Max(float64(s[c]), 0), p))
		}
	}
}

func rgbToHSV(r, g, b float64) (h, sv, v float64) {
	mx := math.Max(r, math.Max(g, b))
	mn := math.Min(r, math.Min(g, b))
	v = mx
	d := mx - mn
	if mx != 0 {
		sv = d / mx
	}
	if d == 0 {
		h = 0
		return
	}
	switch mx {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return
}

func hsvToRGB(h, sv, v float64) (r, g, b float64) {
	c := v * sv
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// hsvAdjustFn rotates hue and scales saturation/value; params = [hueDeg, satScale, valScale].
func hsvAdjustFn(params []float64, invert bool) OpFunc {
	hueShift, satScale, valScale := 0.0, 1.0, 1.0
	if len(params) > 0 {
		hueShift = params[0]
	}
	if len(params) > 1 {
		satScale = params[1]
	}
	if len(params) > 2 {
		valScale = params[2]
	}
	if invert {
		hueShift = -hueShift
		if satScale != 0 {
			satScale = 1 / satScale
		}
		if valScale != 0 {
			valScale = 1 / valScale
		}
	}
	return func(s *Sample) {
		h, sv, v := rgbToHSV(float64(s[0]), float64(s[1]), float64(s[2]))
		h = math.Mod(h+hueShift, 360)
		if h < 0 {
			h += 360
		}
		sv *= satScale
		v *= valScale
		r, g, b := hsvToRGB(h, sv, v)
		s[0], s[1], s[2] = float32(r), float32(g), float32(b)
	}
}

// --- XYZ <-> Lab / xyY / uvY / LUV, D65 white point ---

const (
	wpXn = 0.95047
	wpYn = 1.00000
	wpZn = 1.08883
)

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}

func labFInv(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}

func xyzLabFn(invert bool) OpFunc {
	return func(s *Sample) {
		if !invert {
			x, y, z := float64(s[0])/wpXn, float64(s[1])/wpYn, float64(s[2])/wpZn
			fx, fy, fz := labF(x), labF(y), labF(z)
			l := 116*fy - 16
			a := 500 * (fx - fy)
			bb := 200 * (fy - fz)
			s[0], s[1], s[2] = float32(l), float32(a), float32(bb)
		} else {
			l, a, bb := float64(s[0]), float64(s[1]), float64(s[2])
			fy := (l + 16) / 116
			fx := fy + a/500
			fz := fy - bb/200
			x := wpXn * labFInv(fx)
			y := wpYn * labFInv(fy)
			z := wpZn * labFInv(fz)
			s[0], s[1], s[2] = float32(x), float32(y), float32(z)
		}
	}
}

func xyzXyYFn(invert bool) OpFunc {
	return func(s *Sample) {
		if !invert {
			x, y, z := float64(s[0]), float64(s[1]), float64(s[2])
			sum := x + y + z
			if sum == 0 {
				s[0], s[1], s[2] = 0, 0, 0
				return
			}
			s[0], s[1], s[2] = float32(x/sum), float32(y/sum), float32(y)
		} else {
			cx, cy, cap := float64(s[0]), float64(s[1]), float64(s[2])
			if cy == 0 {
				s[0], s[1], s[2] = 0, 0, 0
				return
			}
			x := cx * cap / cy
			z := (1 - cx - cy) * cap / cy
			s[0], s[1], s[2] = float32(x), float32(cap), float32(z)
		}
	}
}

func xyzToUV(x, y, z float64) (u, v float64) {
	d := x + 15*y + 3*z
	if d == 0 {
		return 0, 0
	}
	return 4 * x / d, 9 * y / d
}

func xyzUvYFn(invert bool) OpFunc {
	return func(s *Sample) {
		if !invert {
			x, y, z := float64(s[0]), float64(s[1]), float64(s[2])
			u, v := xyzToUV(x, y, z)
			s[0], s[1], s[2] = float32(u), float32(v), float32(y)
		} else {
			u, v, cap := float64(s[0]), float64(s[1]), float64(s[2])
			if v == 0 {
				s[0], s[1], s[2] = 0, 0, 0
				return
			}
			x := cap * (9 * u) / (4 * v)
			z := cap * (12 - 3*u - 20*v) / (4 * v)
			s[0], s[1], s[2] = float32(x), float32(cap), float32(z)
		}
	}
}

func xyzLuvFn(invert bool) OpFunc {
	un, vn := xyzToUV(wpXn, wpYn, wpZn)
	return func(s *Sample) {
		if !invert {
			x, y, z := float64(s[0]), float64(s[1]), float64(s[2])
			u, v := xyzToUV(x, y, z)
			yr := y / wpYn
			var l float64
			if yr > (6.0/29.0)*(6.0/29.0)*(6.0/29.0) {
				l = 116*math.Cbrt(yr) - 16
			} else {
				l = (29.0 / 3.0) * (29.0 / 3.0) * (29.0 / 3.0) * yr
			}
			uu := 13 * l * (u - un)
			vv := 13 * l * (v - vn)
			s[0], s[1], s[2] = float32(l), float32(uu), float32(vv)
		} else {
			l, uu, vv := float64(s[0]), float64(s[1]), float64(s[2])
			if l == 0 {
				s[0], s[1], s[2] = 0, 0, 0
				return
			}
			u := uu/(13*l) + un
			v := vv/(13*l) + vn
			var y float64
			if l > 8 {
				y = wpYn * math.Pow((l+16)/116, 3)
			} else {
				y = wpYn * l * (3.0 / 29.0) * (3.0 / 29.0) * (3.0 / 29.0)
			}
			if v == 0 {
				s[0], s[1], s[2] = 0, float32(y), 0
				return
			}
			x := y * 9 * u / (4 * v)
			z := y * (12 - 3*u - 20*v) / (4 * v)
			s[0], s[1], s[2] = float32(x), float32(y), float32(z)
		}
	}
}

// PQ (SMPTE ST 2084) constants.
const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
)

// pqFn implements the PQ EOTF (encoded code value -> linear, scaled to
// [0,1] at 10000 nits) and OETF (the inverse), toggled by eotf; invert
// swaps the direction again.
func pqFn(eotf, invert bool) OpFunc {
	forward := eotf != invert // XOR
	decode := func(n float64) float64 {
		if n < 0 {
			n = 0
		}
		np := math.Pow(n, 1/pqM2)
		num := np - pqC1
		if num < 0 {
			num = 0
		}
		den := pqC2 - pqC3*np
		if den <= 0 {
			return 0
		}
		return math.Pow(num/den, 1/pqM1)
	}
	encode := func(l float64) float64 {
		if l < 0 {
			l = 0
		}
		lp := math.Pow(l, pqM1)
		num := pqC1 + pqC2*lp
		den := 1 + pqC3*lp
		return math.Pow(num/den, pqM2)
	}
	return func(s *Sample) {
		for c := 0; c < 3; c++ {
			if forward {
				s[c] = float32(decode(float64(s[c])))
			} else {
				s[c] = float32(encode(float64(s[c])))
			}
		}
	}
}
