package colortransform

// Rec.709 luma weights, used by CDL saturation (spec.md §4.2).
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

func cdlForwardFn(p *CDLPayload) OpFunc {
	slope, offset, power := p.Slope, p.Offset, p.Power
	sat := p.Saturation
	clamp := p.Clamp == ClampOn
	return func(s *Sample) {
		var out [3]float64
		for c := 0; c < 3; c++ {
			v := float64(s[c])*slope[c] + offset[c]
			if v < 0 {
				v = 0
			}
			out[c] = cdlPower(v, power[c])
		}
		luma := lumaR*out[0] + lumaG*out[1] + lumaB*out[2]
		for c := 0; c < 3; c++ {
			out[c] = luma + (out[c]-luma)*sat
			if clamp {
				if out[c] < 0 {
					out[c] = 0
				} else if out[c] > 1 {
					out[c] = 1
				}
			}
		}
		s[0], s[1], s[2] = float32(out[0]), float32(out[1]), float32(out[2])
	}
}

// cdlInverseFn applies the CDL's inverse: saturation undone first, then
// power/offset/slope undone in reverse order with reciprocal power and
// swapped slope/offset roles (spec.md §8 quantified test).
func cdlInverseFn(p *CDLPayload) OpFunc {
	slope, offset, power := p.Slope, p.Offset, p.Power
	sat := p.Saturation
	clamp := p.Clamp == ClampOn
	return func(s *Sample) {
		var v [3]float64
		for c := 0; c < 3; c++ {
			v[c] = float64(s[c])
		}
		luma := lumaR*v[0] + lumaG*v[1] + lumaB*v[2]
		var desat [3]float64
		for c := 0; c < 3; c++ {
			if sat != 0 {
				desat[c] = luma + (v[c]-luma)/sat
			} else {
				desat[c] = luma
			}
		}
		var out [3]float64
		for c := 0; c < 3; c++ {
			x := desat[c]
			if x < 0 {
				x = 0
			}
			invPower := 1.0
			if power[c] != 0 {
				invPower = 1.0 / power[c]
			}
			y := cdlPower(x, invPower)
			if slope[c] != 0 {
				out[c] = (y - offset[c]) / slope[c]
			} else {
				out[c] = y - offset[c]
			}
			if clamp {
				if out[c] < 0 {
					out[c] = 0
				} else if out[c] > 1 {
					out[c] = 1
				}
			}
		}
		s[0], s[1], s[2] = float32(out[0]), float32(out[1]), float32(out[2])
	}
}

func lowerCDL(t *Transform) (*Op, error) {
	p := t.CDL
	if p.Slope[0] == 0 && p.Slope[1] == 0 && p.Slope[2] == 0 {
		return nil, invalidTransform("CDL slope must be non-zero")
	}
	var fn OpFunc
	if t.Direction == Forward {
		fn = cdlForwardFn(p)
	} else {
		for _, pw := range p.Power {
			if pw == 0 {
				return nil, invalidTransform("CDL inverse requires non-zero power")
			}
		}
		fn = cdlInverseFn(p)
	}
	return &Op{Name: "cdl", Fn: fn, GPUKernelKey: "cdl", GPUParams: cdlGPUParams(p, t.Direction)}, nil
}

// cdlGPUParams flattens a CDLPayload for the gpudispatch "cdl" kernel:
// [slopeR,slopeG,slopeB, offsetR,offsetG,offsetB, powerR,powerG,powerB,
// saturation, clampOn(0/1)]. The GPU kernel only implements the forward
// equation (see compute/gpudispatch/shader.go); an inverse CDL is not yet
// representable in this flat form and is left for a future kernel key.
func cdlGPUParams(p *CDLPayload, dir Direction) []float32 {
	if dir == Inverse {
		return nil
	}
	clamp := float32(0)
	if p.Clamp == ClampOn {
		clamp = 1
	}
	return []float32{
		float32(p.Slope[0]), float32(p.Slope[1]), float32(p.Slope[2]),
		float32(p.Offset[0]), float32(p.Offset[1]), float32(p.Offset[2]),
		float32(p.Power[0]), float32(p.Power[1]), float32(p.Power[2]),
		float32(p.Saturation), clamp,
	}
}
