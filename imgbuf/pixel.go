package imgbuf

import "math"

// WrapMode controls how out-of-bounds coordinates are resolved by
// InterpPixel.
type WrapMode int

const (
	WrapBlack WrapMode = iota
	WrapClamp
	WrapPeriodic
	WrapMirror
)

func wrapCoord(v, lo, hi int, mode WrapMode) (int, bool) {
	n := hi - lo + 1
	if n <= 0 {
		return 0, false
	}
	if v >= lo && v <= hi {
		return v, true
	}
	switch mode {
	case WrapBlack:
		return 0, false
	case WrapClamp:
		if v < lo {
			return lo, true
		}
		return hi, true
	case WrapPeriodic:
		r := (v - lo) % n
		if r < 0 {
			r += n
		}
		return lo + r, true
	case WrapMirror:
		period := 2 * n
		r := (v - lo) % period
		if r < 0 {
			r += period
		}
		if r >= n {
			r = period - 1 - r
		}
		return lo + r, true
	default:
		return 0, false
	}
}

// GetPixel reads pixel (x, y) and returns one normalized float per
// channel. Integer sample types are normalized to [0, 1]; float types
// (f16, f32) are passed through unchanged. Out-of-bounds or deep buffers
// return a zero vector.
func (b *Buffer) GetPixel(x, y int) []float32 {
	c := b.Spec.NumChannels()
	out := make([]float32, c)
	if b.Spec.Deep {
		return out
	}
	idx := b.FlatIndex(x, y)
	if idx < 0 {
		return out
	}
	copy(out, b.Data[idx:idx+c])
	return out
}

// SetPixel writes a normalized-float pixel to (x, y), the inverse of
// GetPixel. Values are not range-checked; callers targeting integer
// sample types are responsible for pre-clamping to [0, 1] if desired.
func (b *Buffer) SetPixel(x, y int, v []float32) {
	if b.Spec.Deep {
		return
	}
	idx := b.FlatIndex(x, y)
	if idx < 0 {
		return
	}
	c := b.Spec.NumChannels()
	n := c
	if len(v) < n {
		n = len(v)
	}
	copy(b.Data[idx:idx+n], v[:n])
}

// InterpPixel performs bilinear sampling at continuous image coordinates
// (u, v), resolving samples outside the data window per mode.
func (b *Buffer) InterpPixel(u, v float64, mode WrapMode) []float32 {
	c := b.Spec.NumChannels()
	out := make([]float32, c)

	x0 := int(math.Floor(u))
	y0 := int(math.Floor(v))
	fx := float32(u - float64(x0))
	fy := float32(v - float64(y0))

	dw := b.Spec.DataWindow
	type corner struct {
		px, py int
		ok     bool
	}
	corners := [4]corner{}
	coords := [4][2]int{{x0, y0}, {x0 + 1, y0}, {x0, y0 + 1}, {x0 + 1, y0 + 1}}
	for i, xy := range coords {
		cx, okx := wrapCoord(xy[0], dw.XMin, dw.XMax, mode)
		cy, oky := wrapCoord(xy[1], dw.YMin, dw.YMax, mode)
		corners[i] = corner{cx, cy, okx && oky}
	}

	sample := func(cn corner) []float32 {
		if !cn.ok {
			return make([]float32, c)
		}
		return b.GetPixel(cn.px, cn.py)
	}

	p00 := sample(corners[0])
	p10 := sample(corners[1])
	p01 := sample(corners[2])
	p11 := sample(corners[3])

	for ch := 0; ch < c; ch++ {
		top := p00[ch]*(1-fx) + p10[ch]*fx
		bot := p01[ch]*(1-fx) + p11[ch]*fx
		out[ch] = top*(1-fy) + bot*fy
	}
	return out
}
