package colortransform

import (
	"github.com/deepteams/vfximg/imgbuf"
)

// ApplyPixel runs the compiled op chain over a single RGBA sample in
// place, honoring the Unpremultiply evaluator flag (spec.md §4.2).
func (p *Processor) ApplyPixel(s *Sample) {
	var a float32
	premult := p.Unpremultiply
	if premult {
		a = s[3]
		if a > 0 {
			s[0] /= a
			s[1] /= a
			s[2] /= a
		}
	}
	for _, op := range p.ops {
		op.Fn(s)
	}
	if premult && a > 0 {
		s[0] *= a
		s[1] *= a
		s[2] *= a
	}
}

// ApplyBatch runs the op chain over a caller-provided slice of samples,
// the entry point compute backends use to dispatch CPU/GPU execution
// (spec.md §4.3).
func (p *Processor) ApplyBatch(samples []Sample) {
	for i := range samples {
		p.ApplyPixel(&samples[i])
	}
}

// rgbaChannelIndex resolves the R/G/B/A channel indices a Buffer's Spec
// declares, defaulting missing channels to -1 (left untouched).
func rgbaChannelIndex(spec *imgbuf.Spec) (r, g, b, a int) {
	r = spec.ChannelIndex(imgbuf.RoleR)
	g = spec.ChannelIndex(imgbuf.RoleG)
	b = spec.ChannelIndex(imgbuf.RoleB)
	a = spec.ChannelIndex(imgbuf.RoleA)
	return
}

// ApplyBuffer applies the processor to every pixel of a flat image buffer
// within roi's pixel bounds, mapping the buffer's R/G/B/A channels to the
// working Sample and writing the result back (spec.md §4.2: color ops
// operate on RGBA working samples; non-color channels pass through
// untouched).
func (p *Processor) ApplyBuffer(buf *imgbuf.Buffer, roi imgbuf.ROI) error {
	if buf.Spec.Deep {
		return p.ApplyDeep(buf, roi)
	}
	r := roi.Resolve(buf)
	if r.Empty() {
		return nil
	}
	ri, gi, bi, ai := rgbaChannelIndex(&buf.Spec)
	for y := r.YBegin; y < r.YEnd; y++ {
		for x := r.XBegin; x < r.XEnd; x++ {
			v := buf.GetPixel(x, y)
			var s Sample
			if ri >= 0 {
				s[0] = v[ri]
			}
			if gi >= 0 {
				s[1] = v[gi]
			}
			if bi >= 0 {
				s[2] = v[bi]
			}
			if ai >= 0 {
				s[3] = v[ai]
			} else {
				s[3] = 1
			}
			p.ApplyPixel(&s)
			if ri >= 0 {
				v[ri] = s[0]
			}
			if gi >= 0 {
				v[gi] = s[1]
			}
			if bi >= 0 {
				v[bi] = s[2]
			}
			if ai >= 0 {
				v[ai] = s[3]
			}
			buf.SetPixel(x, y, v)
		}
	}
	return nil
}

// ApplyDeep applies the processor to every stored deep sample in roi,
// leaving the offset table (and therefore per-pixel sample counts)
// untouched (spec.md §5.3: color ops do not change deep sample counts).
func (p *Processor) ApplyDeep(buf *imgbuf.Buffer, roi imgbuf.ROI) error {
	r := roi.Resolve(buf)
	if r.Empty() {
		return nil
	}
	c := buf.Spec.NumChannels()
	if c == 0 || len(buf.Offsets) == 0 {
		return nil
	}
	total := uint32(len(buf.Data)) / uint32(c)
	ri, gi, bi, ai := rgbaChannelIndex(&buf.Spec)
	dw := buf.Spec.DataWindow
	w := dw.Width()

	for y := r.YBegin; y < r.YEnd; y++ {
		for x := r.XBegin; x < r.XEnd; x++ {
			if x < dw.XMin || x > dw.XMax || y < dw.YMin || y > dw.YMax {
				continue
			}
			pi := (y-dw.YMin)*w + (x - dw.XMin)
			start, end := buf.Offsets[pi], buf.Offsets[pi+1]
			for off := start; off < end; off++ {
				var s Sample
				if ri >= 0 {
					s[0] = buf.Data[uint32(ri)*total+off]
				}
				if gi >= 0 {
					s[1] = buf.Data[uint32(gi)*total+off]
				}
				if bi >= 0 {
					s[2] = buf.Data[uint32(bi)*total+off]
				}
				if ai >= 0 {
					s[3] = buf.Data[uint32(ai)*total+off]
				} else {
					s[3] = 1
				}
				p.ApplyPixel(&s)
				if ri >= 0 {
					buf.Data[uint32(ri)*total+off] = s[0]
				}
				if gi >= 0 {
					buf.Data[uint32(gi)*total+off] = s[1]
				}
				if bi >= 0 {
					buf.Data[uint32(bi)*total+off] = s[2]
				}
				if ai >= 0 {
					buf.Data[uint32(ai)*total+off] = s[3]
				}
			}
		}
	}
	return nil
}

// GPUProgram describes the processor as an ordered list of GPU kernel
// dispatches, the shape the compute/gpudispatch backend consumes
// (spec.md §4.3).
type GPUProgram struct {
	Kernels []GPUKernelStep
}

// GPUKernelStep is one shader dispatch with its uploaded parameter block.
type GPUKernelStep struct {
	Key    GPUKernel
	Params []float32
}

// Program builds the GPU-dispatchable description of this processor.
func (p *Processor) Program() GPUProgram {
	steps := make([]GPUKernelStep, 0, len(p.ops))
	for _, op := range p.ops {
		steps = append(steps, GPUKernelStep{Key: op.GPUKernelKey, Params: op.GPUParams})
	}
	return GPUProgram{Kernels: steps}
}
