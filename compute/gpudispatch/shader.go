package gpudispatch

import (
	"fmt"
	"math"

	"github.com/deepteams/vfximg/lut"
)

// shaderExecutor runs one dispatched kernel against resident device
// buffers. It stands in for a real compute-shader backend (Metal/Vulkan/
// D3D12 in a production dispatcher): given a shader key and its
// parameter block, it performs the same math a compiled shader module
// would. Swapping in a real shader compiler/executor later only touches
// this interface, not cmdBuffer or Backend.
type shaderExecutor interface {
	run(gpu *GPU, d kernelDispatch, src, dst *deviceBuffer) error
}

// hostShaderExecutor evaluates kernels on the host, keyed by the same
// colortransform.GPUKernel strings the CPU backend's compiled Op chain
// produces (colortransform/matrix.go, cdl.go, curve.go, compile.go).
// Only the kernel families with a fixed, data-independent shader shape
// are implemented; kernel keys whose host Fn closes over more state than
// GPUParams carries (grading curves' per-curve control points, the named
// fixed-function presets) are not yet ported to this dispatcher and
// return errUnsupportedKernel, matching how a real shader library is
// filled in incrementally rather than all at once.
type hostShaderExecutor struct{}

var errUnsupportedKernel = fmt.Errorf("gpudispatch: kernel not implemented by this dispatcher")

func (hostShaderExecutor) run(gpu *GPU, d kernelDispatch, src, dst *deviceBuffer) error {
	if src.w != dst.w || src.h != dst.h || src.c != dst.c {
		return fmt.Errorf("gpudispatch: dims mismatch src=%dx%dx%d dst=%dx%dx%d", src.w, src.h, src.c, dst.w, dst.h, dst.c)
	}
	switch d.key {
	case "identity":
		copy(dst.data, src.data)
		return nil
	case "matrix":
		if len(d.params) < 20 {
			return fmt.Errorf("gpudispatch: matrix dispatch: %w", errUnsupportedKernel)
		}
		return runKernel(src, dst, matrixSample(d.params))
	case "cdl":
		if len(d.params) < 11 {
			return fmt.Errorf("gpudispatch: cdl dispatch (likely inverse direction): %w", errUnsupportedKernel)
		}
		return runKernel(src, dst, cdlSample(d.params))
	case "exponent":
		if len(d.params) < 3 {
			return fmt.Errorf("gpudispatch: exponent dispatch: %w", errUnsupportedKernel)
		}
		return runKernel(src, dst, exponentSample(d.params))
	case "range":
		if len(d.params) < 5 {
			return fmt.Errorf("gpudispatch: range dispatch: %w", errUnsupportedKernel)
		}
		return runKernel(src, dst, rangeSample(d.params))
	case "lut1d":
		res, err := gpu.getLUT(d.lutID)
		if err != nil || res.lut1d == nil {
			return fmt.Errorf("gpudispatch: lut1d dispatch: %w", errUnsupportedKernel)
		}
		return runKernel(src, dst, lut1DSample(res.lut1d))
	case "lut3d":
		res, err := gpu.getLUT(d.lutID)
		if err != nil || res.lut3d == nil {
			return fmt.Errorf("gpudispatch: lut3d dispatch: %w", errUnsupportedKernel)
		}
		return runKernel(src, dst, lut3DSample(res.lut3d, res.tetra))
	default:
		return errUnsupportedKernel
	}
}

// sampleFn transforms one RGBA sample in place, the same per-pixel
// contract as colortransform.OpFunc.
type sampleFn func(s *[4]float32)

// runKernel applies fn to every pixel of src, writing into dst. Channels
// beyond the first min(src.c,4) pass through unchanged (non-color AOVs
// are never touched by a color kernel, matching colortransform.ApplyPixel's
// RGBA-only contract).
func runKernel(src, dst *deviceBuffer, fn sampleFn) error {
	n := src.w * src.h
	for i := 0; i < n; i++ {
		base := i * src.c
		var s [4]float32
		s[3] = 1
		for c := 0; c < src.c && c < 4; c++ {
			s[c] = src.data[base+c]
		}
		fn(&s)
		for c := 0; c < src.c && c < 4; c++ {
			dst.data[base+c] = s[c]
		}
		for c := 4; c < src.c; c++ {
			dst.data[base+c] = src.data[base+c]
		}
	}
	return nil
}

// matrixSample mirrors colortransform/matrix.go's matrixFn: params is the
// row-major 4x4 M followed by the 4-element offset, 20 floats total.
func matrixSample(params []float32) sampleFn {
	return func(s *[4]float32) {
		if len(params) < 20 {
			return
		}
		r, g, b, a := s[0], s[1], s[2], s[3]
		var out [3]float32
		for row := 0; row < 3; row++ {
			m := params[row*4 : row*4+4]
			out[row] = m[0]*r + m[1]*g + m[2]*b + m[3]*a + params[16+row]
		}
		s[0], s[1], s[2] = out[0], out[1], out[2]
	}
}

// cdlSample mirrors the ASC CDL equation: out = clamp((in*slope+offset))^power,
// then a saturation mix; params = [slopeR,slopeG,slopeB, offsetR,offsetG,
// offsetB, powerR,powerG,powerB, saturation, clampOn(0/1)].
func cdlSample(params []float32) sampleFn {
	return func(s *[4]float32) {
		if len(params) < 11 {
			return
		}
		slope, offset, power := params[0:3], params[3:6], params[6:9]
		sat, clampOn := params[9], params[10] != 0
		var rgb [3]float32
		for c := 0; c < 3; c++ {
			v := s[c]*slope[c] + offset[c]
			if v < 0 {
				v = 0
			}
			v = float32(math.Pow(float64(v), float64(power[c])))
			rgb[c] = v
		}
		luma := 0.2126*rgb[0] + 0.7152*rgb[1] + 0.0722*rgb[2]
		for c := 0; c < 3; c++ {
			v := luma + sat*(rgb[c]-luma)
			if clampOn {
				if v < 0 {
					v = 0
				}
				if v > 1 {
					v = 1
				}
			}
			s[c] = v
		}
	}
}

// exponentSample mirrors curve.go's plain power-law exponent op; params =
// [gammaR, gammaG, gammaB].
func exponentSample(params []float32) sampleFn {
	return func(s *[4]float32) {
		if len(params) < 3 {
			return
		}
		for c := 0; c < 3; c++ {
			v := s[c]
			if v < 0 {
				v = 0
			}
			s[c] = float32(math.Pow(float64(v), float64(params[c])))
		}
	}
}

// rangeSample mirrors curve.go's linear Range remap; params =
// [minIn, maxIn, minOut, maxOut, clampOn(0/1)].
func rangeSample(params []float32) sampleFn {
	return func(s *[4]float32) {
		if len(params) < 5 {
			return
		}
		minIn, maxIn, minOut, maxOut := params[0], params[1], params[2], params[3]
		clampOn := params[4] != 0
		span := maxIn - minIn
		for c := 0; c < 3; c++ {
			v := s[c]
			if span != 0 {
				v = minOut + (v-minIn)/span*(maxOut-minOut)
			}
			if clampOn {
				if v < minOut {
					v = minOut
				}
				if v > maxOut {
					v = maxOut
				}
			}
			s[c] = v
		}
	}
}

func lut1DSample(l *lut.Lut1D) sampleFn {
	return func(s *[4]float32) {
		for c := 0; c < 3 && c < l.Channels; c++ {
			s[c] = l.Eval(c, s[c])
		}
	}
}

func lut3DSample(l *lut.Lut3D, tetra bool) sampleFn {
	return func(s *[4]float32) {
		var out [3]float32
		if tetra {
			out = l.EvalTetrahedral(s[0], s[1], s[2])
		} else {
			out = l.EvalTrilinear(s[0], s[1], s[2])
		}
		s[0], s[1], s[2] = out[0], out[1], out[2]
	}
}
