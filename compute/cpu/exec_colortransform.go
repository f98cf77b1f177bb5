package cpu

import (
	"fmt"

	"github.com/deepteams/vfximg/colortransform"
	"github.com/deepteams/vfximg/compute"
	"github.com/deepteams/vfximg/lut"
)

// sampleAt reads pixel (x,y) out of a C-channel interleaved row-major
// buffer into a colortransform.Sample, defaulting missing G/B/A channels
// the same way colortransform.ApplyBuffer does for buffers narrower than
// RGBA (a single-channel mask buffer gets alpha=1, zero G/B).
func sampleAt(data []float32, dims compute.Dims, x, y int) colortransform.Sample {
	var s colortransform.Sample
	s[3] = 1
	base := (y*dims.W + x) * dims.C
	for c := 0; c < dims.C && c < 4; c++ {
		s[c] = data[base+c]
	}
	return s
}

func setSampleAt(data []float32, dims compute.Dims, x, y int, s colortransform.Sample) {
	base := (y*dims.W + x) * dims.C
	for c := 0; c < dims.C && c < 4; c++ {
		data[base+c] = s[c]
	}
}

// execProcessorRows is the shared row-parallel core: every pixel in dst
// is overwritten by running p.ApplyPixel on the corresponding src sample.
// dst and src may be the same buffer (in place).
func execProcessorRows(dstData, srcData []float32, dims compute.Dims, p *colortransform.Processor) {
	runRows(dims.H, func(y int) {
		for x := 0; x < dims.W; x++ {
			s := sampleAt(srcData, dims, x, y)
			p.ApplyPixel(&s)
			setSampleAt(dstData, dims, x, y, s)
		}
	})
}

// ExecProcessor runs a full compiled op chain row-parallel over src,
// writing into dst (spec.md §4.3 "Fusion across ops": one pass over the
// data regardless of how many ops the Processor chains, since ApplyPixel
// already fuses the whole op list per sample).
func (b *Backend) ExecProcessor(dst, src compute.Handle, p *colortransform.Processor) error {
	return b.withAdmission(func() error {
		sbuf, err := b.lookup(src)
		if err != nil {
			return err
		}
		dbuf, err := b.lookup(dst)
		if err != nil {
			return err
		}
		if sbuf.dims != dbuf.dims {
			return fmt.Errorf("cpu backend: ExecProcessor dims mismatch src=%+v dst=%+v", sbuf.dims, dbuf.dims)
		}
		execProcessorRows(dbuf.data, sbuf.data, sbuf.dims, p)
		return nil
	})
}

// singleOpProcessor compiles a one-element Transform list into a
// Processor; Matrix/CDL/Lut1D/Lut3D transforms need no symbolic
// resolution, so a nil CompileContext is always valid here.
func singleOpProcessor(t colortransform.Transform) (*colortransform.Processor, error) {
	return colortransform.Compile([]colortransform.Transform{t}, nil)
}

func (b *Backend) ExecMatrix(dst, src compute.Handle, m *colortransform.MatrixPayload) error {
	p, err := singleOpProcessor(colortransform.Transform{Kind: colortransform.KindMatrix, Matrix: m})
	if err != nil {
		return err
	}
	return b.ExecProcessor(dst, src, p)
}

func (b *Backend) ExecCDL(dst, src compute.Handle, cdl *colortransform.CDLPayload) error {
	p, err := singleOpProcessor(colortransform.Transform{Kind: colortransform.KindCDL, CDL: cdl})
	if err != nil {
		return err
	}
	return b.ExecProcessor(dst, src, p)
}

func (b *Backend) ExecLUT1D(dst, src compute.Handle, l *lut.Lut1D) error {
	p, err := singleOpProcessor(colortransform.Transform{Kind: colortransform.KindLut1D, Lut1D: &colortransform.Lut1DPayload{Lut: l}})
	if err != nil {
		return err
	}
	return b.ExecProcessor(dst, src, p)
}

func (b *Backend) ExecLUT3D(dst, src compute.Handle, l *lut.Lut3D, tetrahedral bool) error {
	p, err := singleOpProcessor(colortransform.Transform{Kind: colortransform.KindLut3D, Lut3D: &colortransform.Lut3DPayload{Lut: l, Tetrahedral: tetrahedral}})
	if err != nil {
		return err
	}
	return b.ExecProcessor(dst, src, p)
}
