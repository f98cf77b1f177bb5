package gpudispatch

import (
	"fmt"

	"github.com/deepteams/vfximg/colortransform"
	"github.com/deepteams/vfximg/compute"
	"github.com/deepteams/vfximg/lut"
)

// Backend is the GPU compute.Backend. Unlike compute/cpu, it does not
// self-register in an init function: a real GPU's presence and class
// (discrete vs integrated) can only be known by probing actual hardware,
// which this package does not do, so whatever links gpudispatch in is
// responsible for calling compute.Register(gpudispatch.New(...)) once it
// has identified what class of device it is standing in for.
type Backend struct {
	name  string
	class compute.DeviceClass
	lim   compute.GpuLimits
	gpu   *GPU
}

// New constructs a GPU Backend reporting class and lim, backed by a host
// shaderExecutor (see shader.go).
func New(name string, class compute.DeviceClass, lim compute.GpuLimits) *Backend {
	return &Backend{name: name, class: class, lim: lim, gpu: newGPU(hostShaderExecutor{})}
}

func (b *Backend) Name() string               { return b.name }
func (b *Backend) Class() compute.DeviceClass { return b.class }
func (b *Backend) Limits() compute.GpuLimits  { return b.lim }

func (b *Backend) lookup(h compute.Handle) (*deviceBuffer, error) {
	if !h.IssuedBy(b) {
		return nil, fmt.Errorf("gpudispatch backend %s: handle not issued by this backend", b.name)
	}
	return b.gpu.get(h.ID())
}

func (b *Backend) Upload(data []float32, dims compute.Dims) (compute.Handle, error) {
	if len(data) != dims.W*dims.H*dims.C {
		return compute.Handle{}, fmt.Errorf("gpudispatch backend %s: upload data length %d does not match dims %+v", b.name, len(data), dims)
	}
	own := make([]float32, len(data))
	copy(own, data)
	id := b.gpu.allocID()
	b.gpu.put(id, &deviceBuffer{w: dims.W, h: dims.H, c: dims.C, data: own})
	return compute.NewHandle(id, b), nil
}

func (b *Backend) Download(h compute.Handle) ([]float32, error) {
	buf, err := b.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(buf.data))
	copy(out, buf.data)
	return out, nil
}

func (b *Backend) Allocate(dims compute.Dims) (compute.Handle, error) {
	id := b.gpu.allocID()
	b.gpu.put(id, &deviceBuffer{w: dims.W, h: dims.H, c: dims.C, data: make([]float32, dims.W*dims.H*dims.C)})
	return compute.NewHandle(id, b), nil
}

func (b *Backend) Release(h compute.Handle) {
	if !h.IssuedBy(b) {
		return
	}
	b.gpu.free(h.ID())
}

// runSteps records one cmdBuffer covering every kernel step in order and
// commits it, ping-ponging between src's handle and a scratch buffer so a
// multi-op chain uploads once and downloads once (spec.md §4.3 "A
// processor chain executing on GPU uploads once, then dispatches each
// op's shader in sequence writing into a ping-pong pair of device
// buffers, downloading only the final result").
func (b *Backend) runSteps(dstID, srcID uint64, dims compute.Dims, steps []colortransform.GPUKernelStep) error {
	if len(steps) == 0 {
		dst, err := b.gpu.get(dstID)
		if err != nil {
			return err
		}
		src, err := b.gpu.get(srcID)
		if err != nil {
			return err
		}
		copy(dst.data, src.data)
		return nil
	}

	cb := b.gpu.NewCmdBuffer()
	if err := cb.Begin(); err != nil {
		return err
	}
	cb.BeginWork(true)

	cur := srcID
	// scratch holds every intermediate ping-pong buffer this chain
	// allocates, freed once the chain has committed.
	var scratch []uint64
	for i, step := range steps {
		var next uint64
		if i == len(steps)-1 {
			next = dstID
		} else {
			scratchID := b.gpu.allocID()
			b.gpu.put(scratchID, &deviceBuffer{w: dims.W, h: dims.H, c: dims.C, data: make([]float32, dims.W*dims.H*dims.C)})
			scratch = append(scratch, scratchID)
			next = scratchID
		}
		cb.Dispatch(string(step.Key), step.Params, cur, next)
		cur = next
	}

	cb.EndWork()
	if err := cb.End(); err != nil {
		return err
	}

	ch := make(chan error, 1)
	b.gpu.Commit(cb, ch)
	err := <-ch
	for _, id := range scratch {
		b.gpu.free(id)
	}
	return err
}

func (b *Backend) ExecProcessor(dst, src compute.Handle, p *colortransform.Processor) error {
	sbuf, err := b.lookup(src)
	if err != nil {
		return err
	}
	dbuf, err := b.lookup(dst)
	if err != nil {
		return err
	}
	if sbuf.w != dbuf.w || sbuf.h != dbuf.h || sbuf.c != dbuf.c {
		return fmt.Errorf("gpudispatch backend %s: ExecProcessor dims mismatch", b.name)
	}
	program := p.Program()
	dims := compute.Dims{W: sbuf.w, H: sbuf.h, C: sbuf.c}
	return b.runSteps(dst.ID(), src.ID(), dims, program.Kernels)
}

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

// ExecLUT1D uploads l as a sampled table and dispatches the "lut1d"
// kernel directly, bypassing ExecProcessor/Program(): a LUT is too large
// to flatten into a GPUKernelStep's uniform Params block the way a
// matrix or CDL's coefficients are (see colortransform/compile.go's
// lowerLut1D, whose Op carries no GPUParams), so real hardware binds it
// as a texture instead, which is what gpu.uploadLUT1D models.
func (b *Backend) ExecLUT1D(dst, src compute.Handle, l *lut.Lut1D) error {
	sbuf, err := b.lookup(src)
	if err != nil {
		return err
	}
	dbuf, err := b.lookup(dst)
	if err != nil {
		return err
	}
	if sbuf.w != dbuf.w || sbuf.h != dbuf.h || sbuf.c != dbuf.c {
		return fmt.Errorf("gpudispatch backend %s: ExecLUT1D dims mismatch", b.name)
	}
	lutID := b.gpu.uploadLUT1D(l)
	defer b.gpu.freeLUT(lutID)

	cb := b.gpu.NewCmdBuffer()
	if err := cb.Begin(); err != nil {
		return err
	}
	cb.BeginWork(true)
	cb.dispatchLUT("lut1d", nil, src.ID(), dst.ID(), lutID)
	cb.EndWork()
	if err := cb.End(); err != nil {
		return err
	}
	ch := make(chan error, 1)
	b.gpu.Commit(cb, ch)
	return <-ch
}

// ExecLUT3D is ExecLUT1D's 3D counterpart.
func (b *Backend) ExecLUT3D(dst, src compute.Handle, l *lut.Lut3D, tetrahedral bool) error {
	sbuf, err := b.lookup(src)
	if err != nil {
		return err
	}
	dbuf, err := b.lookup(dst)
	if err != nil {
		return err
	}
	if sbuf.w != dbuf.w || sbuf.h != dbuf.h || sbuf.c != dbuf.c {
		return fmt.Errorf("gpudispatch backend %s: ExecLUT3D dims mismatch", b.name)
	}
	lutID := b.gpu.uploadLUT3D(l, tetrahedral)
	defer b.gpu.freeLUT(lutID)

	cb := b.gpu.NewCmdBuffer()
	if err := cb.Begin(); err != nil {
		return err
	}
	cb.BeginWork(true)
	cb.dispatchLUT("lut3d", nil, src.ID(), dst.ID(), lutID)
	cb.EndWork()
	if err := cb.End(); err != nil {
		return err
	}
	ch := make(chan error, 1)
	b.gpu.Commit(cb, ch)
	return <-ch
}
