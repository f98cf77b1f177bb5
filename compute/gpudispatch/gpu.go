// Package gpudispatch implements compute.Backend as a shader-key
// dispatcher: colortransform.Processor.Program() lowers a compiled op
// chain to a GPUProgram (an ordered list of kernel keys and parameter
// blocks), and this package's cmdBuffer/GPU types record and "commit"
// those dispatches the way gviegas-neo3's driver.GPU/driver.CmdBuffer
// record and commit render/compute/blit work: Begin -> BeginWork ->
// Dispatch* -> EndWork -> End -> GPU.Commit(cb, ch), with completion
// signaled asynchronously on a channel.
//
// There is no real GPU driver dependency in this pack (gviegas-neo3 is
// reference material, not an importable module), so GPU here executes
// each dispatched kernel through a software shaderExecutor that performs
// the same math a real compute shader would, keyed by the same
// colortransform.GPUKernel strings the CPU backend's op chain produces.
// That keeps Processor.Program() a real, exercised artifact instead of a
// shape nothing consumes.
package gpudispatch

import (
	"fmt"
	"sync"

	"github.com/deepteams/vfximg/lut"
)

// deviceBuffer is one uploaded/allocated device-resident buffer.
type deviceBuffer struct {
	w, h, c int
	data    []float32
}

// lutResource is an uploaded LUT bound as a sampled table, distinct from
// deviceBuffer: real hardware samples a LUT through a texture unit, not a
// uniform parameter block, which is why GPUKernelStep.Params is empty for
// the lut1d/lut3d kernels (see colortransform/compile.go's lowerLut1D/
// lowerLut3D) and why dispatching them needs this separate resource map.
type lutResource struct {
	lut1d *lut.Lut1D
	lut3d *lut.Lut3D
	tetra bool
}

// GPU owns device buffers and executes committed command buffers,
// mirroring gviegas-neo3 driver.GPU's role as "the main interface to an
// underlying driver implementation... used to create other types and to
// execute commands."
type GPU struct {
	mu      sync.Mutex
	buffers map[uint64]*deviceBuffer
	luts    map[uint64]*lutResource
	nextID  uint64
	exec    shaderExecutor
}

func newGPU(exec shaderExecutor) *GPU {
	return &GPU{
		buffers: make(map[uint64]*deviceBuffer),
		luts:    make(map[uint64]*lutResource),
		exec:    exec,
	}
}

func (g *GPU) allocID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return g.nextID
}

func (g *GPU) put(id uint64, buf *deviceBuffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buffers[id] = buf
}

func (g *GPU) get(id uint64) (*deviceBuffer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	buf, ok := g.buffers[id]
	if !ok {
		return nil, fmt.Errorf("gpudispatch: device buffer %d not resident", id)
	}
	return buf, nil
}

func (g *GPU) free(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.buffers, id)
}

// uploadLUT1D binds a Lut1D as a sampled table, returning the resource id
// a cmdBuffer.dispatchLUT call for the "lut1d" kernel references.
func (g *GPU) uploadLUT1D(l *lut.Lut1D) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := g.nextID
	g.luts[id] = &lutResource{lut1d: l}
	return id
}

// uploadLUT3D binds a Lut3D as a sampled table for the "lut3d" kernel.
func (g *GPU) uploadLUT3D(l *lut.Lut3D, tetrahedral bool) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := g.nextID
	g.luts[id] = &lutResource{lut3d: l, tetra: tetrahedral}
	return id
}

func (g *GPU) getLUT(id uint64) (*lutResource, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.luts[id]
	if !ok {
		return nil, fmt.Errorf("gpudispatch: LUT resource %d not resident", id)
	}
	return r, nil
}

func (g *GPU) freeLUT(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.luts, id)
}

// NewCmdBuffer creates a new command buffer ready for Begin, mirroring
// driver.GPU.NewCmdBuffer.
func (g *GPU) NewCmdBuffer() *cmdBuffer {
	return &cmdBuffer{gpu: g}
}

// Commit executes every recorded command in cb in order and sends the
// first error encountered (or nil) to ch, mirroring driver.GPU.Commit's
// "sends the result to ch when all commands complete execution." Unlike
// a real GPU, execution here is synchronous on a goroutine Commit spawns;
// callers still only learn of completion through ch, so the async
// contract callers rely on holds regardless.
func (g *GPU) Commit(cb *cmdBuffer, ch chan<- error) {
	go func() {
		ch <- cb.run()
	}()
}
