// Package cpu implements the compute.Backend primitive surface as a
// worker pool over plain Go slices, grounded on the teacher's row-
// pipelined parallel VP8 encoder (internal/lossy/encode_parallel.go):
// goroutines claim rows from a shared atomic counter rather than being
// handed a fixed static split, so a row that decodes or applies slower
// than its neighbors never stalls the whole batch.
package cpu

import (
	"fmt"
	"sync"

	"github.com/deepteams/vfximg/colortransform"
	"github.com/deepteams/vfximg/compute"
	"github.com/deepteams/vfximg/lut"
	"golang.org/x/sync/semaphore"
)

func init() {
	compute.Register(New())
}

// Backend is the CPU compute.Backend. It holds every allocated buffer in
// a map keyed by a locally-minted id; Handles it issues are rejected by
// every other Backend (compute.Handle.IssuedBy).
type Backend struct {
	mu      sync.Mutex
	buffers map[uint64]*buffer
	nextID  uint64

	// admit bounds how many Exec* calls run at once (Upload, Download,
	// Allocate and Release do not take it), independent of the per-call row-parallelism runRows uses internally;
	// without it, N concurrent ExecProcessor calls would each spin up
	// GOMAXPROCS workers and oversubscribe the machine.
	admit *semaphore.Weighted
}

type buffer struct {
	dims compute.Dims
	data []float32
}

// New constructs a CPU Backend. Most callers use compute.Select, which
// finds the instance init registers; New is exported for tests and for
// callers that want a CPU backend even when a GPU backend is registered
// too.
func New() *Backend {
	return &Backend{
		buffers: make(map[uint64]*buffer),
		admit:   semaphore.NewWeighted(int64(maxConcurrentOps())),
	}
}

func (b *Backend) Name() string            { return "cpu" }
func (b *Backend) Class() compute.DeviceClass { return compute.ClassCPU }
func (b *Backend) Limits() compute.GpuLimits  { return compute.DefaultCPULimits }

func (b *Backend) lookup(h compute.Handle) (*buffer, error) {
	if !h.IssuedBy(b) {
		return nil, fmt.Errorf("cpu backend: handle not issued by this backend")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[h.ID()]
	if !ok {
		return nil, fmt.Errorf("cpu backend: handle %d released or unknown", h.ID())
	}
	return buf, nil
}

func (b *Backend) store(buf *buffer) compute.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.buffers[id] = buf
	return compute.NewHandle(id, b)
}

// Upload copies data (owned by the caller) into a new backend-resident
// buffer.
func (b *Backend) Upload(data []float32, dims compute.Dims) (compute.Handle, error) {
	if len(data) != dims.W*dims.H*dims.C {
		return compute.Handle{}, fmt.Errorf("cpu backend: upload data length %d does not match dims %+v", len(data), dims)
	}
	own := make([]float32, len(data))
	copy(own, data)
	return b.store(&buffer{dims: dims, data: own}), nil
}

// Download returns a copy of h's buffer contents.
func (b *Backend) Download(h compute.Handle) ([]float32, error) {
	buf, err := b.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(buf.data))
	copy(out, buf.data)
	return out, nil
}

// Allocate reserves a zeroed buffer of dims without uploading data.
func (b *Backend) Allocate(dims compute.Dims) (compute.Handle, error) {
	return b.store(&buffer{dims: dims, data: make([]float32, dims.W*dims.H*dims.C)}), nil
}

// Release frees h's buffer. Releasing an unknown or foreign handle is a
// no-op, matching sync.Pool's put-what-you-get discipline elsewhere in
// this module (internal/pool).
func (b *Backend) Release(h compute.Handle) {
	if !h.IssuedBy(b) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.buffers, h.ID())
}

// withAdmission bounds concurrent entry into the heavier Exec calls via a
// weighted semaphore, the same primitive used for call-admission
// elsewhere in this codebase's async paths.
func (b *Backend) withAdmission(fn func() error) error {
	ctx := backgroundCtx
	if err := b.admit.Acquire(ctx, 1); err != nil {
		return err
	}
	defer b.admit.Release(1)
	return fn()
}
