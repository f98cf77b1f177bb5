// Package compute defines the uniform primitive surface every execution
// backend implements (spec.md §4.3): upload/download/allocate, the fixed
// set of exec_<op> dispatch points, and limits. compute/cpu and
// compute/gpudispatch each register a concrete Backend; callers never
// construct one directly.
package compute

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/deepteams/vfximg/colortransform"
	"github.com/deepteams/vfximg/lut"
)

// DeviceClass orders backends for selection (spec.md §4.3 "Backend
// selection. Ordered preference: dedicated discrete GPU > integrated GPU >
// CPU. Software rasterizers are explicitly rejected").
type DeviceClass int

const (
	ClassCPU DeviceClass = iota
	ClassIntegratedGPU
	ClassDiscreteGPU
	ClassSoftwareRasterizer
)

func (c DeviceClass) String() string {
	switch c {
	case ClassCPU:
		return "cpu"
	case ClassIntegratedGPU:
		return "integrated-gpu"
	case ClassDiscreteGPU:
		return "discrete-gpu"
	case ClassSoftwareRasterizer:
		return "software-rasterizer"
	default:
		return "unknown"
	}
}

// Dims describes a buffer's pixel geometry: W*H pixels of C interleaved
// channels, row-major (index = (y*W+x)*C+c), matching imgbuf.Buffer's flat
// layout.
type Dims struct {
	W, H, C int
}

func (d Dims) samples() int { return d.W * d.H * d.C }

// Rect is a half-open pixel rectangle [X0,X1) x [Y0,Y1), used by the tile
// planner and by ExecCropFlipRotate90.
type Rect struct {
	X0, Y0, X1, Y1 int
}

func (r Rect) Width() int  { return r.X1 - r.X0 }
func (r Rect) Height() int { return r.Y1 - r.Y0 }
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Handle references a buffer resident on a specific backend. Handles are
// not transferable: "buffers uploaded through backend A cannot be used by
// backend B" (spec.md §5).
type Handle struct {
	id    uint64
	owner Backend
}

// NewHandle is used by Backend implementations to mint a Handle tied to
// themselves; it is not meant for callers assembling Handles by hand.
func NewHandle(id uint64, owner Backend) Handle { return Handle{id: id, owner: owner} }

// ID returns the backend-local identifier a Handle wraps.
func (h Handle) ID() uint64 { return h.id }

// IssuedBy reports whether b is the backend that minted h.
func (h Handle) IssuedBy(b Backend) bool { return h.owner == b }

// Zero reports whether h is the zero Handle (never issued by a backend).
func (h Handle) Zero() bool { return h.owner == nil }

// ResizeFilter selects a resampling kernel for ExecResize.
type ResizeFilter int

const (
	FilterNearest ResizeFilter = iota
	FilterBilinear
	FilterCatmullRom
)

// BlendMode selects the per-channel blend function for ExecBlendMode.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendAdd
)

// Transform2D selects the axis-aligned geometric remap ExecCropFlipRotate90
// applies after cropping to the supplied Rect.
type Transform2D int

const (
	TransformCropOnly Transform2D = iota
	TransformFlipH
	TransformFlipV
	TransformRotate90CW
	TransformRotate90CCW
)

// Backend is the primitive surface spec.md §4.3 requires of every
// execution backend (CPU worker pool, GPU dispatcher): upload/download/
// allocate, one exec_<op> method per op family, and limits().
type Backend interface {
	Name() string
	Class() DeviceClass
	Limits() GpuLimits

	Upload(data []float32, dims Dims) (Handle, error)
	Download(h Handle) ([]float32, error)
	Allocate(dims Dims) (Handle, error)
	Release(h Handle)

	ExecMatrix(dst, src Handle, m *colortransform.MatrixPayload) error
	ExecCDL(dst, src Handle, p *colortransform.CDLPayload) error
	ExecLUT1D(dst, src Handle, l *lut.Lut1D) error
	ExecLUT3D(dst, src Handle, l *lut.Lut3D, tetrahedral bool) error
	// ExecProcessor runs a full compiled op chain in one call, the entry
	// point a processor chain's fusion strategy uses (spec.md §4.3
	// "Fusion across ops"): GPU backends convert p to a GPUProgram and
	// ping-pong device buffers between kernel dispatches; CPU backends
	// apply p.ApplyPixel per sample, row-parallel.
	ExecProcessor(dst, src Handle, p *colortransform.Processor) error

	ExecResize(dst, src Handle, filter ResizeFilter) error
	ExecGaussianBlur(dst, src Handle, radius float64) error
	ExecCompositeOver(dst, top, bottom Handle) error
	ExecBlendMode(dst, top, bottom Handle, mode BlendMode) error
	ExecCropFlipRotate90(dst, src Handle, rect Rect, op Transform2D) error
}

// ErrNoBackend is returned by Select when no backend other than a software
// rasterizer has registered.
var ErrNoBackend = errors.New("compute: no backend registered")

var (
	mu       sync.Mutex
	backends []Backend
)

// Register registers a Backend, replacing any prior registration with the
// same Name (spec.md Design Notes, generalized from gviegas-neo3
// driver.Register's "Driver implementations are expected to call Register
// exactly once, from an init function... If a driver with the same name
// has already been registered, it will be replaced").
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	for i := range backends {
		if backends[i].Name() == b.Name() {
			backends[i] = b
			return
		}
	}
	backends = append(backends, b)
}

// Backends returns every registered Backend.
func Backends() []Backend {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Backend, len(backends))
	copy(out, backends)
	return out
}

// EnvOverride names the environment variable that forces backend
// selection to a specific registered Backend.Name() (spec.md §4.3 "An
// environment override may force any backend").
const EnvOverride = "VFXIMG_COMPUTE_BACKEND"

// preferenceOrder never includes ClassSoftwareRasterizer: software
// rasterizers are explicitly rejected by spec.md §4.3, so a backend that
// reports that class is only reachable via EnvOverride, never by the
// default preference walk.
var preferenceOrder = []DeviceClass{ClassDiscreteGPU, ClassIntegratedGPU, ClassCPU}

// Select picks a Backend per spec.md §4.3's ordered preference (discrete
// GPU > integrated GPU > CPU), honoring EnvOverride first. "Selection
// failure falls back silently to the next; final fallback is always CPU":
// an override naming an unregistered backend is ignored rather than
// erroring, and Select only fails if nothing but software rasterizers (or
// nothing at all) is registered.
func Select() (Backend, error) {
	all := Backends()
	if name := os.Getenv(EnvOverride); name != "" {
		for _, b := range all {
			if b.Name() == name {
				return b, nil
			}
		}
	}
	for _, class := range preferenceOrder {
		for _, b := range all {
			if b.Class() == class {
				return b, nil
			}
		}
	}
	for _, b := range all {
		if b.Class() != ClassSoftwareRasterizer {
			return b, nil
		}
	}
	return nil, ErrNoBackend
}

// handleError formats a consistent "unknown or foreign handle" error for
// Backend implementations' lookup helpers.
func handleError(backend string, h Handle) error {
	return fmt.Errorf("%s: handle not issued by this backend (id=%d)", backend, h.id)
}
