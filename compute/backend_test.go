package compute

import (
	"testing"

	"github.com/deepteams/vfximg/colortransform"
	"github.com/deepteams/vfximg/lut"
)

type fakeBackend struct {
	name  string
	class DeviceClass
}

func (f *fakeBackend) Name() string      { return f.name }
func (f *fakeBackend) Class() DeviceClass { return f.class }
func (f *fakeBackend) Limits() GpuLimits  { return DefaultCPULimits }

func (f *fakeBackend) Upload(data []float32, dims Dims) (Handle, error) { return Handle{}, nil }
func (f *fakeBackend) Download(h Handle) ([]float32, error)             { return nil, nil }
func (f *fakeBackend) Allocate(dims Dims) (Handle, error)               { return Handle{}, nil }
func (f *fakeBackend) Release(h Handle)                                 {}

func (f *fakeBackend) ExecMatrix(dst, src Handle, m *colortransform.MatrixPayload) error { return nil }
func (f *fakeBackend) ExecCDL(dst, src Handle, p *colortransform.CDLPayload) error       { return nil }
func (f *fakeBackend) ExecLUT1D(dst, src Handle, l *lut.Lut1D) error                     { return nil }
func (f *fakeBackend) ExecLUT3D(dst, src Handle, l *lut.Lut3D, tetrahedral bool) error   { return nil }
func (f *fakeBackend) ExecProcessor(dst, src Handle, p *colortransform.Processor) error  { return nil }
func (f *fakeBackend) ExecResize(dst, src Handle, filter ResizeFilter) error             { return nil }
func (f *fakeBackend) ExecGaussianBlur(dst, src Handle, radius float64) error            { return nil }
func (f *fakeBackend) ExecCompositeOver(dst, top, bottom Handle) error                   { return nil }
func (f *fakeBackend) ExecBlendMode(dst, top, bottom Handle, mode BlendMode) error        { return nil }
func (f *fakeBackend) ExecCropFlipRotate90(dst, src Handle, rect Rect, op Transform2D) error {
	return nil
}

func resetRegistry(t *testing.T) {
	t.Helper()
	mu.Lock()
	saved := backends
	backends = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		backends = saved
		mu.Unlock()
	})
}

func TestSelectPrefersDiscreteOverIntegratedOverCPU(t *testing.T) {
	resetRegistry(t)
	Register(&fakeBackend{name: "cpu", class: ClassCPU})
	Register(&fakeBackend{name: "igpu", class: ClassIntegratedGPU})
	Register(&fakeBackend{name: "dgpu", class: ClassDiscreteGPU})

	b, err := Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if b.Name() != "dgpu" {
		t.Fatalf("Select() = %q, want dgpu", b.Name())
	}
}

func TestSelectNeverPicksSoftwareRasterizerByDefault(t *testing.T) {
	resetRegistry(t)
	Register(&fakeBackend{name: "swr", class: ClassSoftwareRasterizer})
	Register(&fakeBackend{name: "cpu", class: ClassCPU})

	b, err := Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if b.Name() != "cpu" {
		t.Fatalf("Select() = %q, want cpu (software rasterizer must never win by default)", b.Name())
	}
}

func TestSelectEnvOverride(t *testing.T) {
	resetRegistry(t)
	Register(&fakeBackend{name: "cpu", class: ClassCPU})
	Register(&fakeBackend{name: "dgpu", class: ClassDiscreteGPU})

	t.Setenv(EnvOverride, "cpu")
	b, err := Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if b.Name() != "cpu" {
		t.Fatalf("Select() with override = %q, want cpu", b.Name())
	}
}

func TestSelectNoBackend(t *testing.T) {
	resetRegistry(t)
	if _, err := Select(); err != ErrNoBackend {
		t.Fatalf("Select() with no backends = %v, want ErrNoBackend", err)
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	resetRegistry(t)
	Register(&fakeBackend{name: "dup", class: ClassCPU})
	Register(&fakeBackend{name: "dup", class: ClassDiscreteGPU})
	all := Backends()
	if len(all) != 1 {
		t.Fatalf("len(Backends()) = %d, want 1 (re-registration should replace)", len(all))
	}
	if all[0].Class() != ClassDiscreteGPU {
		t.Fatalf("replaced backend class = %v, want ClassDiscreteGPU", all[0].Class())
	}
}

func TestHandleIssuedBy(t *testing.T) {
	a := &fakeBackend{name: "a"}
	b := &fakeBackend{name: "b"}
	h := NewHandle(1, a)
	if !h.IssuedBy(a) {
		t.Fatal("handle should be issued by a")
	}
	if h.IssuedBy(b) {
		t.Fatal("handle should not be issued by b")
	}
}
