package gpudispatch

import (
	"testing"

	"github.com/deepteams/vfximg/colortransform"
	"github.com/deepteams/vfximg/compute"
	"github.com/deepteams/vfximg/lut"
)

// identityScaleLUT builds a 3-channel Lut1D over [0,1] that scales its
// input by factor, used to exercise ExecLUT1D's texture-upload path with
// a checkable result.
func identityScaleLUT(t *testing.T, factor float32) *lut.Lut1D {
	t.Helper()
	const n = 17
	l := &lut.Lut1D{Channels: 3, Min: 0, Max: 1, Entries: make([][]float32, n)}
	for i := range l.Entries {
		x := float32(i) / float32(n-1)
		l.Entries[i] = []float32{x * factor, x * factor, x * factor}
	}
	return l
}

func almostEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestExecProcessorConsumesProgram(t *testing.T) {
	b := New("test-gpu", compute.ClassDiscreteGPU, compute.DefaultCPULimits)
	dims := compute.Dims{W: 1, H: 1, C: 4}
	src, err := b.Upload([]float32{0.2, 0.4, 0.6, 1}, dims)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	dst, err := b.Allocate(dims)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	fwd := colortransform.Transform{Kind: colortransform.KindMatrix, Matrix: &colortransform.MatrixPayload{M: [16]float64{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	}}}
	p, err := colortransform.Compile([]colortransform.Transform{fwd}, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(p.Program().Kernels) == 0 {
		t.Fatal("expected a non-empty GPUProgram for a single matrix op")
	}
	if err := b.ExecProcessor(dst, src, p); err != nil {
		t.Fatalf("ExecProcessor: %v", err)
	}
	out, err := b.Download(dst)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	want := []float32{0.4, 0.8, 1.2, 1}
	for i := range want {
		if !almostEqual(out[i], want[i], 1e-6) {
			t.Errorf("channel %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestExecMatrixDelegatesThroughProgram(t *testing.T) {
	b := New("test-gpu", compute.ClassIntegratedGPU, compute.DefaultCPULimits)
	dims := compute.Dims{W: 1, H: 1, C: 4}
	src, _ := b.Upload([]float32{1, 1, 1, 1}, dims)
	dst, _ := b.Allocate(dims)
	okMatrix := &colortransform.MatrixPayload{M: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}, Offset: [4]float64{0.25, 0, 0, 0}}
	if err := b.ExecMatrix(dst, src, okMatrix); err != nil {
		t.Fatalf("ExecMatrix: %v", err)
	}
	out, _ := b.Download(dst)
	if !almostEqual(out[0], 1.25, 1e-6) {
		t.Fatalf("channel 0 = %v, want 1.25", out[0])
	}
}

func TestExecLUT1DUploadsAndSamples(t *testing.T) {
	b := New("test-gpu", compute.ClassDiscreteGPU, compute.DefaultCPULimits)
	dims := compute.Dims{W: 1, H: 1, C: 4}
	src, _ := b.Upload([]float32{0.5, 0.5, 0.5, 1}, dims)
	dst, _ := b.Allocate(dims)

	l := identityScaleLUT(t, 2)
	if err := b.ExecLUT1D(dst, src, l); err != nil {
		t.Fatalf("ExecLUT1D: %v", err)
	}
	out, _ := b.Download(dst)
	for c := 0; c < 3; c++ {
		if !almostEqual(out[c], 1.0, 1e-3) {
			t.Errorf("channel %d = %v, want ~1.0 (2x scale of 0.5)", c, out[c])
		}
	}
}

func TestHandleRejectsForeignBackend(t *testing.T) {
	a := New("a", compute.ClassCPU, compute.DefaultCPULimits)
	other := New("b", compute.ClassCPU, compute.DefaultCPULimits)
	h, _ := a.Upload([]float32{1, 1, 1, 1}, compute.Dims{W: 1, H: 1, C: 4})
	if _, err := other.Download(h); err == nil {
		t.Fatal("expected error downloading a handle issued by a different backend")
	}
}
