package cpu

import (
	"testing"

	"github.com/deepteams/vfximg/colortransform"
	"github.com/deepteams/vfximg/compute"
)

func almostEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestExecMatrixScalesChannels(t *testing.T) {
	b := New()
	dims := compute.Dims{W: 1, H: 1, C: 4}
	src, err := b.Upload([]float32{0.2, 0.4, 0.6, 1}, dims)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	dst, err := b.Allocate(dims)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	m := &colortransform.MatrixPayload{M: [16]float64{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	}}
	if err := b.ExecMatrix(dst, src, m); err != nil {
		t.Fatalf("ExecMatrix: %v", err)
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

func TestExecProcessorAppliesFullChain(t *testing.T) {
	b := New()
	dims := compute.Dims{W: 4, H: 4, C: 4}
	data := make([]float32, dims.W*dims.H*dims.C)
	for i := range data {
		data[i] = 0.5
	}
	src, _ := b.Upload(data, dims)
	dst, _ := b.Allocate(dims)

	fwd := colortransform.Transform{Kind: colortransform.KindMatrix, Matrix: &colortransform.MatrixPayload{M: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}, Offset: [4]float64{0.1, 0.1, 0.1, 0}}}
	p, err := colortransform.Compile([]colortransform.Transform{fwd}, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := b.ExecProcessor(dst, src, p); err != nil {
		t.Fatalf("ExecProcessor: %v", err)
	}
	out, err := b.Download(dst)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	for y := 0; y < dims.H; y++ {
		for x := 0; x < dims.W; x++ {
			base := (y*dims.W + x) * dims.C
			for c := 0; c < 3; c++ {
				if !almostEqual(out[base+c], 0.6, 1e-6) {
					t.Fatalf("pixel (%d,%d) channel %d = %v, want 0.6", x, y, c, out[base+c])
				}
			}
		}
	}
}

func TestExecCropFlipRotate90FlipH(t *testing.T) {
	b := New()
	dims := compute.Dims{W: 2, H: 1, C: 1}
	src, _ := b.Upload([]float32{1, 2}, dims)
	dst, _ := b.Allocate(dims)
	if err := b.ExecCropFlipRotate90(dst, src, compute.Rect{X0: 0, Y0: 0, X1: 2, Y1: 1}, compute.TransformFlipH); err != nil {
		t.Fatalf("ExecCropFlipRotate90: %v", err)
	}
	out, _ := b.Download(dst)
	if out[0] != 2 || out[1] != 1 {
		t.Fatalf("flipped row = %v, want [2 1]", out)
	}
}

func TestExecCropFlipRotate90Rotate90CW(t *testing.T) {
	b := New()
	// 2x1 source (w=2,h=1): [1, 2]. Rotated CW becomes a 1x2 image: [1; 2]
	// reversed top-to-bottom in the conventional sense -- verify against
	// the formula directly: dst(x,y) = src(y, h-1-x), h=1, so dst(0,y) =
	// src(y, 0) for y in [0,2); the single source row has only one value
	// at each y, so dst = [src(0,0), src(1,0)] = [1, 2].
	dims := compute.Dims{W: 2, H: 1, C: 1}
	src, _ := b.Upload([]float32{1, 2}, dims)
	dst, _ := b.Allocate(compute.Dims{W: 1, H: 2, C: 1})
	if err := b.ExecCropFlipRotate90(dst, src, compute.Rect{X0: 0, Y0: 0, X1: 2, Y1: 1}, compute.TransformRotate90CW); err != nil {
		t.Fatalf("ExecCropFlipRotate90: %v", err)
	}
	out, _ := b.Download(dst)
	if out[0] != 1 || out[1] != 2 {
		t.Fatalf("rotated = %v, want [1 2]", out)
	}
}

func TestExecGaussianBlurPreservesFlatField(t *testing.T) {
	b := New()
	dims := compute.Dims{W: 8, H: 8, C: 1}
	data := make([]float32, dims.W*dims.H)
	for i := range data {
		data[i] = 0.5
	}
	src, _ := b.Upload(data, dims)
	dst, _ := b.Allocate(dims)
	if err := b.ExecGaussianBlur(dst, src, 2); err != nil {
		t.Fatalf("ExecGaussianBlur: %v", err)
	}
	out, _ := b.Download(dst)
	for i, v := range out {
		if !almostEqual(v, 0.5, 1e-4) {
			t.Fatalf("blurred flat field at %d = %v, want ~0.5", i, v)
		}
	}
}

func TestRunRowsCoversEveryRowExactlyOnce(t *testing.T) {
	const rows = 97
	counts := make([]int, rows)
	lock := make(chan struct{}, 1)
	lock <- struct{}{}
	runRows(rows, func(y int) {
		<-lock
		counts[y]++
		lock <- struct{}{}
	})
	for y, c := range counts {
		if c != 1 {
			t.Fatalf("row %d visited %d times, want 1", y, c)
		}
	}
}
