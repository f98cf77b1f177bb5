package imgbuf

import "testing"

func deepSpec(w, h int) Spec {
	return Spec{
		DisplayWindow: Window{0, 0, w - 1, h - 1},
		DataWindow:    Window{0, 0, w - 1, h - 1},
		Deep:          true,
		Channels: []Channel{
			{Name: "R", Type: SampleF32},
			{Name: "G", Type: SampleF32},
			{Name: "B", Type: SampleF32},
			{Name: "A", Type: SampleF32},
			{Name: "Z", Type: SampleF32},
		},
	}
}

// TestDeepScanlineScenario mirrors spec.md §8 scenario 2: 64x64 with
// samples(x,y) = (x+y) mod 5, verifying the offset-table invariant and
// total sample count.
func TestDeepScanlineScenario(t *testing.T) {
	const w, h = 64, 64
	bld := NewDeepBatchBuilder(deepSpec(w, h))
	var wantTotal int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := (x + y) % 5
			wantTotal += n
			for s := 0; s < n; s++ {
				z := 0.1*float32(s) + 0.01*float32(x)
				bld.Add(x, y, []float32{0.1, 0.2, 0.3, 0.5, z})
			}
		}
	}
	buf := bld.Build()
	if err := buf.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
	if int(buf.Offsets[w*h]) != wantTotal {
		t.Fatalf("total samples = %d, want %d", buf.Offsets[w*h], wantTotal)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := uint32((x + y) % 5)
			if got := buf.Samples(x, y); got != want {
				t.Fatalf("Samples(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestSetSamplesShiftsSubsequentPixels(t *testing.T) {
	bld := NewDeepBatchBuilder(deepSpec(2, 1))
	bld.Add(0, 0, []float32{1, 0, 0, 1, 0.1})
	bld.Add(1, 0, []float32{0, 1, 0, 1, 0.2})
	bld.Add(1, 0, []float32{0, 0, 1, 1, 0.3})
	buf := bld.Build()

	buf.SetSamples(0, 0, 3)
	if err := buf.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
	if got := buf.Samples(0, 0); got != 3 {
		t.Fatalf("Samples(0,0) = %d, want 3", got)
	}
	if got := buf.Samples(1, 0); got != 2 {
		t.Fatalf("Samples(1,0) = %d, want 2 (unaffected by pixel 0's growth)", got)
	}
	// Original samples of pixel (1,0) must have shifted, not been lost.
	samples := buf.deepPixelSamples(1, 0)
	if samples[0][1] != 1 || samples[1][2] != 1 {
		t.Fatalf("pixel (1,0) samples corrupted after shift: %+v", samples)
	}
}

func TestSortOrdersByZ(t *testing.T) {
	bld := NewDeepBatchBuilder(deepSpec(1, 1))
	bld.Add(0, 0, []float32{0, 0, 0, 1, 0.9})
	bld.Add(0, 0, []float32{0, 0, 0, 1, 0.1})
	bld.Add(0, 0, []float32{0, 0, 0, 1, 0.5})
	buf := bld.Build()
	buf.Sort(0, 0)
	samples := buf.deepPixelSamples(0, 0)
	zIdx := buf.Spec.ChannelIndex("Z")
	for i := 1; i < len(samples); i++ {
		if samples[i][zIdx] < samples[i-1][zIdx] {
			t.Fatalf("samples not sorted ascending by Z: %+v", samples)
		}
	}
}

func TestMergeOverlapsCombinesIdenticalZ(t *testing.T) {
	bld := NewDeepBatchBuilder(deepSpec(1, 1))
	bld.Add(0, 0, []float32{0.1, 0, 0, 0.4, 0.5})
	bld.Add(0, 0, []float32{0.1, 0, 0, 0.4, 0.5})
	buf := bld.Build()
	buf.MergeOverlaps(0, 0)
	if got := buf.Samples(0, 0); got != 1 {
		t.Fatalf("Samples after merge = %d, want 1", got)
	}
	samples := buf.deepPixelSamples(0, 0)
	aIdx := buf.Spec.ChannelIndex("A")
	if samples[0][aIdx] != 0.8 {
		t.Fatalf("merged alpha = %v, want 0.8", samples[0][aIdx])
	}
}

func TestOcclusionCullDropsBehindOpaque(t *testing.T) {
	bld := NewDeepBatchBuilder(deepSpec(1, 1))
	bld.Add(0, 0, []float32{1, 0, 0, 1.0, 0.1}) // opaque, nearest
	bld.Add(0, 0, []float32{0, 1, 0, 1.0, 0.5}) // behind, should be culled
	buf := bld.Build()
	buf.Sort(0, 0)
	buf.OcclusionCull(0, 0)
	if got := buf.Samples(0, 0); got != 1 {
		t.Fatalf("Samples after cull = %d, want 1", got)
	}
}
