package imgbuf

import "testing"

func rgbaSpec(w, h int) Spec {
	return Spec{
		DisplayWindow: Window{0, 0, w - 1, h - 1},
		DataWindow:    Window{0, 0, w - 1, h - 1},
		Channels: []Channel{
			{Name: "R", Type: SampleF16},
			{Name: "G", Type: SampleF16},
			{Name: "B", Type: SampleF16},
			{Name: "A", Type: SampleF16},
		},
	}
}

func TestNewFlatInvariant(t *testing.T) {
	b, err := NewFlat(rgbaSpec(256, 256))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
	if len(b.Data) != 256*256*4 {
		t.Fatalf("len(Data) = %d, want %d", len(b.Data), 256*256*4)
	}
}

func TestGetSetPixelRoundTrip(t *testing.T) {
	b, _ := NewFlat(rgbaSpec(4, 4))
	want := []float32{0.25, 0.5, 0.75, 1.0}
	b.SetPixel(2, 1, want)
	got := b.GetPixel(2, 1)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("channel %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestGetPixelOutOfBoundsIsZero(t *testing.T) {
	b, _ := NewFlat(rgbaSpec(4, 4))
	got := b.GetPixel(100, 100)
	for _, v := range got {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", got)
		}
	}
}

func TestValidateDeepRequiresZ(t *testing.T) {
	s := Spec{
		DisplayWindow: Window{0, 0, 1, 1},
		DataWindow:    Window{0, 0, 1, 1},
		Deep:          true,
		Channels:      []Channel{{Name: "R", Type: SampleF32}},
	}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for deep spec missing Z channel")
	}
}

func TestValidateTileDims(t *testing.T) {
	s := rgbaSpec(4, 4)
	s.TileWidth = 16
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for one-sided tile dims")
	}
	s.TileHeight = 16
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInterpPixelWrapClamp(t *testing.T) {
	b, _ := NewFlat(rgbaSpec(2, 2))
	b.SetPixel(0, 0, []float32{1, 0, 0, 1})
	b.SetPixel(1, 0, []float32{1, 0, 0, 1})
	b.SetPixel(0, 1, []float32{1, 0, 0, 1})
	b.SetPixel(1, 1, []float32{1, 0, 0, 1})
	got := b.InterpPixel(5, 5, WrapClamp)
	if got[0] != 1 {
		t.Fatalf("expected clamped red channel 1, got %v", got)
	}
}

func TestInterpPixelWrapBlackOutOfRange(t *testing.T) {
	b, _ := NewFlat(rgbaSpec(2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			b.SetPixel(x, y, []float32{1, 1, 1, 1})
		}
	}
	got := b.InterpPixel(-5, -5, WrapBlack)
	for _, v := range got {
		if v != 0 {
			t.Fatalf("expected black fill, got %v", got)
		}
	}
}
