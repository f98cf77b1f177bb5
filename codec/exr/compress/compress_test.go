package compress

import (
	"bytes"
	"math"
	"testing"

	"github.com/deepteams/vfximg/imgbuf"
)

func sampleRaw(n int) []byte {
	raw := make([]byte, n)
	for i := range raw {
		raw[i] = byte(i*7 + 3)
	}
	return raw
}

func TestZIPRoundTrip(t *testing.T) {
	raw := sampleRaw(4096)
	z := ZIP{}
	enc, err := z.Compress(raw)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	dec, err := z.Decompress(enc, len(raw))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(raw, dec) {
		t.Fatal("ZIP round trip mismatch")
	}
}

func TestZIPSRoundTrip(t *testing.T) {
	raw := sampleRaw(256)
	z := ZIPS{}
	enc, err := z.Compress(raw)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	dec, err := z.Decompress(enc, len(raw))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(raw, dec) {
		t.Fatal("ZIPS round trip mismatch")
	}
}

func TestRLERoundTrip(t *testing.T) {
	raw := make([]byte, 300)
	for i := range raw {
		if i < 100 {
			raw[i] = 42
		} else {
			raw[i] = byte(i)
		}
	}
	r := RLE{}
	enc, err := r.Compress(raw)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	dec, err := r.Decompress(enc, len(raw))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(raw, dec) {
		t.Fatal("RLE round trip mismatch")
	}
}

func TestPXR24RoundTripWithinOneULP(t *testing.T) {
	n := 64
	floats := make([]float32, n)
	raw := make([]byte, n*4)
	for i := range floats {
		floats[i] = float32(i) * 0.125
		bits := math.Float32bits(floats[i])
		raw[i*4] = byte(bits)
		raw[i*4+1] = byte(bits >> 8)
		raw[i*4+2] = byte(bits >> 16)
		raw[i*4+3] = byte(bits >> 24)
	}
	planes := []Plane{{Type: imgbuf.SampleF32, Count: n}}
	p := PXR24{}
	enc, err := p.Compress(raw, planes)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	dec, err := p.Decompress(enc, planes)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	for i := range floats {
		bits := uint32(dec[i*4]) | uint32(dec[i*4+1])<<8 | uint32(dec[i*4+2])<<16 | uint32(dec[i*4+3])<<24
		got := math.Float32frombits(bits)
		want := widen24(math.Float32bits(floats[i]))
		if got != want {
			t.Errorf("sample %d: got %v, want %v (24-bit truncated)", i, got, want)
		}
	}
}

func TestB44RoundTripWithinTolerance(t *testing.T) {
	samples := make([]uint16, 32) // two 4x4 blocks worth across channel count
	for i := range samples {
		samples[i] = Float32ToHalf(float32(i) * 0.1)
	}
	b := B44{}
	enc, err := b.Compress(samples)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	dec, err := b.Decompress(enc, len(samples))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	for i := range samples {
		diff := int(dec[i]) - int(samples[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > 1<<14 {
			t.Errorf("sample %d: error %d exceeds 2^14 tolerance", i, diff)
		}
	}
}

func TestB44AUniformBlockCollapses(t *testing.T) {
	samples := make([]uint16, 16)
	v := Float32ToHalf(0.5)
	for i := range samples {
		samples[i] = v
	}
	a := B44A{}
	enc, err := a.Compress(samples)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(enc) != 3 {
		t.Errorf("uniform block should collapse to 3 bytes, got %d", len(enc))
	}
	dec, err := a.Decompress(enc, len(samples))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	for i, got := range dec {
		if got != v {
			t.Errorf("sample %d = %x, want %x", i, got, v)
		}
	}
}

func TestPIZRoundTrip(t *testing.T) {
	samples := make([]uint16, 64)
	for i := range samples {
		samples[i] = Float32ToHalf(float32(i%7) * 0.3)
	}
	p := PIZ{}
	enc, err := p.Compress(samples)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	dec, err := p.Decompress(enc, len(samples))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	for i := range samples {
		if dec[i] != samples[i] {
			t.Errorf("sample %d = %x, want %x", i, dec[i], samples[i])
		}
	}
}

func TestHalfFloat32RoundTrip(t *testing.T) {
	vals := []float32{0, 1, -1, 0.5, 100.25, -0.125}
	for _, v := range vals {
		h := Float32ToHalf(v)
		got := HalfToFloat32(h)
		if math.Abs(float64(got-v)) > 0.01 {
			t.Errorf("half round trip for %v got %v", v, got)
		}
	}
}
