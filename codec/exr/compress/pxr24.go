package compress

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"
	"math"

	"github.com/deepteams/vfximg/imgbuf"
)

// Plane describes one typed, contiguous run of samples within a raw
// chunk buffer (one channel's worth of samples across the chunk's
// scanlines), the granularity PXR24 needs to know which spans are f32
// (and therefore eligible for 24-bit truncation) versus passed through.
type Plane struct {
	Type  imgbuf.SampleType
	Count int
}

func (p Plane) rawBytes() int { return p.Count * p.Type.Size() }

// PXR24 truncates f32 samples to 24 bits (dropping the low mantissa byte)
// before DEFLATE; f16/u32 planes pass through untouched (spec.md §4.1
// "PXR24 (24-bit float truncation + DEFLATE)", §8 tolerance "≤1 ulp in f32
// after 24->32 widening").
type PXR24 struct{}

func (PXR24) Compress(raw []byte, planes []Plane) ([]byte, error) {
	packed := make([]byte, 0, len(raw))
	off := 0
	for _, p := range planes {
		span := raw[off : off+p.rawBytes()]
		off += p.rawBytes()
		if p.Type != imgbuf.SampleF32 {
			packed = append(packed, span...)
			continue
		}
		for i := 0; i < p.Count; i++ {
			v := binary.LittleEndian.Uint32(span[i*4:])
			// keep the top 3 bytes (sign, exponent, high mantissa bits);
			// truncation, not rounding, matching the reference encoder.
			packed = append(packed, byte(v>>8), byte(v>>16), byte(v>>24))
		}
	}
	predicted := deltaEncode(reorderInterleave(packed))
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(predicted); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (PXR24) Decompress(data []byte, planes []Plane) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	predicted, err := io.ReadAll(fr)
	if err != nil {
		return nil, err
	}
	var packedLen int
	for _, p := range planes {
		if p.Type == imgbuf.SampleF32 {
			packedLen += p.Count * 3
		} else {
			packedLen += p.rawBytes()
		}
	}
	packed := reorderDeinterleave(deltaDecode(predicted))
	if len(packed) > packedLen {
		packed = packed[:packedLen]
	}

	raw := make([]byte, 0, packedLen+len(planes))
	off := 0
	for _, p := range planes {
		if p.Type != imgbuf.SampleF32 {
			n := p.rawBytes()
			raw = append(raw, packed[off:off+n]...)
			off += n
			continue
		}
		for i := 0; i < p.Count; i++ {
			b0, b1, b2 := packed[off], packed[off+1], packed[off+2]
			off += 3
			v := uint32(b0)<<8 | uint32(b1)<<16 | uint32(b2)<<24
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], v)
			raw = append(raw, buf[:]...)
		}
	}
	return raw, nil
}

// widen24 reinterprets a 24-bit-truncated float (low byte zeroed) back to
// float32, used by tests asserting the ≤1 ulp tolerance.
func widen24(v uint32) float32 {
	return math.Float32frombits(v &^ 0xff)
}
