package exr

import (
	"encoding/binary"
	"math"

	"github.com/deepteams/vfximg/codec/exr/compress"
	"github.com/deepteams/vfximg/imgbuf"
)

// encodeSample converts one normalized-float working value into its
// on-file byte representation for the given sample type, appending to dst.
func encodeSample(dst []byte, t imgbuf.SampleType, v float32) []byte {
	switch t {
	case imgbuf.SampleU8:
		return append(dst, byte(clamp01(v)*255+0.5))
	case imgbuf.SampleU16:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(clamp01(v)*65535+0.5))
		return append(dst, buf[:]...)
	case imgbuf.SampleU32:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int64(v)))
		return append(dst, buf[:]...)
	case imgbuf.SampleF16:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], compress.Float32ToHalf(v))
		return append(dst, buf[:]...)
	default: // SampleF32
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		return append(dst, buf[:]...)
	}
}

// decodeSample reads one sample of type t from src at offset, returning
// its normalized-float working value and the byte count consumed.
func decodeSample(src []byte, off int, t imgbuf.SampleType) (float32, int) {
	switch t {
	case imgbuf.SampleU8:
		return float32(src[off]) / 255, 1
	case imgbuf.SampleU16:
		return float32(binary.LittleEndian.Uint16(src[off:])) / 65535, 2
	case imgbuf.SampleU32:
		return float32(int32(binary.LittleEndian.Uint32(src[off:]))), 4
	case imgbuf.SampleF16:
		return compress.HalfToFloat32(binary.LittleEndian.Uint16(src[off:])), 2
	default: // SampleF32
		return math.Float32frombits(binary.LittleEndian.Uint32(src[off:])), 4
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// samplesToHalves reinterprets a run of raw f16 bytes as uint16 values,
// the shape PIZ/B44/B44A operate on (spec.md §4.1: "reject non-half
// data").
func samplesToHalves(raw []byte) []uint16 {
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return out
}

func halvesToSamples(halves []uint16) []byte {
	out := make([]byte, len(halves)*2)
	for i, h := range halves {
		binary.LittleEndian.PutUint16(out[i*2:], h)
	}
	return out
}
