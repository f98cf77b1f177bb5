package exr

import (
	"github.com/deepteams/vfximg/codec/exr/compress"
	"github.com/deepteams/vfximg/imgbuf"
)

// encodeBlockRaw serializes buf's channel samples for rows
// [yFirst, yFirst+lineCount) into the on-file channel-major raw layout
// (spec.md §4.1 "Flat payload: channels x samples_per_block").
func encodeBlockRaw(ph *PartHeader, buf *imgbuf.Buffer, yFirst, lineCount int) []byte {
	dw := ph.Spec.DataWindow
	w := dw.Width()
	c := ph.Spec.NumChannels()
	var raw []byte
	for ci, ch := range ph.Spec.Channels {
		xs, ys := ch.XSampling, ch.YSampling
		if xs < 1 {
			xs = 1
		}
		if ys < 1 {
			ys = 1
		}
		for y := yFirst; y < yFirst+lineCount; y++ {
			if (y-dw.YMin)%ys != 0 {
				continue
			}
			rowBase := (y-dw.YMin)*w*c + ci
			for x := dw.XMin; x <= dw.XMax; x += xs {
				idx := rowBase + (x-dw.XMin)*c
				raw = encodeSample(raw, ch.Type, buf.Data[idx])
			}
		}
	}
	return raw
}

// decodeBlockRaw is the inverse of encodeBlockRaw: it scatters on-file raw
// bytes for rows [yFirst, yFirst+lineCount) back into buf.
func decodeBlockRaw(ph *PartHeader, buf *imgbuf.Buffer, yFirst, lineCount int, raw []byte) {
	dw := ph.Spec.DataWindow
	w := dw.Width()
	c := ph.Spec.NumChannels()
	off := 0
	for ci, ch := range ph.Spec.Channels {
		xs, ys := ch.XSampling, ch.YSampling
		if xs < 1 {
			xs = 1
		}
		if ys < 1 {
			ys = 1
		}
		for y := yFirst; y < yFirst+lineCount; y++ {
			if (y-dw.YMin)%ys != 0 {
				continue
			}
			rowBase := (y-dw.YMin)*w*c + ci
			for x := dw.XMin; x <= dw.XMax; x += xs {
				v, n := decodeSample(raw, off, ch.Type)
				off += n
				idx := rowBase + (x-dw.XMin)*c
				buf.Data[idx] = v
			}
		}
	}
}

// encodeTileRaw serializes buf's channel samples within tile rectangle
// [x0, x0+w) x [y0, y0+h) into the on-file channel-major raw layout, the
// tiled-part counterpart to encodeBlockRaw.
func encodeTileRaw(ph *PartHeader, buf *imgbuf.Buffer, x0, y0, w, h int) []byte {
	dw := ph.Spec.DataWindow
	rowStride := dw.Width()
	c := ph.Spec.NumChannels()
	var raw []byte
	for ci, ch := range ph.Spec.Channels {
		xs, ys := ch.XSampling, ch.YSampling
		if xs < 1 {
			xs = 1
		}
		if ys < 1 {
			ys = 1
		}
		for y := y0; y < y0+h; y++ {
			if y%ys != 0 {
				continue
			}
			rowBase := (y-dw.YMin)*rowStride*c + ci
			for x := x0; x < x0+w; x += xs {
				idx := rowBase + (x-dw.XMin)*c
				raw = encodeSample(raw, ch.Type, buf.Data[idx])
			}
		}
	}
	return raw
}

// decodeTileRaw is the inverse of encodeTileRaw.
func decodeTileRaw(ph *PartHeader, buf *imgbuf.Buffer, x0, y0, w, h int, raw []byte) {
	dw := ph.Spec.DataWindow
	rowStride := dw.Width()
	c := ph.Spec.NumChannels()
	off := 0
	for ci, ch := range ph.Spec.Channels {
		xs, ys := ch.XSampling, ch.YSampling
		if xs < 1 {
			xs = 1
		}
		if ys < 1 {
			ys = 1
		}
		for y := y0; y < y0+h; y++ {
			if y%ys != 0 {
				continue
			}
			rowBase := (y-dw.YMin)*rowStride*c + ci
			for x := x0; x < x0+w; x += xs {
				v, n := decodeSample(raw, off, ch.Type)
				off += n
				idx := rowBase + (x-dw.XMin)*c
				buf.Data[idx] = v
			}
		}
	}
}

// compressBlock compresses a raw channel-major block according to
// ph.Compression, dispatching to the plane-aware methods where relevant.
func compressBlock(ph *PartHeader, raw []byte, planes []compress.Plane) ([]byte, error) {
	switch ph.Compression {
	case CompressionNone:
		return raw, nil
	case CompressionRLE:
		return compress.RLE{}.Compress(raw)
	case CompressionZIPS:
		return compress.ZIPS{}.Compress(raw)
	case CompressionZIP:
		return compress.ZIP{}.Compress(raw)
	case CompressionPXR24:
		return compress.PXR24{}.Compress(raw, planes)
	case CompressionPIZ:
		if err := requireAllHalf(planes); err != nil {
			return nil, err
		}
		return compress.PIZ{}.Compress(samplesToHalves(raw))
	case CompressionB44:
		if err := requireAllHalf(planes); err != nil {
			return nil, err
		}
		return compress.B44{}.Compress(samplesToHalves(raw))
	case CompressionB44A:
		if err := requireAllHalf(planes); err != nil {
			return nil, err
		}
		return compress.B44A{}.Compress(samplesToHalves(raw))
	default:
		return nil, notSupported("unknown compression method %d", ph.Compression)
	}
}

func decompressBlock(ph *PartHeader, data []byte, expectedRaw int, planes []compress.Plane) ([]byte, error) {
	switch ph.Compression {
	case CompressionNone:
		if len(data) != expectedRaw {
			return nil, invalid("uncompressed block size %d, want %d", len(data), expectedRaw)
		}
		return data, nil
	case CompressionRLE:
		return compress.RLE{}.Decompress(data, expectedRaw)
	case CompressionZIPS:
		return compress.ZIPS{}.Decompress(data, expectedRaw)
	case CompressionZIP:
		return compress.ZIP{}.Decompress(data, expectedRaw)
	case CompressionPXR24:
		return compress.PXR24{}.Decompress(data, planes)
	case CompressionPIZ:
		if err := requireAllHalf(planes); err != nil {
			return nil, err
		}
		halves, err := compress.PIZ{}.Decompress(data, expectedRaw/2)
		if err != nil {
			return nil, err
		}
		return halvesToSamples(halves), nil
	case CompressionB44:
		if err := requireAllHalf(planes); err != nil {
			return nil, err
		}
		halves, err := compress.B44{}.Decompress(data, expectedRaw/2)
		if err != nil {
			return nil, err
		}
		return halvesToSamples(halves), nil
	case CompressionB44A:
		if err := requireAllHalf(planes); err != nil {
			return nil, err
		}
		halves, err := compress.B44A{}.Decompress(data, expectedRaw/2)
		if err != nil {
			return nil, err
		}
		return halvesToSamples(halves), nil
	default:
		return nil, notSupported("unknown compression method %d", ph.Compression)
	}
}

func requireAllHalf(planes []compress.Plane) error {
	for _, p := range planes {
		if p.Type != imgbuf.SampleF16 {
			return notSupported("compression method requires all-half channels, found %v", p.Type)
		}
	}
	return nil
}
